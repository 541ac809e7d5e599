package eventbus

import (
	"fmt"

	"github.com/findwinds/QuantCode/backtester/common"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/findwinds/QuantCode/log"
)

// New returns an empty bus
func New() *Bus {
	return &Bus{handlers: make(map[common.EventKind][]Handler)}
}

// Subscribe appends a handler for the event kind
func (b *Bus) Subscribe(kind common.EventKind, h Handler) error {
	if b == nil {
		return fmt.Errorf("%w event bus", gctcommon.ErrNilPointer)
	}
	if !kind.IsValid() {
		return fmt.Errorf("%w %q", errInvalidEventKind, kind)
	}
	if h == nil {
		return fmt.Errorf("%w for %v", errNilHandler, kind)
	}
	b.m.Lock()
	defer b.m.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[common.EventKind][]Handler)
	}
	b.handlers[kind] = append(b.handlers[kind], h)
	return nil
}

// Publish delivers the event to every handler subscribed to its kind. Every
// handler is attempted even if an earlier one fails or panics; the failures
// are returned joined, in handler order.
func (b *Bus) Publish(e common.Event) error {
	if b == nil {
		return fmt.Errorf("%w event bus", gctcommon.ErrNilPointer)
	}
	if e == nil {
		return common.ErrNilEvent
	}
	kind := e.Kind()
	b.m.RLock()
	// handlers subscribed during dispatch apply from the next publish
	handlers := b.handlers[kind]
	b.m.RUnlock()

	var errs error
	for i := range handlers {
		if err := dispatch(handlers[i], e); err != nil {
			log.Errorf(log.EventBus, "%v handler %d: %v", kind, i, err)
			errs = gctcommon.AppendError(errs, fmt.Errorf("%v handler %d: %w", kind, i, err))
		}
	}
	return errs
}

// Handlers returns the number of handlers subscribed to the kind
func (b *Bus) Handlers(kind common.EventKind) int {
	if b == nil {
		return 0
	}
	b.m.RLock()
	defer b.m.RUnlock()
	return len(b.handlers[kind])
}

// Reset removes every subscription
func (b *Bus) Reset() {
	if b == nil {
		return
	}
	b.m.Lock()
	b.handlers = make(map[common.EventKind][]Handler)
	b.m.Unlock()
}

func dispatch(h Handler, e common.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(e)
}
