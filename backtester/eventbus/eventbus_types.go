package eventbus

import (
	"errors"
	"sync"

	"github.com/findwinds/QuantCode/backtester/common"
)

var (
	errInvalidEventKind = errors.New("invalid event kind")
	errNilHandler       = errors.New("nil handler")
	// ErrHandlerPanic is wrapped when a handler panics during dispatch
	ErrHandlerPanic = errors.New("event handler panicked")
)

// Handler receives a published event. A returned error does not stop
// delivery to the remaining handlers.
type Handler func(common.Event) error

// Bus dispatches events synchronously to the handlers registered for their
// kind, in registration order. Publish returns only after every handler for
// the event has run; failures from all handlers are returned together.
type Bus struct {
	m        sync.RWMutex
	handlers map[common.EventKind][]Handler
}
