package engine

import (
	"context"
	"fmt"
	"time"

	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/findwinds/QuantCode/log"
	"github.com/gofrs/uuid"
	"golang.org/x/sync/errgroup"
)

// SetupRunManager creates a run manager to allow the backtester to manage multiple strategies
func SetupRunManager() *RunManager {
	return &RunManager{}
}

// AddRun adds a run to the manager, assigning it an ID if it has none
func (r *RunManager) AddRun(b *BackTest) error {
	if r == nil {
		return fmt.Errorf("%w RunManager", gctcommon.ErrNilPointer)
	}
	if b == nil {
		return fmt.Errorf("%w BackTest", gctcommon.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	b.m.Lock()
	defer b.m.Unlock()
	if b.MetaData.ID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		b.MetaData.ID = id
	}
	for i := range r.runs {
		if r.runs[i] == b || r.runs[i].MetaData.ID == b.MetaData.ID {
			return fmt.Errorf("%w %s %s", errRunAlreadyMonitored, b.MetaData.ID, b.MetaData.Strategy)
		}
	}
	r.runs = append(r.runs, b)
	return nil
}

// List details all runs in the order they were added
func (r *RunManager) List() ([]*RunSummary, error) {
	if r == nil {
		return nil, fmt.Errorf("%w RunManager", gctcommon.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	resp := make([]*RunSummary, len(r.runs))
	for i := range r.runs {
		resp[i] = r.runs[i].GenerateSummary()
	}
	return resp, nil
}

// GetSummary returns details about a run
func (r *RunManager) GetSummary(id uuid.UUID) (*RunSummary, error) {
	b, err := r.find(id)
	if err != nil {
		return nil, err
	}
	return b.GenerateSummary(), nil
}

// GetReport returns the report of a completed run
func (r *RunManager) GetReport(id uuid.UUID) (*Report, error) {
	b, err := r.find(id)
	if err != nil {
		return nil, err
	}
	b.m.Lock()
	defer b.m.Unlock()
	switch {
	case b.running:
		return nil, fmt.Errorf("%w %v", errRunIsRunning, id)
	case !b.ran:
		return nil, fmt.Errorf("%w %v", errRunHasNotRan, id)
	case b.report == nil:
		return nil, fmt.Errorf("run %v produced no report: %w", id, b.err)
	}
	return b.report, nil
}

// StartRun executes a run and waits for it to finish
func (r *RunManager) StartRun(ctx context.Context, id uuid.UUID) error {
	b, err := r.find(id)
	if err != nil {
		return err
	}
	return b.execute(ctx)
}

// StartAllRuns executes every run that has not ran yet concurrently. Each
// run owns its own broker and ledger so they share no state. The first
// failure is returned once all runs have finished.
func (r *RunManager) StartAllRuns(ctx context.Context) ([]uuid.UUID, error) {
	if r == nil {
		return nil, fmt.Errorf("%w RunManager", gctcommon.ErrNilPointer)
	}
	r.m.Lock()
	pending := make([]*BackTest, 0, len(r.runs))
	for i := range r.runs {
		if r.runs[i].HasRan() || r.runs[i].IsRunning() {
			continue
		}
		pending = append(pending, r.runs[i])
	}
	r.m.Unlock()

	executedRuns := make([]uuid.UUID, len(pending))
	var g errgroup.Group
	for i := range pending {
		b := pending[i]
		executedRuns[i] = b.MetaData.ID
		g.Go(func() error {
			return b.execute(ctx)
		})
	}
	return executedRuns, g.Wait()
}

// StopRun cancels a running run
func (r *RunManager) StopRun(id uuid.UUID) error {
	b, err := r.find(id)
	if err != nil {
		return err
	}
	b.m.Lock()
	defer b.m.Unlock()
	switch {
	case b.running:
		b.stopped = true
		b.cancel()
		return nil
	case b.ran:
		return fmt.Errorf("%w %v", errAlreadyRan, id)
	default:
		return fmt.Errorf("%w %v", errRunHasNotRan, id)
	}
}

// ClearRun removes a run from memory
func (r *RunManager) ClearRun(id uuid.UUID) error {
	if r == nil {
		return fmt.Errorf("%w RunManager", gctcommon.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	for i := range r.runs {
		if r.runs[i].MetaData.ID != id {
			continue
		}
		if r.runs[i].IsRunning() {
			return fmt.Errorf("%w %v, currently running. Stop it first", errCannotClear, id)
		}
		r.runs = append(r.runs[:i], r.runs[i+1:]...)
		return nil
	}
	return fmt.Errorf("%s %w", id, errRunNotFound)
}

// ClearAllRuns removes all runs that are not running from memory
func (r *RunManager) ClearAllRuns() (clearedRuns, remainingRuns []*RunSummary, err error) {
	if r == nil {
		return nil, nil, fmt.Errorf("%w RunManager", gctcommon.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	kept := r.runs[:0]
	for i := range r.runs {
		sum := r.runs[i].GenerateSummary()
		if r.runs[i].IsRunning() {
			remainingRuns = append(remainingRuns, sum)
			kept = append(kept, r.runs[i])
			continue
		}
		clearedRuns = append(clearedRuns, sum)
	}
	r.runs = kept
	return clearedRuns, remainingRuns, nil
}

func (r *RunManager) find(id uuid.UUID) (*BackTest, error) {
	if r == nil {
		return nil, fmt.Errorf("%w RunManager", gctcommon.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	for i := range r.runs {
		if r.runs[i].MetaData.ID == id {
			return r.runs[i], nil
		}
	}
	return nil, fmt.Errorf("%s %w", id, errRunNotFound)
}

// execute runs the backtest once, recording the report or failure
func (b *BackTest) execute(ctx context.Context) error {
	b.m.Lock()
	switch {
	case b.running:
		b.m.Unlock()
		return fmt.Errorf("%w %v", errRunIsRunning, b.MetaData.ID)
	case b.ran:
		b.m.Unlock()
		return fmt.Errorf("%w %v", errAlreadyRan, b.MetaData.ID)
	}
	ctx, b.cancel = context.WithCancel(ctx)
	b.running = true
	b.MetaData.DateStarted = time.Now()
	b.m.Unlock()

	report, err := b.Run(ctx)

	b.m.Lock()
	defer b.m.Unlock()
	b.cancel()
	b.running = false
	b.ran = true
	b.MetaData.DateEnded = time.Now()
	b.err = err
	if err != nil {
		log.Errorf(log.BackTester, "run %s %s: %v", b.MetaData.ID, b.MetaData.Strategy, err)
		return err
	}
	report.MetaData = b.MetaData
	b.report = report
	return nil
}

// IsRunning returns whether the run is in progress
func (b *BackTest) IsRunning() bool {
	b.m.Lock()
	defer b.m.Unlock()
	return b.running
}

// HasRan returns whether the run has finished, successfully or not
func (b *BackTest) HasRan() bool {
	b.m.Lock()
	defer b.m.Unlock()
	return b.ran
}

// GenerateSummary creates a summary of the run
func (b *BackTest) GenerateSummary() *RunSummary {
	b.m.Lock()
	defer b.m.Unlock()
	resp := &RunSummary{MetaData: b.MetaData}
	switch {
	case b.running:
		resp.Status = StatusRunning
	case !b.ran:
		resp.Status = StatusPending
	case b.stopped:
		resp.Status = StatusStopped
	case b.err != nil:
		resp.Status = StatusFailed
	default:
		resp.Status = StatusComplete
	}
	if b.err != nil {
		resp.Error = b.err.Error()
	}
	if b.report != nil {
		resp.FinalEquity = b.report.FinalAccount.Equity
		resp.Fills = len(b.report.Fills)
		if b.report.Statistics != nil {
			resp.TotalReturn = b.report.Statistics.TotalReturn
		}
	}
	return resp
}
