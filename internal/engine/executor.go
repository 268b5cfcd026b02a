package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agentx-labs/stackforge/internal/progress"
)

// ErrAborted is returned when the run context is cancelled before the plan
// completes.
var ErrAborted = errors.New("run aborted")

// Phase is a set of operations with no ordering among them. A phase starts
// only after every operation of the previous phase has completed.
type Phase struct {
	Name string
	Ops  []Operation
}

// OpError wraps the failure of a single operation.
type OpError struct {
	Phase string
	Op    string
	Kind  Kind
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// OpStatus is the final state of one operation.
type OpStatus struct {
	Phase       string
	Description string
	Kind        Kind
	State       State
	Err         error
}

// Result describes a finished run.
type Result struct {
	RunID           string
	PhasesCompleted int
	// Applied is the number of operations that completed, including any
	// later rolled back.
	Applied  int
	Ops      []OpStatus
	Err      error
	Rollback *RollbackSummary
	Duration time.Duration
}

// Success reports whether every phase completed.
func (r *Result) Success() bool { return r.Err == nil }

// Executor runs plans.
type Executor struct {
	workers  int
	reporter progress.Reporter
	logger   *slog.Logger
}

// NewExecutor creates an Executor with at most workers concurrent
// operations per phase. workers <= 0 means runtime.GOMAXPROCS(0).
func NewExecutor(workers int, reporter progress.Reporter, logger *slog.Logger) *Executor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if reporter == nil {
		reporter = progress.Nop{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{workers: workers, reporter: reporter, logger: logger}
}

// Workers returns the per-phase concurrency limit.
func (e *Executor) Workers() int { return e.workers }

// run holds the mutable state of one Run call.
type run struct {
	mu     sync.Mutex
	states [][]State
	errs   [][]error
	log    RollbackLog
}

// Run applies phases in order. On the first failure, or when ctx is
// cancelled, it stops starting operations, waits for the running ones, and
// rolls back everything that completed. Rollback is not cancelled by ctx.
func (e *Executor) Run(ctx context.Context, phases []Phase) *Result {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	logger := e.logger.With("run_id", res.RunID)

	r := &run{states: make([][]State, len(phases)), errs: make([][]error, len(phases))}
	for i, ph := range phases {
		r.states[i] = make([]State, len(ph.Ops))
		r.errs[i] = make([]error, len(ph.Ops))
	}

	logger.Info("run started", "phases", len(phases), "workers", e.workers)
	for i, ph := range phases {
		if err := ctx.Err(); err != nil {
			res.Err = fmt.Errorf("%w before phase %q: %w", ErrAborted, ph.Name, context.Cause(ctx))
			break
		}
		e.reporter.PhaseStarted(ph.Name, len(ph.Ops))
		logger.Debug("phase started", "phase", ph.Name, "ops", len(ph.Ops))
		if err := e.runPhase(ctx, i, ph, r, logger); err != nil {
			res.Err = err
			break
		}
		e.reporter.PhaseCompleted(ph.Name)
		res.PhasesCompleted++
	}

	// Anything still pending was never started.
	r.mu.Lock()
	for i := range r.states {
		for j := range r.states[i] {
			if r.states[i][j] == Pending {
				_ = transition(&r.states[i][j], Skipped)
			}
		}
	}
	r.mu.Unlock()

	res.Applied = r.log.Len()
	res.Ops = collectStatus(phases, r)

	if res.Err != nil {
		logger.Warn("run failed, rolling back", "error", res.Err, "applied", res.Applied)
		res.Rollback = Rollback(context.WithoutCancel(ctx), &r.log, e.reporter, logger)
	} else {
		logger.Info("run completed", "applied", res.Applied)
	}
	res.Duration = time.Since(start)
	return res
}

func (e *Executor) runPhase(ctx context.Context, idx int, ph Phase, r *run, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for j, op := range ph.Ops {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Re-check: Go may have blocked on the limit while a sibling failed.
			if gctx.Err() != nil {
				return nil
			}
			r.set(idx, j, Applying, nil)

			// ctx, not gctx: a sibling's failure must not interrupt an
			// operation that has already started.
			err := applyOp(ctx, op)
			if err != nil {
				err = &OpError{Phase: ph.Name, Op: op.Describe(), Kind: op.Kind(), Err: err}
				r.set(idx, j, Failed, err)
				e.reporter.OpFailed(op.Describe(), err)
				logger.Error("operation failed", "phase", ph.Name, "op", op.Describe(), "error", err)
				return err
			}
			r.log.Append(op)
			r.set(idx, j, Applied, nil)
			e.reporter.OpCompleted(op.Describe())
			logger.Debug("operation applied", "phase", ph.Name, "op", op.Describe())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w during phase %q: %w", ErrAborted, ph.Name, context.Cause(ctx))
	}
	return nil
}

func applyOp(ctx context.Context, op Operation) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return op.Apply(ctx)
}

func (r *run) set(phase, op int, to State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if terr := transition(&r.states[phase][op], to); terr != nil {
		panic(fmt.Sprintf("engine: %v", terr))
	}
	if err != nil {
		r.errs[phase][op] = err
	}
}

func collectStatus(phases []Phase, r *run) []OpStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []OpStatus
	for i, ph := range phases {
		for j, op := range ph.Ops {
			out = append(out, OpStatus{
				Phase:       ph.Name,
				Description: op.Describe(),
				Kind:        op.Kind(),
				State:       r.states[i][j],
				Err:         r.errs[i][j],
			})
		}
	}
	return out
}

// Describe writes the plan without applying it.
func Describe(w io.Writer, phases []Phase) error {
	total := 0
	for _, ph := range phases {
		total += len(ph.Ops)
	}
	if _, err := fmt.Fprintf(w, "Plan: %d phases, %d operations\n", len(phases), total); err != nil {
		return err
	}
	for i, ph := range phases {
		if _, err := fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, len(phases), ph.Name); err != nil {
			return err
		}
		for _, op := range ph.Ops {
			if _, err := fmt.Fprintf(w, "  %-13s %s\n", op.Kind(), op.Describe()); err != nil {
				return err
			}
		}
	}
	return nil
}
