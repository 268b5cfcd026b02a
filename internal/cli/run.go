package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/agentx-labs/stackforge/internal/engine"
	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/agentx-labs/stackforge/internal/progress"
)

// ErrRollbackIncomplete marks a failed run whose rollback left changes
// behind.
var ErrRollbackIncomplete = errors.New("rollback incomplete")

// runPlan prints the plan when dry is set, otherwise executes it with a
// text reporter on out. A failed run returns the cause after the report
// has been written.
func runPlan(ctx context.Context, out io.Writer, phases []engine.Phase, workers int, dry bool, logger *slog.Logger) (*engine.Result, error) {
	if dry {
		if err := engine.Describe(out, phases); err != nil {
			return nil, fmt.Errorf("writing plan: %w", err)
		}
		return nil, nil
	}

	exec := engine.NewExecutor(workers, progress.NewText(out, len(phases)), logger)
	res := exec.Run(ctx, phases)
	if res.Success() {
		return res, nil
	}
	writeFailure(out, res)
	if res.Rollback.Partial() {
		return res, fmt.Errorf("%w (%d of %d undo steps failed): %w",
			ErrRollbackIncomplete, res.Rollback.Failed, res.Rollback.Attempted, res.Err)
	}
	return res, res.Err
}

// writeFailure prints the cause of a failed run and what rollback did.
func writeFailure(w io.Writer, res *engine.Result) {
	fmt.Fprintf(w, "\nFailed: %v\n", res.Err)
	if kind := errs.Classify(res.Err); kind != errs.KindUnknown {
		fmt.Fprintf(w, "Category: %s\n", kind)
	}
	var opErr *engine.OpError
	if errors.As(res.Err, &opErr) {
		fmt.Fprintf(w, "Phase: %s\n", opErr.Phase)
	}

	sum := res.Rollback
	if sum == nil || sum.Attempted == 0 {
		fmt.Fprintln(w, "Nothing was applied, nothing to roll back.")
		return
	}
	fmt.Fprintf(w, "\nRolled back %d operations (%d undone, %d failed):\n", sum.Attempted, sum.Succeeded, sum.Failed)
	for _, it := range sum.Items {
		if it.Err != nil {
			fmt.Fprintf(w, "  [FAILED] %s: %v\n", it.Description, it.Err)
			continue
		}
		fmt.Fprintf(w, "  [undone] %s\n", it.Description)
	}
	if sum.Partial() {
		fmt.Fprintln(w, "\nSome changes could not be undone; remove them by hand.")
	}
}

// writeSuccess prints the closing summary of a completed run.
func writeSuccess(w io.Writer, res *engine.Result, headline string) {
	fmt.Fprintf(w, "\n%s\n", headline)
	fmt.Fprintf(w, "%d operations in %d phases, %s (run %s)\n",
		res.Applied, res.PhasesCompleted, res.Duration.Round(time.Millisecond), res.RunID)
}
