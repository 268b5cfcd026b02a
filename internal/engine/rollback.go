package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/agentx-labs/stackforge/internal/progress"
)

// RollbackItem is the outcome of undoing one operation.
type RollbackItem struct {
	Description string
	Kind        Kind
	Err         error
}

// RollbackSummary reports what Rollback did.
type RollbackSummary struct {
	Attempted int
	Succeeded int
	Failed    int
	// Items are in undo order, the reverse of completion order.
	Items []RollbackItem
}

// Partial reports whether at least one undo failed, meaning the filesystem
// may not be fully restored.
func (s *RollbackSummary) Partial() bool { return s != nil && s.Failed > 0 }

// Rollback undoes every entry of log in reverse completion order. A failed
// or panicking undo is recorded and the remaining entries are still
// attempted.
func Rollback(ctx context.Context, log *RollbackLog, reporter progress.Reporter, logger *slog.Logger) *RollbackSummary {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	entries := log.Entries()
	sum := &RollbackSummary{Items: make([]RollbackItem, 0, len(entries))}
	for i := len(entries) - 1; i >= 0; i-- {
		op := entries[i].Op
		err := undoOp(ctx, op)

		sum.Attempted++
		if err != nil {
			sum.Failed++
			logger.Warn("undo failed", "op", op.Describe(), "error", err)
		} else {
			sum.Succeeded++
		}
		sum.Items = append(sum.Items, RollbackItem{Description: op.Describe(), Kind: op.Kind(), Err: err})
		reporter.Undone(op.Describe(), err)
	}
	logger.Info("rollback finished", "attempted", sum.Attempted, "failed", sum.Failed)
	return sum
}

func undoOp(ctx context.Context, op Operation) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during undo: %v", p)
		}
	}()
	return op.Undo(ctx)
}
