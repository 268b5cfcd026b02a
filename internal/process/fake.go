package process

import (
	"context"
	"sync"
)

// Fake is a Runner that records commands instead of executing them.
// Configure it by setting the function fields before use.
type Fake struct {
	// RunFunc decides the result of Run. Nil means success.
	RunFunc func(ctx context.Context, cmd Command) (int, error)
	// OutputFunc decides the result of Output. Nil returns empty output.
	OutputFunc func(ctx context.Context, cmd Command) ([]byte, error)

	mu    sync.Mutex
	calls []Command
}

func (f *Fake) Run(ctx context.Context, cmd Command) (int, error) {
	if err := cmd.Validate(); err != nil {
		return -1, err
	}
	f.record(cmd)
	if f.RunFunc != nil {
		return f.RunFunc(ctx, cmd)
	}
	return 0, nil
}

func (f *Fake) Output(ctx context.Context, cmd Command) ([]byte, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	f.record(cmd)
	if f.OutputFunc != nil {
		return f.OutputFunc(ctx, cmd)
	}
	return nil, nil
}

// Calls returns the commands that passed validation, in call order.
func (f *Fake) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

func (f *Fake) record(cmd Command) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
}
