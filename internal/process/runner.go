package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/agentx-labs/stackforge/internal/errs"
)

// stderrTail is how much of a failed command's stderr is kept for the report.
const stderrTail = 4 << 10

// Runner executes commands.
type Runner interface {
	// Run executes cmd and returns its exit code. A non-zero exit is an error.
	Run(ctx context.Context, cmd Command) (int, error)
	// Output executes cmd and returns its stdout.
	Output(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout and Stderr receive the child's output as it is produced.
	// Nil discards it; stderr is captured for error reports either way.
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Available reports an error when name is not on PATH.
func Available(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return &errs.ProcessError{Argv: []string{name}, ExitCode: -1, Err: err}
	}
	return nil
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) (int, error) {
	return r.run(ctx, cmd, r.Stdout)
}

func (r *ExecRunner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	var out bytes.Buffer
	_, err := r.run(ctx, cmd, &out)
	return out.Bytes(), err
}

func (r *ExecRunner) run(ctx context.Context, cmd Command, stdout io.Writer) (int, error) {
	if err := cmd.Validate(); err != nil {
		return -1, err
	}
	argv := cmd.Argv()

	bin, err := exec.LookPath(cmd.Path)
	if err != nil {
		return -1, &errs.ProcessError{Argv: argv, ExitCode: -1, Err: err}
	}

	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, bin, argv[1:]...)
	c.Dir = cmd.Dir
	c.Env = mergeEnv(os.Environ(), cmd.Env)
	c.WaitDelay = 5 * time.Second

	tail := &tailWriter{max: stderrTail}
	if stdout == nil {
		stdout = io.Discard
	}
	c.Stdout = stdout
	if r.Stderr != nil {
		c.Stderr = io.MultiWriter(r.Stderr, tail)
	} else {
		c.Stderr = tail
	}

	logger := r.logger()
	logger.Debug("running command", "argv", argv, "dir", cmd.Dir)
	start := time.Now()
	err = c.Run()
	logger.Debug("command finished", "argv", argv, "duration", time.Since(start), "error", err)

	if err == nil {
		return 0, nil
	}
	perr := &errs.ProcessError{Argv: argv, ExitCode: -1, Stderr: tail.String(), Err: err}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && cmd.Timeout > 0 {
		perr.TimedOut = true
		return -1, perr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		perr.ExitCode = exitErr.ExitCode()
	}
	return perr.ExitCode, perr
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tailWriter keeps the last max bytes written to it.
type tailWriter struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailWriter) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
