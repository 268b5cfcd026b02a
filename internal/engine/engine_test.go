package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentx-labs/stackforge/internal/progress"
)

// fakeOp is an Operation driven by plain functions.
type fakeOp struct {
	name  string
	apply func(ctx context.Context) error
	undo  func(ctx context.Context) error

	mu      sync.Mutex
	applied bool
	undone  bool
}

func (o *fakeOp) Kind() Kind       { return WriteFile }
func (o *fakeOp) Describe() string { return o.name }

func (o *fakeOp) Apply(ctx context.Context) error {
	if o.apply != nil {
		if err := o.apply(ctx); err != nil {
			return err
		}
	}
	o.mu.Lock()
	o.applied = true
	o.mu.Unlock()
	return nil
}

func (o *fakeOp) Undo(ctx context.Context) error {
	o.mu.Lock()
	o.undone = true
	o.mu.Unlock()
	if o.undo != nil {
		return o.undo(ctx)
	}
	return nil
}

func (o *fakeOp) wasApplied() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.applied
}

func (o *fakeOp) wasUndone() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.undone
}

func ok(name string) *fakeOp { return &fakeOp{name: name} }

func failing(name string, err error) *fakeOp {
	return &fakeOp{name: name, apply: func(context.Context) error { return err }}
}

func TestRunAllPhasesSucceed(t *testing.T) {
	rec := &progress.Recorder{}
	a, b, c := ok("a"), ok("b"), ok("c")
	res := NewExecutor(2, rec, nil).Run(context.Background(), []Phase{
		{Name: "one", Ops: []Operation{a, b}},
		{Name: "two", Ops: []Operation{c}},
	})

	require.NoError(t, res.Err)
	assert.True(t, res.Success())
	assert.Equal(t, 2, res.PhasesCompleted)
	assert.Equal(t, 3, res.Applied)
	assert.Nil(t, res.Rollback)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"one", "two"}, rec.Names("phase-done"))
	for _, st := range res.Ops {
		assert.Equal(t, Applied, st.State, st.Description)
	}
}

func TestRollbackOrderFollowsCompletionOrder(t *testing.T) {
	gates := map[string]chan struct{}{"A": make(chan struct{}), "B": make(chan struct{}), "C": make(chan struct{})}
	completed := make(chan string, 3)

	rec := &progress.Recorder{OnEvent: func(e progress.Event) {
		if e.Type == "ok" {
			completed <- e.Name
		}
	}}

	gated := func(name string) *fakeOp {
		return &fakeOp{name: name, apply: func(context.Context) error {
			<-gates[name]
			return nil
		}}
	}

	done := make(chan *Result, 1)
	go func() {
		done <- NewExecutor(3, rec, nil).Run(context.Background(), []Phase{
			{Name: "files", Ops: []Operation{gated("A"), gated("B"), gated("C")}},
			{Name: "install", Ops: []Operation{failing("boom", errors.New("exit status 1"))}},
		})
	}()

	for _, name := range []string{"C", "A", "B"} {
		close(gates[name])
		select {
		case got := <-completed:
			require.Equal(t, name, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", name)
		}
	}

	res := <-done
	require.Error(t, res.Err)
	require.NotNil(t, res.Rollback)
	assert.Equal(t, []string{"B", "A", "C"}, rec.Names("undo"))

	var order []string
	for _, it := range res.Rollback.Items {
		order = append(order, it.Description)
	}
	assert.Equal(t, []string{"B", "A", "C"}, order)
	assert.False(t, res.Rollback.Partial())
}

func TestFailureStopsLaterPhases(t *testing.T) {
	cause := errors.New("disk full")
	first, later := ok("first"), ok("later")
	bad := failing("bad", cause)

	res := NewExecutor(4, nil, nil).Run(context.Background(), []Phase{
		{Name: "one", Ops: []Operation{first}},
		{Name: "two", Ops: []Operation{bad}},
		{Name: "three", Ops: []Operation{later}},
	})

	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, cause)
	var opErr *OpError
	require.ErrorAs(t, res.Err, &opErr)
	assert.Equal(t, "bad", opErr.Op)
	assert.Equal(t, "two", opErr.Phase)

	assert.Equal(t, 1, res.PhasesCompleted)
	assert.False(t, later.wasApplied())
	assert.True(t, first.wasUndone())
	assert.False(t, bad.wasUndone(), "a failed operation is never undone")

	states := map[string]State{}
	for _, st := range res.Ops {
		states[st.Description] = st.State
	}
	assert.Equal(t, Applied, states["first"])
	assert.Equal(t, Failed, states["bad"])
	assert.Equal(t, Skipped, states["later"])
}

func TestFailureSkipsUnstartedOpsInPhase(t *testing.T) {
	x, y := ok("x"), ok("y")
	res := NewExecutor(1, nil, nil).Run(context.Background(), []Phase{
		{Name: "only", Ops: []Operation{failing("bad", errors.New("no")), x, y}},
	})

	require.Error(t, res.Err)
	assert.False(t, x.wasApplied())
	assert.False(t, y.wasApplied())
	assert.Equal(t, 0, res.Applied)
}

func TestInFlightOpsFinishAndAreUndone(t *testing.T) {
	started := make(chan struct{})
	slow := &fakeOp{name: "slow", apply: func(context.Context) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		return nil
	}}
	bad := &fakeOp{name: "bad", apply: func(context.Context) error {
		<-started
		return errors.New("no")
	}}

	res := NewExecutor(2, nil, nil).Run(context.Background(), []Phase{
		{Name: "only", Ops: []Operation{slow, bad}},
	})

	require.Error(t, res.Err)
	assert.True(t, slow.wasApplied())
	assert.True(t, slow.wasUndone())
	assert.Equal(t, 1, res.Applied)
}

func TestPanickingApplyIsAFailure(t *testing.T) {
	before := ok("before")
	res := NewExecutor(1, nil, nil).Run(context.Background(), []Phase{
		{Name: "one", Ops: []Operation{before}},
		{Name: "two", Ops: []Operation{&fakeOp{name: "panics", apply: func(context.Context) error { panic("bug") }}}},
	})

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "panic: bug")
	assert.True(t, before.wasUndone())
}

func TestUndoFailuresDoNotStopRollback(t *testing.T) {
	a := ok("a")
	b := &fakeOp{name: "b", undo: func(context.Context) error { return errors.New("busy") }}
	c := &fakeOp{name: "c", undo: func(context.Context) error { panic("undo bug") }}

	rec := &progress.Recorder{}
	res := NewExecutor(1, rec, nil).Run(context.Background(), []Phase{
		{Name: "1", Ops: []Operation{a}},
		{Name: "2", Ops: []Operation{b}},
		{Name: "3", Ops: []Operation{c}},
		{Name: "4", Ops: []Operation{failing("bad", errors.New("no"))}},
	})

	require.NotNil(t, res.Rollback)
	sum := res.Rollback
	assert.Equal(t, 3, sum.Attempted)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 2, sum.Failed)
	assert.True(t, sum.Partial())
	assert.True(t, a.wasUndone())
	assert.Equal(t, []string{"c", "b", "a"}, rec.Names("undo"))
	assert.Contains(t, sum.Items[0].Err.Error(), "undo bug")
}

func TestCancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op := ok("never")
	res := NewExecutor(1, nil, nil).Run(ctx, []Phase{{Name: "one", Ops: []Operation{op}}})

	require.ErrorIs(t, res.Err, ErrAborted)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.False(t, op.wasApplied())
	assert.Equal(t, 0, res.Rollback.Attempted)
}

func TestCancellationBetweenPhasesRollsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &fakeOp{name: "first", apply: func(context.Context) error {
		cancel()
		return nil
	}}
	second := ok("second")

	res := NewExecutor(1, nil, nil).Run(ctx, []Phase{
		{Name: "one", Ops: []Operation{first}},
		{Name: "two", Ops: []Operation{second}},
	})

	require.ErrorIs(t, res.Err, ErrAborted)
	assert.False(t, second.wasApplied())
	assert.True(t, first.wasUndone(), "rollback must run even though ctx is cancelled")
}

func TestNewExecutorDefaults(t *testing.T) {
	e := NewExecutor(0, nil, nil)
	assert.Positive(t, e.Workers())
}

func TestDescribe(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Describe(&buf, []Phase{
		{Name: "root", Ops: []Operation{ok("mkdir demo")}},
		{Name: "files", Ops: []Operation{ok("write a"), ok("write b")}},
	}))
	out := buf.String()
	assert.Contains(t, out, "Plan: 2 phases, 3 operations")
	assert.Contains(t, out, "[2/2] files")
	assert.Contains(t, out, "write b")
}

func TestStateTransitions(t *testing.T) {
	s := Pending
	require.NoError(t, transition(&s, Applying))
	require.NoError(t, transition(&s, Applied))
	assert.Error(t, transition(&s, Failed))
	assert.True(t, IsTerminal(s))

	s = Pending
	assert.Error(t, transition(&s, Applied), "must pass through Applying")
	require.NoError(t, transition(&s, Skipped))
	assert.Equal(t, "SKIPPED", s.String())
}

func TestRunWithRealOperationsLeavesNoTrace(t *testing.T) {
	parent := t.TempDir()
	target := filepath.Join(parent, "demo")
	g := newGuard(t, target)

	src := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(src, bytes.Repeat([]byte("x"), 4096), 0o644))

	mkSrc, err := NewCreateDir(g, "src")
	require.NoError(t, err)
	mkComp, err := NewCreateDir(g, "src/components")
	require.NoError(t, err)
	readme, err := NewWriteFile(g, "README.md", func() ([]byte, error) { return []byte("# demo\n"), nil }, 0o644)
	require.NoError(t, err)
	payload, err := NewCopyFile(g, src, "src/payload.bin", 1024)
	require.NoError(t, err)

	res := NewExecutor(4, nil, nil).Run(context.Background(), []Phase{
		{Name: "root", Ops: []Operation{NewCreateRoot(g)}},
		{Name: "dirs-1", Ops: []Operation{mkSrc}},
		{Name: "dirs-2", Ops: []Operation{mkComp}},
		{Name: "files", Ops: []Operation{readme, payload}},
		{Name: "install", Ops: []Operation{failing("npm install", errors.New("exit status 1"))}},
	})

	require.Error(t, res.Err)
	assert.Equal(t, 5, res.Applied)
	assert.False(t, res.Rollback.Partial())
	_, err = os.Lstat(target)
	assert.True(t, os.IsNotExist(err), "target should be gone, got %v", err)

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
