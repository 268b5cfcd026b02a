// Package progress reports phase and operation events while a plan runs.
// Reporters only observe; nothing they do feeds back into execution.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	undoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	headStyle = lipgloss.NewStyle().Bold(true)
)

// Reporter receives execution events. Operation events arrive from worker
// goroutines, so implementations must be safe for concurrent use.
type Reporter interface {
	PhaseStarted(name string, ops int)
	PhaseCompleted(name string)
	OpCompleted(desc string)
	OpFailed(desc string, err error)
	Undone(desc string, err error)
}

// Nop discards every event.
type Nop struct{}

func (Nop) PhaseStarted(string, int) {}
func (Nop) PhaseCompleted(string)    {}
func (Nop) OpCompleted(string)       {}
func (Nop) OpFailed(string, error)   {}
func (Nop) Undone(string, error)     {}

// Text writes one line per event, in the style of:
//
//	==> [2/5] directories (6 operations)
//	  [ OK ] mkdir src
//	  [FAIL] write README.md: permission denied
//	  [UNDO] mkdir src
type Text struct {
	mu     sync.Mutex
	w      io.Writer
	total  int
	phase  int
	phaseT time.Time

	arrow, ok, fail, undo string
}

// NewText returns a Text reporter for a plan with total phases. Tags are
// colored when w is a terminal.
func NewText(w io.Writer, total int) *Text {
	t := &Text{w: w, total: total, arrow: "==>", ok: "[ OK ]", fail: "[FAIL]", undo: "[UNDO]"}
	if isTerminal(w) {
		t.arrow = headStyle.Render(t.arrow)
		t.ok = okStyle.Render(t.ok)
		t.fail = failStyle.Render(t.fail)
		t.undo = undoStyle.Render(t.undo)
	}
	return t
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (t *Text) PhaseStarted(name string, ops int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase++
	t.phaseT = time.Now()
	noun := "operations"
	if ops == 1 {
		noun = "operation"
	}
	fmt.Fprintf(t.w, "%s [%d/%d] %s (%d %s)\n", t.arrow, t.phase, t.total, name, ops, noun)
}

func (t *Text) PhaseCompleted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "    %s done in %s\n", name, time.Since(t.phaseT).Round(time.Millisecond))
}

func (t *Text) OpCompleted(desc string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "  %s %s\n", t.ok, desc)
}

func (t *Text) OpFailed(desc string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "  %s %s: %v\n", t.fail, desc, err)
}

func (t *Text) Undone(desc string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		fmt.Fprintf(t.w, "  %s %s: FAILED: %v\n", t.undo, desc, err)
		return
	}
	fmt.Fprintf(t.w, "  %s %s\n", t.undo, desc)
}

// Event is one recorded reporter call.
type Event struct {
	Type string // "phase-start", "phase-done", "ok", "fail", "undo"
	Name string
	Err  error
}

// Recorder keeps every event in arrival order. Useful for asserting on
// execution order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	// OnEvent, when set, is called synchronously after each event is stored.
	OnEvent func(Event)
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	hook := r.OnEvent
	r.mu.Unlock()
	if hook != nil {
		hook(e)
	}
}

func (r *Recorder) PhaseStarted(name string, _ int) { r.add(Event{Type: "phase-start", Name: name}) }
func (r *Recorder) PhaseCompleted(name string)      { r.add(Event{Type: "phase-done", Name: name}) }
func (r *Recorder) OpCompleted(desc string)         { r.add(Event{Type: "ok", Name: desc}) }
func (r *Recorder) OpFailed(desc string, err error) { r.add(Event{Type: "fail", Name: desc, Err: err}) }
func (r *Recorder) Undone(desc string, err error)   { r.add(Event{Type: "undo", Name: desc, Err: err}) }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Names returns the names of events of the given type, in order.
func (r *Recorder) Names(eventType string) []string {
	var names []string
	for _, e := range r.Events() {
		if e.Type == eventType {
			names = append(names, e.Name)
		}
	}
	return names
}
