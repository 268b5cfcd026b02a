package engine

import "fmt"

// State is the lifecycle position of one operation in a run.
type State int

const (
	Pending State = iota
	Applying
	Applied
	Failed
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Applying:
		return "APPLYING"
	case Applied:
		return "APPLIED"
	case Failed:
		return "FAILED"
	case Skipped:
		return "SKIPPED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition is possible from s.
func IsTerminal(s State) bool {
	return s == Applied || s == Failed || s == Skipped
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case Pending:
		return to == Applying || to == Skipped
	case Applying:
		return to == Applied || to == Failed
	default:
		return false
	}
}

// transition moves *cur to the next state. The caller holds whatever lock
// protects cur.
func transition(cur *State, to State) error {
	if !isAllowedTransition(*cur, to) {
		return fmt.Errorf("disallowed transition: %s -> %s", *cur, to)
	}
	*cur = to
	return nil
}
