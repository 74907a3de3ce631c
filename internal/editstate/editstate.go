// Package editstate tracks the write lifecycle of an editable entity. An edit
// moves Clean -> Pending when a write starts, then Committed on success or
// RolledBack (restoring the snapshot) on failure; Reconcile replaces the local
// value with freshly fetched persisted state and returns the tracker to Clean.
package editstate

import "fmt"

// State is the write status of a tracked entity.
type State int

const (
	Clean State = iota
	Pending
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Tracker holds the current value of one entity plus the snapshot taken when
// an edit began. It replaces set-then-catch-and-revert handling: the only
// legal transitions are the ones below, and the snapshot is the single source
// of the revert value.
type Tracker[T any] struct {
	state    T
	snapshot T
	status   State
}

// NewTracker starts a tracker in the Clean state holding value.
func NewTracker[T any](value T) *Tracker[T] {
	return &Tracker[T]{state: value, status: Clean}
}

// Value returns the entity as it should currently be displayed.
func (tr *Tracker[T]) Value() T { return tr.state }

// Status returns the tracker's write status.
func (tr *Tracker[T]) Status() State { return tr.status }

// Begin snapshots the current value and applies the edited one, moving to
// Pending. Beginning while a write is already pending is a programming error.
func (tr *Tracker[T]) Begin(edited T) error {
	if tr.status == Pending {
		return fmt.Errorf("edit already pending")
	}
	tr.snapshot = tr.state
	tr.state = edited
	tr.status = Pending
	return nil
}

// Commit marks the pending write as persisted.
func (tr *Tracker[T]) Commit() error {
	if tr.status != Pending {
		return fmt.Errorf("commit without pending edit (status %s)", tr.status)
	}
	tr.status = Committed
	return nil
}

// Rollback restores the snapshot taken at Begin and returns it.
func (tr *Tracker[T]) Rollback() (T, error) {
	if tr.status != Pending {
		var zero T
		return zero, fmt.Errorf("rollback without pending edit (status %s)", tr.status)
	}
	tr.state = tr.snapshot
	tr.status = RolledBack
	return tr.state, nil
}

// Reconcile replaces the tracked value with persisted state and returns the
// tracker to Clean. It is valid from any status: after a failed write the
// caller re-fetches and reconciles rather than trusting the optimistic value.
func (tr *Tracker[T]) Reconcile(persisted T) {
	tr.state = persisted
	tr.snapshot = persisted
	tr.status = Clean
}
