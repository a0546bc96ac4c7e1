package scheduler

import (
	"context"

	"github.com/google/uuid"
)

// Task is a deferred call to Run, tagged with the identity of whoever owns the state
// Run touches.
//
// A Task does not keep its owner alive. Owners that can disappear must cancel their
// queued tasks with Scheduler.RemoveTask first, or build Run on a weak reference that
// tolerates the owner being gone.
type Task struct {
	Owner uuid.UUID
	Run   func(ctx context.Context)
}

// NewTask creates a task for owner.
func NewTask(owner uuid.UUID, run func(ctx context.Context)) Task {
	return Task{Owner: owner, Run: run}
}

// IsZero reports whether t is the empty task, which schedulers ignore.
func (t Task) IsZero() bool {
	return t.Run == nil
}
