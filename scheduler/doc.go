// Package scheduler runs deferred work on a single dedicated worker goroutine.
//
// Work is described by a Task: an owner identity token plus the function to run.
// Tasks are queued at one of four priorities and drained in strict priority order,
// FIFO within a priority. Strict ordering admits starvation: while RealTime or High
// work keeps arriving, Normal and Low tasks wait.
//
// Key concepts:
//   - Task: non-owning unit of work, cancelled by owner through Scheduler.RemoveTask
//   - Queue: one FIFO per Priority with a timed blocking pop
//   - Scheduler: owns the worker goroutine and isolates it from panicking tasks
//
// Example usage:
//
//	s := scheduler.New(scheduler.Name("control"))
//	defer s.Shutdown()
//
//	owner := uuidx.New()
//	s.Submit(scheduler.NewTask(owner, func(ctx context.Context) {
//	    // runs on the worker goroutine
//	}), scheduler.High)
//
//	// before the state captured by the task goes away
//	s.RemoveTask(owner)
//
// Shutdown stops the worker after the task in flight returns. Tasks still queued at
// that point never run; they are counted in Stats.Dropped.
package scheduler
