// Package taskobj binds the lifetime of a scheduler task to a Go object.
//
// A task body is any type implementing Runner:
//
//	type Blinker struct{ toggles atomic.Int64 }
//
//	func (b *Blinker) Task(ctx context.Context) {
//		for {
//			kernel.Delay(ctx, 1)
//			b.toggles.Add(1)
//		}
//	}
//
// Task owns the scheduler handle for one body:
//
//	t, err := taskobj.New(k, "blink", &Blinker{}, taskobj.WithPriority(2))
//	if err != nil { ... }
//	if err := t.Start(); err != nil { ... } // creation failure is reported here
//	defer t.Close()
//
// # Two-phase setup
//
// New only validates and records configuration. Start asks the scheduler to create the task; the body
// may begin running before Start returns, so the body must be fully initialized before Start is called.
// Spawn does both.
//
// # Entry point
//
// Every task is created with the same package-level entry function and the *Task as its argument. The
// entry function calls the body's Task method, with a context that also carries the *Task (see Self).
//
// A body is expected to loop forever or to end itself with Exit(ctx). When Task returns, the return
// policy applies:
//   - ReturnPark (default): the task sleeps forever in ParkTicks delays; its slot stays allocated until
//     Close.
//   - ReturnExit: the task releases its own handle (deleting itself when the scheduler can delete), and
//     parks otherwise.
//
// # Release
//
// Close releases the handle exactly once:
//   - no handle held (never started, or creation failed): no-op;
//   - the scheduler can delete: the task is deleted;
//   - the scheduler cannot delete: the handle is abandoned and the task keeps running;
//   - the scheduler already dropped the task: the handle is cleared.
//
// A task that leaves the scheduler on its own (kernel.Exit, kernel shutdown) clears its owner's handle
// as it unwinds.
//
// Close does not wait for the body to stop and does not release anything the body holds.
//
// A Task and its Owner must not be copied.
package taskobj
