/*
Package workerpool runs tasks on a fixed number of goroutines.

The scheduler uses a pool so that a slow job never holds up the tick loop,
and so that the number of jobs running at once stays bounded.

Basic usage:

	pool, err := workerpool.New(4, 16) // 4 workers, 16 queued tasks
	if err != nil {
		return err
	}
	defer func() { <-pool.Shutdown() }()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		return send(ctx, msg)
	})

	if err := pool.Submit(ctx, task); err != nil {
		log.Printf("submit: %v", err)
	}

Submit blocks until the task is queued or its context is done. TrySubmit
never blocks; it fails when every worker is busy and the queue is full.

Results are delivered through Config.OnTaskComplete, called on the worker
goroutine after each task. A panicking task is recovered and reported as an
error carrying the stack trace.

Shutdown stops accepting tasks, lets queued tasks finish, and closes the
returned channel when the last worker exits. TaskTimeout bounds each
execution through the task's context.
*/
package workerpool
