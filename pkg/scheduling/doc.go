/*
Package scheduling provides task execution primitives.

  - workerpool: fixed worker pool with a bounded queue
  - scheduler: named cron and interval jobs run on a worker pool

Worker Pool:

	pool, _ := workerpool.New(4, 100) // 4 workers, queue size 100
	defer func() { <-pool.Shutdown() }()

	err := pool.Submit(ctx, workerpool.TaskFunc(func(ctx context.Context) error {
		return nil
	}))

Scheduler:

	s, _ := scheduler.New(scheduler.Config{Logger: logger})
	_ = s.Add("report", "0,30 * * * * *", decorate.Action(sendReport))
	_ = s.AddEvery("poll", 5*time.Second, decorate.Action(poll))

	s.Start()
	defer s.Stop(ctx)

A job that is still running when it comes due again is skipped for that
occurrence. Jobs are plain decorate.Func values, so pacing and retry are
composed before they are added.
*/
package scheduling
