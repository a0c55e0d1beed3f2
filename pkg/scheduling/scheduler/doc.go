/*
Package scheduler runs named jobs on cron schedules or fixed intervals.

Jobs are decorate.Func[struct{}] values, so the policies around a job are
composed where it is defined rather than configured on the scheduler:

	s, _ := scheduler.New(scheduler.Config{Logger: logger, Metrics: reg})

	job := decorate.Chain(decorate.Action(refreshCache),
		decorate.WithLogging[struct{}](logger, "refresh"),
		decorate.Retry[struct{}](decorate.RetryPolicy{Attempts: 3, Delay: time.Second}),
		decorate.WithRateLimit[struct{}](limiter),
	)

	_ = s.Add("refresh", "0,30 * * * * *", job) // every 30 seconds
	_ = s.AddEvery("heartbeat", 5*time.Second, decorate.Action(ping))

	_ = s.Start()
	defer s.Stop(ctx)

Cron expressions take five fields, or six with a leading seconds field, and
the descriptors @yearly, @monthly, @weekly, @daily, @hourly and @every.

A tick loop checks for due jobs every TickInterval and hands them to a
workerpool. A job that is still running when it comes due again is skipped,
as is a run for which no worker is free; both count as "skipped" in the
job_runs_total metric.
*/
package scheduler
