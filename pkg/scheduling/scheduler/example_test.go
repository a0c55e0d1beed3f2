package scheduler_test

import (
	"context"
	"fmt"
	"time"

	"github.com/vnykmshr/pace/pkg/decorate"
	"github.com/vnykmshr/pace/pkg/ratelimit/bucket"
	"github.com/vnykmshr/pace/pkg/scheduling/scheduler"
)

func Example() {
	s, err := scheduler.New(scheduler.Config{TickInterval: 10 * time.Millisecond})
	if err != nil {
		fmt.Println(err)
		return
	}

	limiter, _ := bucket.New(100)
	ran := make(chan struct{}, 1)

	job := decorate.Chain(
		decorate.Action(func(context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		}),
		decorate.WithRateLimit[struct{}](limiter),
	)

	_ = s.AddEvery("ping", 20*time.Millisecond, job)
	_ = s.Start()

	<-ran
	_ = s.Stop(context.Background())

	fmt.Println(s.Entries()[0].Name, "ran")
	// Output: ping ran
}
