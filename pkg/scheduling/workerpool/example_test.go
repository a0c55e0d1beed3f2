package workerpool_test

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/vnykmshr/pace/pkg/scheduling/workerpool"
)

func Example() {
	var failed atomic.Int32
	pool, err := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount: 3,
		QueueSize:   10,
		OnTaskComplete: func(r workerpool.Result) {
			if r.Error != nil {
				failed.Add(1)
			}
		},
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	for i := range 5 {
		_ = pool.Submit(context.Background(), workerpool.TaskFunc(func(context.Context) error {
			if i%2 == 0 {
				return fmt.Errorf("task %d failed", i)
			}
			return nil
		}))
	}

	<-pool.Shutdown()
	fmt.Println("completed:", pool.TotalCompleted(), "failed:", failed.Load())
	// Output: completed: 5 failed: 3
}
