package concurrency_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/vnykmshr/pace/pkg/ratelimit/concurrency"
)

func Example() {
	limiter, err := concurrency.New(2)
	if err != nil {
		fmt.Println(err)
		return
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background()); err != nil {
				return
			}
			defer limiter.Release()
			// At most two goroutines are here at once.
		}()
	}
	wg.Wait()

	fmt.Println("in use:", limiter.InUse(), "available:", limiter.Available())
	// Output: in use: 0 available: 2
}
