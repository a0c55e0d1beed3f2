package bucket

import (
	"context"
	"fmt"
	"log"
)

// Example_burst shows a full bucket granting capacity permits at once.
func Example_burst() {
	limiter, err := New(3) // 3 calls per second, burst of 3
	if err != nil {
		log.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		fmt.Printf("call %d allowed: %v\n", i+1, limiter.TryAcquire())
	}

	// Output:
	// call 1 allowed: true
	// call 2 allowed: true
	// call 3 allowed: true
	// call 4 allowed: false
}

// ExampleDo paces a function call.
func ExampleDo() {
	limiter, err := New(10)
	if err != nil {
		log.Fatal(err)
	}

	greeting, err := Do(context.Background(), limiter, func(ctx context.Context) (string, error) {
		return "hello", nil
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(greeting)

	// Output:
	// hello
}
