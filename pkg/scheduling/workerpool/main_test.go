package workerpool

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package if a test leaves worker goroutines behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
