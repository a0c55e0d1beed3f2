package distributed

import (
	"crypto/rand"
	"fmt"
	"math"
	"os"
	"time"
)

// generateInstanceID creates a unique identifier for this application instance.
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	pid := os.Getpid()

	// Add random bytes for uniqueness
	randomBytes := make([]byte, 4)
	_, _ = rand.Read(randomBytes)

	return fmt.Sprintf("%s-%d-%x", hostname, pid, randomBytes)
}

type redisKeys struct {
	state     string
	stats     string
	instances string
}

func keysFor(prefix string) redisKeys {
	return redisKeys{
		state:     prefix + ":state",
		stats:     prefix + ":stats",
		instances: prefix + ":instances",
	}
}

// floatToTime converts float64 seconds back to time.Time.
func floatToTime(f float64) time.Time {
	if f <= 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(f*1e9))
}

// secondsToDuration converts fractional seconds to a duration, rounding up
// and saturating at the longest representable duration.
func secondsToDuration(s float64) time.Duration {
	ns := math.Ceil(s * float64(time.Second))
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
