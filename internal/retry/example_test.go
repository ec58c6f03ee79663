package retry_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/intel/gprofiler-go/internal/retry"
)

var errTransient = errors.New("transient error")

// Example demonstrates retrying a flaky call with exponential backoff,
// the way the upload client guards its HTTP POSTs.
func Example() {
	cfg := retry.Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Jitter:         0.1,
	}

	attempt := 0
	err := retry.Do(context.Background(), cfg, func() error {
		attempt++
		if attempt < 3 {
			return errTransient
		}
		return nil
	}, func(err error) bool {
		return errors.Is(err, errTransient)
	})

	if err != nil {
		fmt.Printf("failed: %v\n", err)
	} else {
		fmt.Printf("succeeded after %d attempts\n", attempt)
	}
	// Output: succeeded after 3 attempts
}

// Example_withTimeout shows the backoff wait respecting context
// cancellation, which is how a profiling cycle's deadline cuts a
// still-retrying upload short.
func Example_withTimeout() {
	cfg := retry.Config{
		MaxRetries:     5,
		InitialBackoff: 100 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := retry.Do(ctx, cfg, func() error {
		return errors.New("always fails")
	}, nil)

	if errors.Is(err, context.DeadlineExceeded) {
		fmt.Println("gave up at the deadline")
	}
	// Output: gave up at the deadline
}
