package cpu

import (
	"context"
	"fmt"
	"time"
)

type tracer interface {
	Snapshot() (map[int]int, error)
	Close() error
}

// newTracer allows tests to stub the eBPF collector.
var newTracer = func() (tracer, error) {
	c, err := NewCollector()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Trace records for window which CPU every task last ran on and returns the
// observations keyed by task id. The main thread's task id equals the PID.
func Trace(ctx context.Context, window time.Duration) (map[int]int, error) {
	t, err := newTracer()
	if err != nil {
		return nil, fmt.Errorf("starting cpu tracer: %w", err)
	}
	defer t.Close()

	if window > 0 {
		timer := time.NewTimer(window)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return t.Snapshot()
}
