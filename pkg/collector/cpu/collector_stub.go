//go:build !linux
// +build !linux

package cpu

import (
	"fmt"

	"github.com/srodi/ures/pkg/ures"
)

var errUnsupported = fmt.Errorf("cpu tracer requires linux: %w", ures.ErrUnsupportedPlatform)

// Collector is a placeholder on non-Linux platforms.
type Collector struct{}

// NewCollector returns an error because eBPF is only supported on Linux.
func NewCollector() (*Collector, error) {
	return nil, errUnsupported
}

// Snapshot always fails on unsupported platforms.
func (c *Collector) Snapshot() (map[int]int, error) {
	return nil, errUnsupported
}

// Close is a no-op stub.
func (c *Collector) Close() error {
	return nil
}
