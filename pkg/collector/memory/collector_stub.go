//go:build !linux
// +build !linux

package memory

import (
	"context"
	"fmt"

	"github.com/srodi/ures/pkg/types"
	"github.com/srodi/ures/pkg/ures"
)

var errUnsupported = fmt.Errorf("mapping reader requires linux: %w", ures.ErrUnsupportedPlatform)

// Reader is a placeholder on non-Linux platforms.
type Reader struct{}

// NewReader returns an error because /proc mappings are only available on Linux.
func NewReader(root string) (*Reader, error) {
	return nil, errUnsupported
}

// ListLiveProcesses always fails on unsupported platforms.
func (r *Reader) ListLiveProcesses(ctx context.Context) ([]types.Process, error) {
	return nil, errUnsupported
}

// ReadMappings always fails on unsupported platforms.
func (r *Reader) ReadMappings(ctx context.Context, pid int) ([]types.MappingRecord, error) {
	return nil, errUnsupported
}
