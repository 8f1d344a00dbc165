package ures

import (
	"errors"
	"fmt"

	"github.com/srodi/ures/pkg/types"
)

var (
	// ErrInvalidRecord marks a mapping record with a missing required field.
	ErrInvalidRecord = errors.New("invalid mapping record")
	// ErrProcessVanished marks a process that exited between enumeration and mapping read.
	ErrProcessVanished = errors.New("process vanished")
	// ErrUnsupportedPlatform marks data the running platform cannot provide.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrNoData is returned when there is no process to report on.
	ErrNoData = errors.New("no process data")
)

// InvalidRecordError describes a single skipped mapping record.
type InvalidRecordError struct {
	PID    int
	Index  int
	Reason string
	Record types.MappingRecord
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("pid %d mapping %d (%s): %s", e.PID, e.Index, e.Record.Name, e.Reason)
}

func (e *InvalidRecordError) Unwrap() error {
	return ErrInvalidRecord
}
