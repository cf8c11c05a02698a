package services

import "errors"

var (
	// ErrNoInputFiles is returned when a batch directory holds no plate files.
	ErrNoInputFiles = errors.New("no plate files found")
	// ErrBatchFailed is returned when at least one file of a batch failed.
	ErrBatchFailed = errors.New("one or more analyses failed")
	// ErrDuplicateOutput is returned for batch inputs that would overwrite
	// each other's results.
	ErrDuplicateOutput = errors.New("several inputs share one output path")
)
