package runner

import "errors"

// Sentinel errors for the runner package.
var (
	// ErrMaxFailures is returned when the max failure limit is reached.
	ErrMaxFailures = errors.New("runner: max failures reached")

	// ErrRunFailed is returned when elm-test exits with an error before
	// reporting any result, typically a compile error.
	ErrRunFailed = errors.New("runner: elm-test failed")

	// ErrNoFiles is returned when a selection maps to no test files.
	ErrNoFiles = errors.New("runner: no test files selected")

	// ErrNoTranscript is returned when no previous run was recorded.
	ErrNoTranscript = errors.New("runner: no recorded run")

	// Test errors for use in unit tests.
	errTestStop = errors.New("test: stop")
)
