package runner

// ErrTestStop is returned by handlers in runner_test to abort a run.
var ErrTestStop = errTestStop
