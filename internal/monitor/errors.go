package monitor

import "errors"

// ErrAlreadyRunning is returned by Launch when the monitor is not OFF.
var ErrAlreadyRunning = errors.New("monitor already running")

// ErrNotRunning is returned by Shutdown when the monitor is already OFF.
var ErrNotRunning = errors.New("monitor not running")

// ErrPredicateEvaluation is the sentinel wrapped by every predicate
// evaluation failure surfaced to a diagnostic sink. It is never returned
// from OnMessage: a predicate that fails to evaluate is treated as false
// and the descriptor is skipped, matching the manager's non-fatal policy.
var ErrPredicateEvaluation = errors.New("predicate evaluation failed")
