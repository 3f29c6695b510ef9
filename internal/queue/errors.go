package queue

import "errors"

// ErrNotFound indicates the requested job does not exist.
var ErrNotFound = errors.New("job not found")

// ErrInvalidTransition indicates a state change that violates the fixed
// pipeline order or targets a terminal job.
var ErrInvalidTransition = errors.New("invalid state transition")
