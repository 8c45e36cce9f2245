package driver

import "errors"

var (
	// ErrNotRunning is returned when the pipelines are not (or no longer) running.
	ErrNotRunning = errors.New("driver: not running")
	// ErrInvalidInput rejects empty or oversized commands and invalid frames.
	ErrInvalidInput = errors.New("driver: invalid input")
	// ErrPoisonedState reports that the TX pipeline died abnormally while it
	// owned the mailbox.
	ErrPoisonedState = errors.New("driver: mailbox poisoned")
	// ErrQueueFull is returned by a non-blocking reliable send on a full queue.
	ErrQueueFull = errors.New("driver: reliable queue full")
	// ErrTimeout is returned when a blocking reliable send runs out of time.
	ErrTimeout = errors.New("driver: send timeout")
	// ErrPartialPackageSent is logged when a realtime package failed after some
	// of its frames reached the bus. It is never retried.
	ErrPartialPackageSent = errors.New("driver: partial package sent")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("driver: already started")
)
