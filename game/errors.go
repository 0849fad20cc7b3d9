package game

import "errors"

// Admission errors returned by JoinAttempt. These are the only failures a
// client ever sees as such; protocol-invalid messages are dropped silently.
var (
	ErrSessionFull   = errors.New("match full")
	ErrInProgress    = errors.New("game is in progress")
	ErrAlreadyJoined = errors.New("already joined")
	ErrKicked        = errors.New("kicked")
	ErrShuttingDown  = errors.New("shutting down")
)
