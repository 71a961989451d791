package model

import "errors"

var (
	// ErrCallNotFound indicates the requested call record does not exist.
	ErrCallNotFound = errors.New("call not found")

	// ErrTerminalNotRunning indicates an operation that requires a live shell
	// was attempted while the terminal was idle.
	ErrTerminalNotRunning = errors.New("terminal is not running")

	// ErrUnknownAction indicates a browser action outside the supported set.
	ErrUnknownAction = errors.New("unknown browser action")
)
