package service

import "errors"

var (
	// ErrNotStarted is returned by operations that need running components.
	ErrNotStarted = errors.New("service not started")
	// ErrQueueFull is returned when a push update cannot be queued.
	ErrQueueFull = errors.New("update queue full")
	// ErrNoSource is returned by Refresh when no backend is configured.
	ErrNoSource = errors.New("no backend configured")
)
