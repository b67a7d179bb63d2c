package repository

import "errors"

// Sentinel kinds for board errors.
var (
	ErrNotFound     = errors.New("order not found")
	ErrInvalidOrder = errors.New("invalid order")
	ErrInvalidRole  = errors.New("invalid role")
)
