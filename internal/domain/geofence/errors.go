package geofence

import "errors"

// Sentinel kinds for geofence errors.
var (
	ErrInvalidInput = errors.New("invalid input")
)
