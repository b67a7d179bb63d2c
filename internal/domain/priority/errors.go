package priority

import "errors"

// Sentinel kinds for priority errors.
var (
	ErrInvalidInput = errors.New("invalid input")
)
