package board

import "errors"

// ErrInvalidView is returned when a ranking request cannot be served.
var ErrInvalidView = errors.New("invalid queue view")
