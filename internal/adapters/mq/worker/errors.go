package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrMissingOrder = errors.New("update carries no order id")
	ErrUnknownKind  = errors.New("unknown update kind")
)
