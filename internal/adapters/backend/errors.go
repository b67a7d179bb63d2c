package backend

import "errors"

// Sentinel kinds for backend errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected backend status")
	ErrRejected         = errors.New("backend reported failure")
	ErrDecode           = errors.New("decode backend payload")
)
