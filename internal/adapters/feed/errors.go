package feed

import "errors"

// Sentinel kinds for feed errors.
var (
	ErrGaveUp         = errors.New("feed gave up reconnecting")
	ErrUnknownMessage = errors.New("unknown feed message type")
	ErrMalformed      = errors.New("malformed feed message")

	errShortSession = errors.New("connection dropped before it was stable")
)
