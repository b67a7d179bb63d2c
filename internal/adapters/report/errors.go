package report

import "errors"

// ErrUnknownRole is returned when asked to export a queue that does not exist.
var ErrUnknownRole = errors.New("report: unknown role")
