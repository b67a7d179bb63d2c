package config

import "errors"

var (
	// ErrInvalidConfig wraps the first setting Validate rejects.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrLoadConfig wraps file, env and decoding failures in Load.
	ErrLoadConfig = errors.New("loading configuration")
)
