package workload

import "errors"

var (
	ErrUnknownProfile = errors.New("unknown profile")
	ErrInvalidCount   = errors.New("count must be >= 0")
)
