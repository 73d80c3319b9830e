package snapshot

import "errors"

var (
	ErrNotFound     = errors.New("snapshot not found")
	ErrInvalidName  = errors.New("invalid snapshot name")
	ErrUnknownStore = errors.New("unknown snapshot store")
)
