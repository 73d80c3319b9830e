package conformance

import "errors"

var (
	ErrInvariant    = errors.New("stream invariant violated")
	ErrBookOrder    = errors.New("book invariant violated")
	ErrStreamLength = errors.New("event stream does not line up with commands")
)
