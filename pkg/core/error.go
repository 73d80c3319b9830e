package core

import "errors"

var (
	errEmptyLine      = errors.New("empty line")
	errNotObject      = errors.New("expected a JSON object with exactly one variant key")
	errUnknownVariant = errors.New("unknown variant")
)
