package orderbook

import "errors"

var (
	ErrUnknownEngine   = errors.New("unknown engine")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")

	errIndexMismatch = errors.New("id index out of sync with book")
	errBookUnordered = errors.New("book not ordered by (price, timestamp, id)")
)
