package core

// Integer vocabulary shared by the protocol and every engine.
type (
	ID        = uint64
	Price     = int64
	AssetQty  = int64
	Money     = int64
	Timestamp = int64 // ordering token only, never validated against wall time
)
