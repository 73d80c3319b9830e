package orderbook

import "github.com/joripage/matching-engine-lab/pkg/core"

// Book is an ordered container of resting sell orders keyed by Key.
// Each backend supplies one; the matching rules live in Engine and are
// shared, so backends differ only in representation.
type Book interface {
	Insert(o SellOrder)
	// Min returns the cheapest, earliest order without removing it.
	Min() (SellOrder, bool)
	Delete(k Key) (SellOrder, bool)
	// SetQty changes the quantity of a resting order in place. The key
	// is unchanged, so ordering is preserved.
	SetQty(k Key, qty core.AssetQty) bool
	Len() int
	// Ascend visits orders in key order until fn returns false.
	Ascend(fn func(o SellOrder) bool)
	Clear()
}
