package orderbook

import "github.com/joripage/matching-engine-lab/pkg/core"

// SellOrder is a resting sell order. Only Qty changes while it rests.
type SellOrder struct {
	ID        core.ID
	Price     core.Price
	Qty       core.AssetQty
	Timestamp core.Timestamp
}

// Key is the composite book key: cheapest first, then earliest, then lowest id.
type Key struct {
	Price     core.Price
	Timestamp core.Timestamp
	ID        core.ID
}

func (o SellOrder) Key() Key {
	return Key{Price: o.Price, Timestamp: o.Timestamp, ID: o.ID}
}

// Less orders keys by price, timestamp, then id.
func (k Key) Less(other Key) bool {
	return compareKeys(k, other) < 0
}

func compareKeys(a, b Key) int {
	switch {
	case a.Price != b.Price:
		if a.Price < b.Price {
			return -1
		}
		return 1
	case a.Timestamp != b.Timestamp:
		if a.Timestamp < b.Timestamp {
			return -1
		}
		return 1
	case a.ID != b.ID:
		if a.ID < b.ID {
			return -1
		}
		return 1
	}
	return 0
}
