package orderbook

import (
	"math/rand"

	"github.com/huandu/skiplist"

	"github.com/joripage/matching-engine-lab/pkg/core"
)

const skipListSeed = 0x5eed

// keyOrder sorts skip list elements by Key. The price doubles as the
// score, so elements at different prices are told apart without a call
// into Compare.
type keyOrder struct{}

var _ skiplist.Comparable = keyOrder{}

func (keyOrder) Compare(lhs, rhs interface{}) int {
	return compareKeys(lhs.(Key), rhs.(Key))
}

func (keyOrder) CalcScore(key interface{}) float64 {
	return float64(key.(Key).Price)
}

// skipListBook is a skip list ordered by Key with the SellOrder as value.
// Levels come from a fixed seed so two runs over the same input build
// the same shape.
type skipListBook struct {
	list *skiplist.SkipList
}

func newSkipListBook() Book {
	b := &skipListBook{list: skiplist.New(keyOrder{})}
	b.Clear()
	return b
}

func (b *skipListBook) Insert(o SellOrder) {
	b.list.Set(o.Key(), o)
}

func (b *skipListBook) Min() (SellOrder, bool) {
	front := b.list.Front()
	if front == nil {
		return SellOrder{}, false
	}
	return front.Value.(SellOrder), true
}

func (b *skipListBook) Delete(k Key) (SellOrder, bool) {
	elem := b.list.Remove(k)
	if elem == nil {
		return SellOrder{}, false
	}
	return elem.Value.(SellOrder), true
}

func (b *skipListBook) SetQty(k Key, qty core.AssetQty) bool {
	elem := b.list.Get(k)
	if elem == nil {
		return false
	}
	o := elem.Value.(SellOrder)
	o.Qty = qty
	elem.Value = o
	return true
}

func (b *skipListBook) Len() int {
	return b.list.Len()
}

func (b *skipListBook) Ascend(fn func(o SellOrder) bool) {
	for elem := b.list.Front(); elem != nil; elem = elem.Next() {
		if !fn(elem.Value.(SellOrder)) {
			return
		}
	}
}

func (b *skipListBook) Clear() {
	b.list.Init()
	b.list.SetRandSource(rand.NewSource(skipListSeed))
}
