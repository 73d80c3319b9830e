package orderbook

import (
	"github.com/google/btree"

	"github.com/joripage/matching-engine-lab/pkg/core"
)

const btreeDegree = 32

// btreeBook keeps orders in a B-tree ordered by Key. Qty takes no part
// in ordering, so a probe built from a Key finds the stored order.
type btreeBook struct {
	tree *btree.BTreeG[SellOrder]
}

func newBTreeBook() Book {
	return &btreeBook{
		tree: btree.NewG[SellOrder](btreeDegree, func(a, b SellOrder) bool {
			return a.Key().Less(b.Key())
		}),
	}
}

func probe(k Key) SellOrder {
	return SellOrder{ID: k.ID, Price: k.Price, Timestamp: k.Timestamp}
}

func (b *btreeBook) Insert(o SellOrder) {
	b.tree.ReplaceOrInsert(o)
}

func (b *btreeBook) Min() (SellOrder, bool) {
	return b.tree.Min()
}

func (b *btreeBook) Delete(k Key) (SellOrder, bool) {
	return b.tree.Delete(probe(k))
}

func (b *btreeBook) SetQty(k Key, qty core.AssetQty) bool {
	o, ok := b.tree.Get(probe(k))
	if !ok {
		return false
	}
	o.Qty = qty
	b.tree.ReplaceOrInsert(o)
	return true
}

func (b *btreeBook) Len() int {
	return b.tree.Len()
}

func (b *btreeBook) Ascend(fn func(o SellOrder) bool) {
	b.tree.Ascend(fn)
}

func (b *btreeBook) Clear() {
	b.tree.Clear(true)
}
