package orderbook

import (
	"container/heap"

	"github.com/gammazero/deque"

	"github.com/joripage/matching-engine-lab/pkg/core"
)

type handle int32

const noHandle handle = -1

type arenaSlot struct {
	order    SellOrder
	nextFree handle
}

// arenaBook stores orders in one slice and recycles slots through a free
// list. Price levels sit in a min PriceHeap and every level is a deque of
// slot handles kept sorted by (timestamp, id).
type arenaBook struct {
	slots []arenaSlot
	free  handle

	levels map[core.Price]*deque.Deque[handle]
	prices *PriceHeap
	byKey  map[Key]handle
}

func newArenaBook() Book {
	b := &arenaBook{}
	b.Clear()
	return b
}

func (b *arenaBook) alloc(o SellOrder) handle {
	if b.free != noHandle {
		h := b.free
		b.free = b.slots[h].nextFree
		b.slots[h] = arenaSlot{order: o, nextFree: noHandle}
		return h
	}
	b.slots = append(b.slots, arenaSlot{order: o, nextFree: noHandle})
	return handle(len(b.slots) - 1)
}

func (b *arenaBook) release(h handle) {
	b.slots[h] = arenaSlot{nextFree: b.free}
	b.free = h
}

// position is the first index in level whose order does not sort before k.
func (b *arenaBook) position(level *deque.Deque[handle], k Key) int {
	lo, hi := 0, level.Len()
	if hi > 0 && b.slots[level.Back()].order.Key().Less(k) {
		return hi
	}
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if b.slots[level.At(mid)].order.Key().Less(k) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (b *arenaBook) Insert(o SellOrder) {
	k := o.Key()
	if h, ok := b.byKey[k]; ok {
		b.slots[h].order = o
		return
	}

	level := b.levels[o.Price]
	if level == nil {
		level = &deque.Deque[handle]{}
		b.levels[o.Price] = level
		heap.Push(b.prices, o.Price)
	}

	h := b.alloc(o)
	if pos := b.position(level, k); pos == level.Len() {
		level.PushBack(h)
	} else {
		level.Insert(pos, h)
	}
	b.byKey[k] = h
}

func (b *arenaBook) Min() (SellOrder, bool) {
	price, ok := b.prices.Peek()
	if !ok {
		return SellOrder{}, false
	}
	return b.slots[b.levels[price].Front()].order, true
}

func (b *arenaBook) Delete(k Key) (SellOrder, bool) {
	h, ok := b.byKey[k]
	if !ok {
		return SellOrder{}, false
	}
	order := b.slots[h].order

	level := b.levels[k.Price]
	if level.Front() == h {
		level.PopFront()
	} else {
		level.Remove(b.position(level, k))
	}
	if level.Len() == 0 {
		delete(b.levels, k.Price)
		b.prices.Remove(k.Price)
	}

	delete(b.byKey, k)
	b.release(h)
	return order, true
}

func (b *arenaBook) SetQty(k Key, qty core.AssetQty) bool {
	h, ok := b.byKey[k]
	if !ok {
		return false
	}
	b.slots[h].order.Qty = qty
	return true
}

func (b *arenaBook) Len() int {
	return len(b.byKey)
}

func (b *arenaBook) Ascend(fn func(o SellOrder) bool) {
	for _, price := range b.prices.Sorted() {
		level := b.levels[price]
		for i := 0; i < level.Len(); i++ {
			if !fn(b.slots[level.At(i)].order) {
				return
			}
		}
	}
}

func (b *arenaBook) Clear() {
	b.slots = b.slots[:0]
	b.free = noHandle
	b.levels = make(map[core.Price]*deque.Deque[handle])
	b.prices = NewPriceHeap(func(i, j core.Price) bool { return i < j }) // Min-heap
	b.byKey = make(map[Key]handle)
}
