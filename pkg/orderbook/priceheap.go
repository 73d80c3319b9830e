package orderbook

import (
	"container/heap"
	"slices"

	"github.com/joripage/matching-engine-lab/pkg/core"
)

// PriceHeap implements heap.Interface over distinct price levels.
type PriceHeap struct {
	prices []core.Price
	less   func(i, j core.Price) bool
	index  map[core.Price]bool
}

func NewPriceHeap(less func(i, j core.Price) bool) *PriceHeap {
	return &PriceHeap{
		prices: []core.Price{},
		less:   less,
		index:  make(map[core.Price]bool),
	}
}

func (h PriceHeap) Len() int {
	return len(h.prices)
}

func (h PriceHeap) Less(i, j int) bool {
	return h.less(h.prices[i], h.prices[j])
}

func (h PriceHeap) Swap(i, j int) {
	h.prices[i], h.prices[j] = h.prices[j], h.prices[i]
}

func (h *PriceHeap) Push(x any) {
	price := x.(core.Price)
	if !h.index[price] {
		h.index[price] = true
		h.prices = append(h.prices, price)
	}
}

func (h *PriceHeap) Pop() any {
	n := len(h.prices)
	price := h.prices[n-1]
	h.prices = h.prices[:n-1]
	delete(h.index, price)
	return price
}

func (h *PriceHeap) Peek() (core.Price, bool) {
	if len(h.prices) == 0 {
		return 0, false
	}
	return h.prices[0], true
}

// Remove drops a price level wherever it sits in the heap.
func (h *PriceHeap) Remove(price core.Price) bool {
	if !h.index[price] {
		return false
	}
	for i, p := range h.prices {
		if p == price {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}

// Sorted returns the price levels in heap order without disturbing the heap.
func (h *PriceHeap) Sorted() []core.Price {
	out := slices.Clone(h.prices)
	slices.SortFunc(out, func(a, b core.Price) int {
		switch {
		case h.less(a, b):
			return -1
		case h.less(b, a):
			return 1
		}
		return 0
	})
	return out
}
