package orderbook

import (
	"fmt"
	"strconv"

	"github.com/joripage/matching-engine-lab/pkg/core"
)

var _ core.Engine = (*Engine)(nil)

type buyMode int

const (
	byQty buyMode = iota
	byBudget
)

// Engine is the sell-side matching engine. It owns one Book and the id
// index; neither is ever handed out.
type Engine struct {
	name    string
	newBook func() Book

	book    Book
	idIndex map[core.ID]Key

	restingQty core.AssetQty
	commands   uint64
	trades     uint64
	rejected   uint64
}

func newEngine(name string, newBook func() Book) *Engine {
	return &Engine{
		name:    name,
		newBook: newBook,
		book:    newBook(),
		idIndex: make(map[core.ID]Key),
	}
}

// Name is the backend identifier reported in Stats.
func (e *Engine) Name() string {
	return e.name
}

func (e *Engine) Submit(cmd core.Command) []core.Event {
	e.commands++

	var events []core.Event
	switch c := cmd.(type) {
	case core.PlaceSell:
		events = e.placeSell(c)
	case core.CancelSell:
		events = e.cancelSell(c)
	case core.BuyByQty:
		events = e.buyByQty(c)
	case core.BuyByBudget:
		events = e.buyByBudget(c)
	default:
		events = core.Reject("unknown command")
	}

	if len(events) == 1 {
		if _, ok := events[0].(core.Rejected); ok {
			e.rejected++
		}
	}
	return events
}

func (e *Engine) placeSell(cmd core.PlaceSell) []core.Event {
	if cmd.Price < 0 || cmd.Qty <= 0 {
		return core.Reject("price must be >= 0, qty must be > 0")
	}
	if _, exists := e.idIndex[cmd.ID]; exists {
		return core.Reject(fmt.Sprintf("duplicate id %d", cmd.ID))
	}

	order := SellOrder{
		ID:        cmd.ID,
		Price:     cmd.Price,
		Qty:       cmd.Qty,
		Timestamp: cmd.Timestamp,
	}
	e.book.Insert(order)
	e.idIndex[cmd.ID] = order.Key()
	e.restingQty += order.Qty
	return []core.Event{core.Accepted{}}
}

func (e *Engine) cancelSell(cmd core.CancelSell) []core.Event {
	key, exists := e.idIndex[cmd.ID]
	if !exists {
		return core.Reject(fmt.Sprintf("sell %d not found", cmd.ID))
	}

	delete(e.idIndex, cmd.ID)
	if order, ok := e.book.Delete(key); ok {
		e.restingQty -= order.Qty
	}
	return []core.Event{core.SellClosed{}}
}

func (e *Engine) buyByQty(cmd core.BuyByQty) []core.Event {
	if cmd.Qty <= 0 {
		return core.Reject("qty must be > 0")
	}
	return e.matchOrders(cmd.ID, byQty, cmd.Qty)
}

func (e *Engine) buyByBudget(cmd core.BuyByBudget) []core.Event {
	if cmd.Budget <= 0 {
		return core.Reject("budget must be > 0")
	}
	return e.matchOrders(cmd.ID, byBudget, cmd.Budget)
}

// matchOrders walks the head of the book only. It stops when the target
// is spent, the book is empty, or the budget cannot buy one unit of the
// cheapest order.
func (e *Engine) matchOrders(buyerID core.ID, mode buyMode, target int64) []core.Event {
	events := make([]core.Event, 0, 4)
	var filled core.AssetQty
	var spent core.Money
	remaining := target

	for remaining > 0 {
		best, ok := e.book.Min()
		if !ok {
			break
		}

		fillQty := matchQty(mode, remaining, best)
		if fillQty <= 0 {
			break
		}

		cost := fillQty * best.Price
		events = append(events, core.Trade{
			BuyerID:  buyerID,
			SellerID: best.ID,
			Qty:      fillQty,
			Price:    best.Price,
		})
		e.trades++

		filled += fillQty
		spent += cost
		e.restingQty -= fillQty
		if mode == byQty {
			remaining -= fillQty
		} else {
			remaining -= cost
		}

		if left := best.Qty - fillQty; left == 0 {
			e.book.Delete(best.Key())
			delete(e.idIndex, best.ID)
			events = append(events, core.SellClosed{})
		} else {
			e.book.SetQty(best.Key(), left)
			events = append(events, core.SellUpdated{})
		}
	}

	if mode == byQty {
		return append(events, core.BuyResultQty{Filled: filled})
	}
	return append(events, core.BuyResultBudget{Spent: spent, Filled: filled})
}

// matchQty is the fill for one step. A zero-priced order is affordable
// by any positive budget and fills completely.
func matchQty(mode buyMode, remaining int64, best SellOrder) core.AssetQty {
	if mode == byQty {
		return min(remaining, best.Qty)
	}
	if best.Price == 0 {
		return best.Qty
	}
	return min(remaining/best.Price, best.Qty)
}

func (e *Engine) Reset() {
	e.book.Clear()
	e.idIndex = make(map[core.ID]Key)
	e.restingQty = 0
	e.commands = 0
	e.trades = 0
	e.rejected = 0
}

func (e *Engine) Snapshot() ([]byte, error) {
	return encodeSnapshot(e.Orders()), nil
}

// LoadSnapshot rebuilds the book and index from scratch. Nothing is
// swapped in until the whole snapshot has been validated.
func (e *Engine) LoadSnapshot(data []byte) error {
	orders, err := decodeSnapshot(data)
	if err != nil {
		return err
	}

	book := e.newBook()
	index := make(map[core.ID]Key, len(orders))
	var resting core.AssetQty
	for _, o := range orders {
		if o.Price < 0 || o.Qty <= 0 {
			return fmt.Errorf("%w: order %d has price %d qty %d", ErrCorruptSnapshot, o.ID, o.Price, o.Qty)
		}
		if _, dup := index[o.ID]; dup {
			return fmt.Errorf("%w: duplicate id %d", ErrCorruptSnapshot, o.ID)
		}
		book.Insert(o)
		index[o.ID] = o.Key()
		resting += o.Qty
	}

	e.book = book
	e.idIndex = index
	e.restingQty = resting
	return nil
}

func (e *Engine) Stats() map[string]string {
	best := "-"
	if o, ok := e.book.Min(); ok {
		best = strconv.FormatInt(o.Price, 10)
	}

	return map[string]string{
		"engine":      e.name,
		"book_size":   strconv.Itoa(e.book.Len()),
		"resting_qty": strconv.FormatInt(e.restingQty, 10),
		"best_price":  best,
		"commands":    strconv.FormatUint(e.commands, 10),
		"trades":      strconv.FormatUint(e.trades, 10),
		"rejected":    strconv.FormatUint(e.rejected, 10),
	}
}

// Orders returns a copy of the resting orders in book order.
func (e *Engine) Orders() []SellOrder {
	out := make([]SellOrder, 0, e.book.Len())
	e.book.Ascend(func(o SellOrder) bool {
		out = append(out, o)
		return true
	})
	return out
}

// Verify checks the sort invariant and that the id index names exactly
// the resting orders.
func (e *Engine) Verify() error {
	orders := e.Orders()
	if len(orders) != len(e.idIndex) || len(orders) != e.book.Len() {
		return fmt.Errorf("%w: book has %d orders, index has %d", errIndexMismatch, len(orders), len(e.idIndex))
	}

	var resting core.AssetQty
	for i, o := range orders {
		if i > 0 && !orders[i-1].Key().Less(o.Key()) {
			return fmt.Errorf("%w: %+v before %+v", errBookUnordered, orders[i-1], o)
		}
		if key, ok := e.idIndex[o.ID]; !ok || key != o.Key() {
			return fmt.Errorf("%w: order %d", errIndexMismatch, o.ID)
		}
		resting += o.Qty
	}
	if resting != e.restingQty {
		return fmt.Errorf("%w: resting qty %d, tracked %d", errIndexMismatch, resting, e.restingQty)
	}
	return nil
}
