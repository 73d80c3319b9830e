package conformance

import (
	"fmt"

	"github.com/joripage/matching-engine-lab/pkg/core"
)

// streamModel tracks what the event stream says is resting, so the
// stream can be checked without looking inside an engine.
type streamModel struct {
	resting map[core.ID]core.AssetQty
}

// VerifyStream checks events[i] as the response to cmds[i]:
//   - a rejection is exactly one event
//   - every Trade is followed by exactly one SellUpdated or SellClosed
//   - trades take the cheapest resting price first and never oversell
//   - a buy ends with one summary whose totals equal its trades
//   - a qty buy fills at most what was asked, a budget buy spends at most its budget
func VerifyStream(cmds []core.Command, events [][]core.Event) error {
	if len(cmds) != len(events) {
		return fmt.Errorf("%w: %d commands, %d responses", ErrStreamLength, len(cmds), len(events))
	}

	m := &streamModel{resting: make(map[core.ID]core.AssetQty)}
	for i, cmd := range cmds {
		if err := m.apply(cmd, events[i]); err != nil {
			return fmt.Errorf("command %d (%s): %w", i, cmd.Kind(), err)
		}
	}
	return nil
}

func (m *streamModel) apply(cmd core.Command, evs []core.Event) error {
	if len(evs) == 0 {
		return fmt.Errorf("%w: no events", ErrInvariant)
	}
	if _, ok := evs[0].(core.Rejected); ok {
		if len(evs) != 1 {
			return fmt.Errorf("%w: rejection followed by %d events", ErrInvariant, len(evs)-1)
		}
		return nil
	}

	switch c := cmd.(type) {
	case core.PlaceSell:
		if len(evs) != 1 || evs[0] != (core.Accepted{}) {
			return fmt.Errorf("%w: expected [Accepted], got %+v", ErrInvariant, evs)
		}
		if _, dup := m.resting[c.ID]; dup {
			return fmt.Errorf("%w: id %d accepted while resting", ErrInvariant, c.ID)
		}
		m.resting[c.ID] = c.Qty
	case core.CancelSell:
		if len(evs) != 1 || evs[0] != (core.SellClosed{}) {
			return fmt.Errorf("%w: expected [SellClosed], got %+v", ErrInvariant, evs)
		}
		if _, ok := m.resting[c.ID]; !ok {
			return fmt.Errorf("%w: cancelled id %d was not resting", ErrInvariant, c.ID)
		}
		delete(m.resting, c.ID)
	case core.BuyByQty:
		filled, _, err := m.applyBuy(c.ID, evs)
		if err != nil {
			return err
		}
		summary, ok := evs[len(evs)-1].(core.BuyResultQty)
		if !ok {
			return fmt.Errorf("%w: missing BuyResultQty, got %+v", ErrInvariant, evs[len(evs)-1])
		}
		if summary.Filled != filled || filled > c.Qty {
			return fmt.Errorf("%w: filled %d, trades %d, requested %d", ErrInvariant, summary.Filled, filled, c.Qty)
		}
	case core.BuyByBudget:
		filled, spent, err := m.applyBuy(c.ID, evs)
		if err != nil {
			return err
		}
		summary, ok := evs[len(evs)-1].(core.BuyResultBudget)
		if !ok {
			return fmt.Errorf("%w: missing BuyResultBudget, got %+v", ErrInvariant, evs[len(evs)-1])
		}
		if summary.Filled != filled || summary.Spent != spent || spent > c.Budget {
			return fmt.Errorf("%w: summary %+v, trades filled %d spent %d, budget %d", ErrInvariant, summary, filled, spent, c.Budget)
		}
	default:
		return fmt.Errorf("%w: unknown command accepted", ErrInvariant)
	}
	return nil
}

// applyBuy walks the (Trade, SellUpdated|SellClosed)* prefix of a buy.
func (m *streamModel) applyBuy(buyer core.ID, evs []core.Event) (core.AssetQty, core.Money, error) {
	var filled core.AssetQty
	var spent core.Money
	lastPrice := core.Price(-1)

	body := evs[:len(evs)-1]
	for i := 0; i < len(body); i += 2 {
		trade, ok := body[i].(core.Trade)
		if !ok {
			return 0, 0, fmt.Errorf("%w: expected Trade at %d, got %+v", ErrInvariant, i, body[i])
		}
		if i+1 >= len(body) {
			return 0, 0, fmt.Errorf("%w: trade with seller %d has no follow-up", ErrInvariant, trade.SellerID)
		}
		if trade.BuyerID != buyer || trade.Qty <= 0 || trade.Price < 0 {
			return 0, 0, fmt.Errorf("%w: bad trade %+v", ErrInvariant, trade)
		}
		if trade.Price < lastPrice {
			return 0, 0, fmt.Errorf("%w: price went from %d down to %d", ErrInvariant, lastPrice, trade.Price)
		}
		lastPrice = trade.Price

		left, ok := m.resting[trade.SellerID]
		if !ok || trade.Qty > left {
			return 0, 0, fmt.Errorf("%w: trade %+v against %d resting", ErrInvariant, trade, left)
		}
		left -= trade.Qty

		switch body[i+1].(type) {
		case core.SellClosed:
			if left != 0 {
				return 0, 0, fmt.Errorf("%w: seller %d closed with %d left", ErrInvariant, trade.SellerID, left)
			}
			delete(m.resting, trade.SellerID)
		case core.SellUpdated:
			if left == 0 {
				return 0, 0, fmt.Errorf("%w: seller %d updated to zero", ErrInvariant, trade.SellerID)
			}
			m.resting[trade.SellerID] = left
		default:
			return 0, 0, fmt.Errorf("%w: trade followed by %+v", ErrInvariant, body[i+1])
		}

		filled += trade.Qty
		spent += trade.Qty * trade.Price
	}
	return filled, spent, nil
}
