// Package conformance checks that engine backends are observably
// identical to the reference and that their output obeys the matching
// invariants.
package conformance

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/joripage/matching-engine-lab/pkg/core"
	"github.com/joripage/matching-engine-lab/pkg/orderbook"
)

// Mismatch is the first command on which two engines disagree.
type Mismatch struct {
	Index   int
	Command core.Command
	Want    []core.Event
	Got     []core.Event
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("command %d (%s %+v): expected %+v, got %+v", m.Index, m.Command.Kind(), m.Command, m.Want, m.Got)
}

func Replay(eng core.Engine, cmds []core.Command) [][]core.Event {
	out := make([][]core.Event, len(cmds))
	for i, cmd := range cmds {
		out[i] = eng.Submit(cmd)
	}
	return out
}

// Diff feeds cmds to both engines in lockstep and stops at the first
// command whose events differ.
func Diff(ref, cand core.Engine, cmds []core.Command) *Mismatch {
	for i, cmd := range cmds {
		want := ref.Submit(cmd)
		got := cand.Submit(cmd)
		if !reflect.DeepEqual(want, got) {
			return &Mismatch{Index: i, Command: cmd, Want: want, Got: got}
		}
	}
	return nil
}

// Report is the outcome of checking one backend against the reference.
type Report struct {
	Engine   string
	Mismatch *Mismatch
	Err      error
}

func (r Report) OK() bool {
	return r.Mismatch == nil && r.Err == nil
}

// CheckBackends replays cmds on the reference and on every named backend.
// Besides the event streams it compares final snapshots byte for byte,
// checks each book and verifies the reference stream.
func CheckBackends(cmds []core.Command, names ...string) ([]Report, error) {
	refEvents := Replay(orderbook.Reference(), cmds)
	if err := VerifyStream(cmds, refEvents); err != nil {
		return nil, fmt.Errorf("reference stream: %w", err)
	}

	reports := make([]Report, 0, len(names))
	for _, name := range names {
		ref := orderbook.Reference()
		cand, err := orderbook.NewEngine(name)
		if err != nil {
			return nil, err
		}

		report := Report{Engine: cand.Name()}
		report.Mismatch = Diff(ref, cand, cmds)
		if report.Mismatch == nil {
			report.Err = compareBooks(ref, cand)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func compareBooks(ref, cand *orderbook.Engine) error {
	if err := CheckBook(cand.Orders()); err != nil {
		return err
	}
	if err := cand.Verify(); err != nil {
		return fmt.Errorf("%w: %v", ErrBookOrder, err)
	}

	want, err := ref.Snapshot()
	if err != nil {
		return err
	}
	got, err := cand.Snapshot()
	if err != nil {
		return err
	}
	if !bytes.Equal(want, got) {
		return fmt.Errorf("%w: final snapshot differs from reference", ErrBookOrder)
	}
	return nil
}

// CheckBook verifies strict (price, timestamp, id) order, unique ids and
// positive quantities over a read-only copy of a book.
func CheckBook(orders []orderbook.SellOrder) error {
	seen := make(map[core.ID]struct{}, len(orders))
	for i, o := range orders {
		if o.Qty <= 0 || o.Price < 0 {
			return fmt.Errorf("%w: order %d rests with price %d qty %d", ErrBookOrder, o.ID, o.Price, o.Qty)
		}
		if _, dup := seen[o.ID]; dup {
			return fmt.Errorf("%w: id %d rests twice", ErrBookOrder, o.ID)
		}
		seen[o.ID] = struct{}{}

		if i > 0 && !orders[i-1].Key().Less(o.Key()) {
			return fmt.Errorf("%w: %+v sorts after %+v", ErrBookOrder, orders[i-1], o)
		}
	}
	return nil
}
