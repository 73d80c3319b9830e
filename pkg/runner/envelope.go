package runner

import (
	"encoding/json"
	"fmt"

	"github.com/joripage/matching-engine-lab/pkg/core"
)

// Envelope carries the events of one input line to an event sink.
type Envelope struct {
	RunID  string
	Seq    uint64
	Engine string
	Events []core.Event
}

type envelopeJSON struct {
	RunID  string            `json:"run_id"`
	Seq    uint64            `json:"seq"`
	Engine string            `json:"engine"`
	Events []json.RawMessage `json:"events"`
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	out := envelopeJSON{
		RunID:  e.RunID,
		Seq:    e.Seq,
		Engine: e.Engine,
		Events: make([]json.RawMessage, 0, len(e.Events)),
	}
	for _, ev := range e.Events {
		b, err := core.MarshalEvent(ev)
		if err != nil {
			return nil, err
		}
		out.Events = append(out.Events, b)
	}
	return json.Marshal(out)
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var in envelopeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	events := make([]core.Event, 0, len(in.Events))
	for i, raw := range in.Events {
		ev, err := core.ParseEvent(raw)
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, ev)
	}

	*e = Envelope{RunID: in.RunID, Seq: in.Seq, Engine: in.Engine, Events: events}
	return nil
}

// Trades returns the trades in the envelope in emission order.
func (e Envelope) Trades() []core.Trade {
	var trades []core.Trade
	for _, ev := range e.Events {
		if t, ok := ev.(core.Trade); ok {
			trades = append(trades, t)
		}
	}
	return trades
}
