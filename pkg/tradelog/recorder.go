// Package tradelog persists the trades carried by engine event envelopes.
package tradelog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	kafkawrapper "github.com/joripage/matching-engine-lab/pkg/kafka_wrapper"
	"github.com/joripage/matching-engine-lab/pkg/runner"
)

// Recorder turns envelope batches into trade rows.
type Recorder struct {
	trades ITrade
}

func NewRecorder(trades ITrade) *Recorder {
	return &Recorder{trades: trades}
}

// Records flattens the trades of one envelope in emission order.
func Records(env runner.Envelope) []*TradeRecord {
	var out []*TradeRecord
	for i, t := range env.Trades() {
		out = append(out, &TradeRecord{
			RunID:    env.RunID,
			Engine:   env.Engine,
			Seq:      env.Seq,
			Idx:      i,
			BuyerID:  t.BuyerID,
			SellerID: t.SellerID,
			Qty:      t.Qty,
			Price:    t.Price,
			Notional: decimal.NewFromInt(t.Qty).Mul(decimal.NewFromInt(t.Price)),
		})
	}
	return out
}

// HandleBatch is a kafkawrapper.BatchHandler. Undecodable messages are
// logged and dropped; a storage error fails the whole batch so it is retried.
func (r *Recorder) HandleBatch(ctx context.Context, msgs []kafkawrapper.Message) error {
	var records []*TradeRecord
	for _, m := range msgs {
		var env runner.Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			zap.S().Warnw("drop undecodable envelope", "partition", m.Partition, "offset", m.Offset, "error", err)
			continue
		}
		records = append(records, Records(env)...)
	}

	if err := r.trades.BulkCreate(ctx, records); err != nil {
		return fmt.Errorf("store %d trades: %w", len(records), err)
	}
	if len(records) > 0 {
		zap.S().Debugw("trades stored", "count", len(records), "messages", len(msgs))
	}
	return nil
}
