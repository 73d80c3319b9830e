package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/joripage/matching-engine-lab/pkg/core"
	kafkawrapper "github.com/joripage/matching-engine-lab/pkg/kafka_wrapper"
	"github.com/joripage/matching-engine-lab/pkg/orderbook"
)

func runLines(t *testing.T, opts Options, input string) (Summary, []string, error) {
	t.Helper()
	var out bytes.Buffer
	s, err := New(orderbook.Reference(), opts).Run(context.Background(), strings.NewReader(input), &out)
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if out.Len() == 0 {
		lines = nil
	}
	return s, lines, err
}

func TestRunScenario(t *testing.T) {
	input := `{"PlaceSell":{"id":1,"price":10,"qty":2,"timestamp":1}}
{"PlaceSell":{"id":2,"price":10,"qty":2,"timestamp":2}}

{"BuyByQty":{"id":3,"qty":3,"timestamp":3}}
{"CancelSell":{"id":99}}
`
	s, lines, err := runLines(t, Options{FlushEachCommand: true}, input)
	require.NoError(t, err)
	require.Equal(t, []string{
		`{"Accepted":{}}`,
		`{"Accepted":{}}`,
		`{"Trade":{"buyer_id":3,"seller_id":1,"qty":2,"price":10}}`,
		`{"SellClosed":{}}`,
		`{"Trade":{"buyer_id":3,"seller_id":2,"qty":1,"price":10}}`,
		`{"SellUpdated":{}}`,
		`{"BuyResultQty":{"filled":3}}`,
		`{"Rejected":{"reason":"sell 99 not found"}}`,
	}, lines)

	require.Equal(t, uint64(4), s.Lines)
	require.Equal(t, uint64(4), s.Commands)
	require.Equal(t, uint64(0), s.ParseErrors)
	require.Equal(t, uint64(8), s.Events)
	require.Equal(t, "v1_btree", s.Engine)
	require.Nil(t, s.Latency)
}

func TestRunParseErrorDoesNotStopStream(t *testing.T) {
	input := `{"PlaceSell":{"id":1,"price":10,"qty":5,"timestamp":1}}
not json
{"PlaceSell":{"id":2,"price":10}}
{"BuyByBudget":{"id":3,"budget":100,"timestamp":2}}
`
	s, lines, err := runLines(t, Options{}, input)
	require.NoError(t, err)
	require.Len(t, lines, 6)
	require.True(t, strings.HasPrefix(lines[1], `{"Rejected":{"reason":"parse error: `))
	require.Contains(t, lines[2], "missing field")
	require.Equal(t, `{"BuyResultBudget":{"spent":50,"filled":5}}`, lines[5])
	require.Equal(t, uint64(2), s.ParseErrors)
	require.Equal(t, uint64(2), s.Commands)
}

func TestRunLatency(t *testing.T) {
	input := strings.Repeat(`{"CancelSell":{"id":1}}`+"\n", 50)
	s, _, err := runLines(t, Options{Latency: true}, input)
	require.NoError(t, err)
	require.NotNil(t, s.Latency)
	require.Equal(t, 50, s.Latency.Samples)
	require.LessOrEqual(t, s.Latency.P50, s.Latency.P99)
	require.LessOrEqual(t, s.Latency.P99, s.Latency.P999)
	require.LessOrEqual(t, s.Latency.P999, s.Latency.Max)
}

func TestRunReadErrorKeepsSummary(t *testing.T) {
	in := io.MultiReader(
		strings.NewReader(`{"PlaceSell":{"id":1,"price":10,"qty":5,"timestamp":1}}`+"\n"),
		iotest.ErrReader(errors.New("disk gone")),
	)
	var out bytes.Buffer
	s, err := New(orderbook.Reference(), Options{}).Run(context.Background(), in, &out)
	require.ErrorIs(t, err, ErrReadInput)
	require.Equal(t, uint64(1), s.Commands)
	require.Equal(t, "{\"Accepted\":{}}\n", out.String())
}

func TestRunOversizedLineIsReadError(t *testing.T) {
	input := `{"CancelSell":{"id":1}}` + "\n" + strings.Repeat("x", maxLineBytes+1) + "\n"
	s, _, err := runLines(t, Options{}, input)
	require.ErrorIs(t, err, ErrReadInput)
	require.Equal(t, uint64(1), s.Lines)
}

type flushCounter struct {
	bytes.Buffer
	writes int
}

func (f *flushCounter) Write(p []byte) (int, error) {
	f.writes++
	return f.Buffer.Write(p)
}

func TestRunFlushEachCommand(t *testing.T) {
	input := strings.Repeat(`{"CancelSell":{"id":1}}`+"\n", 3)

	eager := &flushCounter{}
	_, err := New(orderbook.Reference(), Options{FlushEachCommand: true}).Run(context.Background(), strings.NewReader(input), eager)
	require.NoError(t, err)
	require.Equal(t, 3, eager.writes)

	lazy := &flushCounter{}
	_, err = New(orderbook.Reference(), Options{}).Run(context.Background(), strings.NewReader(input), lazy)
	require.NoError(t, err)
	require.Equal(t, 1, lazy.writes)
	require.Equal(t, eager.String(), lazy.String())
}

type recordingSink struct {
	envs []Envelope
	err  error
}

func (s *recordingSink) Publish(_ context.Context, env Envelope) error {
	s.envs = append(s.envs, env)
	return s.err
}

func (s *recordingSink) Close() error { return nil }

func TestRunPublishesToSink(t *testing.T) {
	sink := &recordingSink{}
	input := `{"PlaceSell":{"id":1,"price":10,"qty":5,"timestamp":1}}
{"BuyByQty":{"id":2,"qty":3,"timestamp":2}}
`
	_, _, err := runLines(t, Options{Sink: sink, RunID: "run-7"}, input)
	require.NoError(t, err)
	require.Len(t, sink.envs, 2)
	require.Equal(t, uint64(2), sink.envs[1].Seq)
	require.Equal(t, "run-7", sink.envs[1].RunID)
	require.Equal(t, []core.Trade{{BuyerID: 2, SellerID: 1, Qty: 3, Price: 10}}, sink.envs[1].Trades())
}

func TestRunSinkFailureIsLoggedOnly(t *testing.T) {
	obs, logs := observer.New(zap.WarnLevel)
	sink := &recordingSink{err: errors.New("broker down")}

	s, lines, err := runLines(t, Options{Sink: sink, Logger: zap.New(obs)}, `{"CancelSell":{"id":4}}`+"\n")
	require.NoError(t, err)
	require.Equal(t, []string{`{"Rejected":{"reason":"sell 4 not found"}}`}, lines)
	require.Equal(t, uint64(1), s.SinkErrors)
	require.Equal(t, 1, logs.FilterMessage("event sink publish failed").Len())
}

func TestEnvelopeJSON(t *testing.T) {
	env := Envelope{
		RunID:  "r",
		Seq:    3,
		Engine: "v3_arena",
		Events: []core.Event{core.Trade{BuyerID: 2, SellerID: 1, Qty: 1, Price: 5}, core.SellClosed{}, core.BuyResultQty{Filled: 1}},
	}
	b, err := json.Marshal(env)
	require.NoError(t, err)
	require.JSONEq(t, `{"run_id":"r","seq":3,"engine":"v3_arena","events":[
		{"Trade":{"buyer_id":2,"seller_id":1,"qty":1,"price":5}},{"SellClosed":{}},{"BuyResultQty":{"filled":1}}]}`, string(b))

	var back Envelope
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, env, back)
}

type captureWriter struct {
	values [][]byte
	topics []string
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		w.values = append(w.values, m.Value)
		w.topics = append(w.topics, m.Topic)
	}
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaSink(t *testing.T) {
	w := &captureWriter{}
	sink := NewKafkaSink(kafkawrapper.NewProducerWithWriter(w, "engine.events"))
	require.NoError(t, sink.Publish(context.Background(), Envelope{Seq: 1, Engine: "v1_btree", Events: []core.Event{core.Accepted{}}}))
	require.NoError(t, sink.Close())

	require.Equal(t, []string{"engine.events"}, w.topics)
	var env Envelope
	require.NoError(t, json.Unmarshal(w.values[0], &env))
	require.Equal(t, []core.Event{core.Accepted{}}, env.Events)
}

func TestKafkaSinkCountsDeliveryFailures(t *testing.T) {
	zc, obs := observer.New(zap.WarnLevel)
	sink := DialKafkaSink(kafkawrapper.ProducerConfig{Brokers: []string{"127.0.0.1:9092"}, Topic: "engine.events"}, zap.New(zc))

	sink.delivered(make([]kafka.Message, 3), nil)
	require.Zero(t, sink.Failed())

	sink.delivered(make([]kafka.Message, 2), errors.New("leader not available"))
	require.Equal(t, uint64(2), sink.Failed())
	require.Equal(t, 1, obs.FilterMessage("event sink delivery failed").Len())
}

type errWriter struct{ err error }

func (w errWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriteEventsReportsWriteError(t *testing.T) {
	w := bufio.NewWriterSize(errWriter{err: io.ErrClosedPipe}, 16)
	err := writeEvents(w, []core.Event{core.Rejected{Reason: "price must be >= 0, qty must be > 0"}})
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestRunWriteErrorEndsRun(t *testing.T) {
	r := New(orderbook.Reference(), Options{FlushEachCommand: true})
	s, err := r.Run(context.Background(), strings.NewReader(`{"CancelSell":{"id":1}}`+"\n"+`{"CancelSell":{"id":2}}`+"\n"), errWriter{err: io.ErrClosedPipe})
	require.ErrorIs(t, err, io.ErrClosedPipe)
	require.NotErrorIs(t, err, ErrReadInput)
	require.Equal(t, uint64(1), s.Lines)
}

func TestPercentile(t *testing.T) {
	sorted := make([]int64, 1000)
	for i := range sorted {
		sorted[i] = int64(i)
	}
	require.Equal(t, int64(500), Percentile(sorted, 50))
	require.Equal(t, int64(990), Percentile(sorted, 99))
	require.Equal(t, int64(999), Percentile(sorted, 99.9))
	require.Equal(t, int64(999), Percentile(sorted, 100))
	require.Equal(t, int64(0), Percentile(nil, 50))
	require.Equal(t, int64(7), Percentile([]int64{7}, 99.9))
}

func TestSummaryThroughput(t *testing.T) {
	s := Summary{Commands: 3000, Elapsed: 1500 * time.Millisecond}
	require.Equal(t, "2000", s.Throughput().StringFixed(0))
	require.True(t, Summary{Commands: 5}.Throughput().IsZero())
}
