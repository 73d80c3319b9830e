// Package runner drives an engine from a newline-delimited JSON command
// stream and writes one JSON event per line.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/matching-engine-lab/pkg/core"
)

const maxLineBytes = 1 << 20

type Options struct {
	// Latency samples the wall time of every Submit.
	Latency bool
	// FlushEachCommand flushes output after every input line.
	FlushEachCommand bool
	RunID            string
	EngineName       string
	Sink             EventSink
	Logger           *zap.Logger
}

type Runner struct {
	engine core.Engine
	opts   Options
	log    *zap.Logger
}

func New(engine core.Engine, opts Options) *Runner {
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	if opts.EngineName == "" {
		opts.EngineName = engine.Stats()["engine"]
	}
	return &Runner{
		engine: engine,
		opts:   opts,
		log:    log.With(zap.String("run_id", opts.RunID), zap.String("engine", opts.EngineName)),
	}
}

// Summary describes one run.
type Summary struct {
	Engine      string
	Lines       uint64
	Commands    uint64
	ParseErrors uint64
	Events      uint64
	SinkErrors  uint64
	Elapsed     time.Duration
	Latency     *LatencyReport
}

// Throughput is decoded commands per second.
func (s Summary) Throughput() decimal.Decimal {
	if s.Elapsed <= 0 {
		return decimal.Zero
	}
	secs := decimal.NewFromInt(s.Elapsed.Nanoseconds()).Div(decimal.NewFromInt(int64(time.Second)))
	if secs.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.Commands)).DivRound(secs, 0)
}

// Fields renders the summary as structured log fields.
func (s Summary) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("engine", s.Engine),
		zap.Uint64("lines", s.Lines),
		zap.Uint64("commands", s.Commands),
		zap.Uint64("parse_errors", s.ParseErrors),
		zap.Uint64("events", s.Events),
		zap.Duration("elapsed", s.Elapsed),
		zap.String("ops_per_sec", s.Throughput().StringFixed(0)),
	}
	if s.SinkErrors > 0 {
		fields = append(fields, zap.Uint64("sink_errors", s.SinkErrors))
	}
	if s.Latency != nil {
		fields = append(fields,
			zap.Int("latency_samples", s.Latency.Samples),
			zap.Int64("p50_ns", s.Latency.P50),
			zap.Int64("p99_ns", s.Latency.P99),
			zap.Int64("p999_ns", s.Latency.P999),
			zap.Int64("max_ns", s.Latency.Max),
		)
	}
	return fields
}

// Run processes in until EOF or a read error. Blank lines are skipped and
// an undecodable line yields one Rejected event. A read error ends the
// loop early; the summary up to that point is still returned with it.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) (Summary, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	w := bufio.NewWriter(out)

	summary := Summary{Engine: r.opts.EngineName}
	var latencies latencyRecorder
	start := time.Now()

	var writeErr error
	for scanner.Scan() {
		line := scanner.Bytes()
		if core.IsBlank(line) {
			continue
		}
		summary.Lines++

		var events []core.Event
		cmd, err := core.ParseCommand(line)
		if err != nil {
			summary.ParseErrors++
			events = []core.Event{core.ParseFailure(err)}
		} else {
			summary.Commands++
			if r.opts.Latency {
				t0 := time.Now()
				events = r.engine.Submit(cmd)
				latencies.record(time.Since(t0))
			} else {
				events = r.engine.Submit(cmd)
			}
		}

		if writeErr = writeEvents(w, events); writeErr != nil {
			break
		}
		summary.Events += uint64(len(events))
		if r.opts.FlushEachCommand {
			if writeErr = w.Flush(); writeErr != nil {
				break
			}
		}

		if r.opts.Sink != nil {
			env := Envelope{RunID: r.opts.RunID, Seq: summary.Lines, Engine: r.opts.EngineName, Events: events}
			if err := r.opts.Sink.Publish(ctx, env); err != nil {
				summary.SinkErrors++
				r.log.Warn("event sink publish failed", zap.Uint64("seq", env.Seq), zap.Error(err))
			}
		}
	}

	if err := w.Flush(); err != nil && writeErr == nil {
		writeErr = err
	}
	summary.Elapsed = time.Since(start)
	if r.opts.Latency {
		summary.Latency = latencies.report()
	}

	if writeErr != nil {
		return summary, fmt.Errorf("write output: %w", writeErr)
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("%w: %v", ErrReadInput, err)
	}
	return summary, nil
}

func writeEvents(w *bufio.Writer, events []core.Event) error {
	for _, ev := range events {
		b, err := core.MarshalEvent(ev)
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}
