package runner

import (
	"context"
	"strconv"
	"sync/atomic"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkawrapper "github.com/joripage/matching-engine-lab/pkg/kafka_wrapper"
)

// EventSink receives a copy of every line's events. Failures are logged
// by the runner and never change what is written to the output.
type EventSink interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// KafkaSink publishes envelopes keyed by run so one run stays on one partition.
type KafkaSink struct {
	producer *kafkawrapper.Producer
	log      *zap.Logger
	failed   atomic.Uint64
}

func NewKafkaSink(producer *kafkawrapper.Producer) *KafkaSink {
	return &KafkaSink{producer: producer, log: zap.NewNop()}
}

// DialKafkaSink builds the producer from cfg. Async delivery failures are
// logged and counted in Failed.
func DialKafkaSink(cfg kafkawrapper.ProducerConfig, log *zap.Logger) *KafkaSink {
	if log == nil {
		log = zap.NewNop()
	}
	s := &KafkaSink{log: log}
	cfg.Completion = s.delivered
	s.producer = kafkawrapper.NewProducer(cfg)
	return s
}

func (s *KafkaSink) delivered(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	s.failed.Add(uint64(len(msgs)))
	s.log.Warn("event sink delivery failed", zap.Int("messages", len(msgs)), zap.Error(err))
}

// Failed is the number of envelopes the broker did not take. Async writes
// are only settled once Close returns.
func (s *KafkaSink) Failed() uint64 {
	return s.failed.Load()
}

func (s *KafkaSink) Publish(ctx context.Context, env Envelope) error {
	headers := map[string]string{
		"engine": env.Engine,
		"seq":    strconv.FormatUint(env.Seq, 10),
	}
	return s.producer.PublishJSON(ctx, "", kafkawrapper.HashKey(env.RunID), env, headers)
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
