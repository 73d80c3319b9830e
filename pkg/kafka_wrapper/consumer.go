package kafkawrapper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
	Headers   map[string]string
}

// BatchHandler processes one batch. A nil return commits the batch.
type BatchHandler func(ctx context.Context, msgs []Message) error

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	Topic       string
	WorkerCount int
	MaxRetries  int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string
	AutoCommit  bool
	// Batch options
	BatchSize    int
	BatchTimeout time.Duration
}

type ConsumerGroup struct {
	r          MessageReader
	cfg        ConsumerConfig
	prodForDLQ *Producer
	commits    *commitTracker
}

func (cfg *ConsumerConfig) setDefaults() {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffMin == 0 {
		cfg.BackoffMin = 100 * time.Millisecond
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 200 * time.Millisecond
	}
}

func NewConsumerGroup(cfg ConsumerConfig) (*ConsumerGroup, error) {
	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})

	var prod *Producer
	if cfg.DLQTopic != "" {
		prod = NewProducer(ProducerConfig{Brokers: cfg.Brokers, Topic: cfg.DLQTopic})
	}

	return NewConsumerGroupWithReader(cfg, rd, prod), nil
}

// NewConsumerGroupWithReader builds a group over an existing reader. dlq may be nil.
func NewConsumerGroupWithReader(cfg ConsumerConfig, r MessageReader, dlq *Producer) *ConsumerGroup {
	cfg.setDefaults()
	return &ConsumerGroup{r: r, cfg: cfg, prodForDLQ: dlq, commits: newCommitTracker()}
}

func (cg *ConsumerGroup) Close() error {
	if cg == nil {
		return nil
	}
	if cg.prodForDLQ != nil {
		_ = cg.prodForDLQ.Close()
	}
	if cg.r != nil {
		return cg.r.Close()
	}
	return nil
}

// Run delivers batches to handler from WorkerCount goroutines until ctx is
// done. Batches of one worker are processed in order; across workers there
// is no ordering. With AutoCommit, a partition's offset only moves past a
// batch once that batch and every earlier one have finished, so a batch
// left uncommitted (ErrSkipCommit) holds back later commits on its partition.
func (cg *ConsumerGroup) Run(ctx context.Context, handler BatchHandler) error {
	if cg == nil || cg.r == nil {
		return ErrNotInitialized
	}

	batches := make(chan []kafka.Message, cg.cfg.WorkerCount)
	go func() {
		defer close(batches)
		cg.collect(ctx, batches)
	}()

	var wg sync.WaitGroup
	for i := 0; i < cg.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for ms := range batches {
				cg.process(ctx, workerID, handler, ms)
			}
		}(i)
	}
	wg.Wait()

	return ctx.Err()
}

// collect groups fetched messages into batches of BatchSize, flushing a
// partial batch every BatchTimeout.
func (cg *ConsumerGroup) collect(ctx context.Context, out chan<- []kafka.Message) {
	fetched := make(chan kafka.Message)
	go func() {
		defer close(fetched)
		for {
			m, err := cg.r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				zap.S().Warnf("kafka fetch error: %v", err)
				select {
				case <-time.After(200 * time.Millisecond):
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case fetched <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	var buf []kafka.Message
	flush := func() bool {
		if len(buf) == 0 {
			return true
		}
		select {
		case out <- buf:
			buf = nil
			return true
		case <-ctx.Done():
			return false
		}
	}

	ticker := time.NewTicker(cg.cfg.BatchTimeout)
	defer ticker.Stop()
	for {
		select {
		case m, ok := <-fetched:
			if !ok {
				return
			}
			if cg.cfg.AutoCommit {
				cg.commits.track(m)
			}
			buf = append(buf, m)
			if len(buf) >= cg.cfg.BatchSize && !flush() {
				return
			}
		case <-ticker.C:
			if !flush() {
				return
			}
		}
	}
}

func (cg *ConsumerGroup) process(ctx context.Context, workerID int, handler BatchHandler, ms []kafka.Message) {
	wrapped := make([]Message, len(ms))
	for i, m := range ms {
		wrapped[i] = wrapMessage(m)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = cg.cfg.BackoffMin
	exp.MaxInterval = cg.cfg.BackoffMax
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(cg.cfg.MaxRetries)), ctx)

	skip := false
	err := backoff.RetryNotify(func() error {
		err := handler(ctx, wrapped)
		if errors.Is(err, ErrSkipCommit) {
			skip = true
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, next time.Duration) {
		zap.S().Warnf("worker %d: batch of %d failed, retry in %s: %v", workerID, len(ms), next, err)
	})

	if skip || ctx.Err() != nil {
		return
	}
	if err != nil {
		zap.S().Errorf("worker %d: giving up on batch of %d: %v", workerID, len(ms), err)
		if cg.prodForDLQ != nil {
			for _, m := range ms {
				if dlqErr := cg.prodForDLQ.Publish(ctx, cg.cfg.DLQTopic, m.Key, m.Value, headersToMap(m.Headers)); dlqErr != nil {
					zap.S().Errorf("worker %d: dlq publish: %v", workerID, dlqErr)
				}
			}
		}
	}
	if cg.cfg.AutoCommit {
		if err := cg.commits.complete(ctx, cg.r, ms); err != nil {
			zap.S().Errorf("worker %d: commit: %v", workerID, err)
		}
	}
}

func wrapMessage(m kafka.Message) Message {
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Time:      m.Time,
		Headers:   headersToMap(m.Headers),
	}
}

func headersToMap(hs []kafka.Header) map[string]string {
	out := map[string]string{}
	for _, h := range hs {
		out[h.Key] = string(h.Value)
	}
	return out
}
