package kafkawrapper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type fakeReader struct {
	msgs chan kafka.Message

	mu        sync.Mutex
	committed []int64
}

func newFakeReader(n int) *fakeReader {
	r := &fakeReader{msgs: make(chan kafka.Message, n)}
	for i := 0; i < n; i++ {
		r.msgs <- kafka.Message{Topic: "events", Offset: int64(i), Value: []byte{byte(i)}}
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

// lastCommitted is -1 until something is committed.
func (r *fakeReader) lastCommitted() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.committed) == 0 {
		return -1
	}
	return r.committed[len(r.committed)-1]
}

func TestProducerPublishDefaultsTopic(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "engine.events")

	require.NoError(t, p.Publish(context.Background(), "", []byte("k"), []byte("v"), map[string]string{"engine": "v1_btree"}))
	require.NoError(t, p.PublishJSON(context.Background(), "other", nil, map[string]int{"seq": 1}, nil))

	msgs := w.written()
	require.Len(t, msgs, 2)
	require.Equal(t, "engine.events", msgs[0].Topic)
	require.Equal(t, "engine", msgs[0].Headers[0].Key)
	require.Equal(t, "other", msgs[1].Topic)
	require.JSONEq(t, `{"seq":1}`, string(msgs[1].Value))
}

func TestProducerErrors(t *testing.T) {
	var nilProducer *Producer
	require.ErrorIs(t, nilProducer.Publish(context.Background(), "t", nil, nil, nil), ErrNotInitialized)
	require.NoError(t, nilProducer.Close())

	p := NewProducerWithWriter(&fakeWriter{}, "")
	require.ErrorIs(t, p.Publish(context.Background(), "", nil, nil, nil), ErrNoTopic)
}

func TestNewProducerWiresCompletion(t *testing.T) {
	var calls int
	cfg := ProducerConfig{
		Brokers:    []string{"127.0.0.1:9092"},
		Topic:      "engine.events",
		Completion: func([]kafka.Message, error) { calls++ },
	}

	async := NewProducer(cfg).w.(*kafka.Writer)
	require.True(t, async.Async)
	require.NotNil(t, async.Completion)
	async.Completion(nil, errors.New("broker down"))
	require.Equal(t, 1, calls)

	cfg.Sync = true
	blocking := NewProducer(cfg).w.(*kafka.Writer)
	require.False(t, blocking.Async)
	require.Nil(t, blocking.Completion)
}

func TestHashKeyStable(t *testing.T) {
	require.Len(t, HashKey("run-1"), 8)
	require.Equal(t, HashKey("run-1"), HashKey("run-1"))
	require.NotEqual(t, HashKey("run-1"), HashKey("run-2"))
}

func TestConsumerGroupBatchesAndCommits(t *testing.T) {
	r := newFakeReader(7)
	cg := NewConsumerGroupWithReader(ConsumerConfig{
		WorkerCount:  2,
		BatchSize:    3,
		BatchTimeout: 10 * time.Millisecond,
		AutoCommit:   true,
	}, r, nil)

	var mu sync.Mutex
	seen := 0
	oversized := false
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- cg.Run(ctx, func(_ context.Context, msgs []Message) error {
			mu.Lock()
			if len(msgs) > 3 {
				oversized = true
			}
			seen += len(msgs)
			mu.Unlock()
			return nil
		})
	}()

	require.Eventually(t, func() bool { return r.lastCommitted() == 6 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 7, seen)
	require.False(t, oversized)
}

func TestConsumerGroupRetriesThenDLQ(t *testing.T) {
	r := newFakeReader(2)
	dlq := &fakeWriter{}
	cg := NewConsumerGroupWithReader(ConsumerConfig{
		WorkerCount:  1,
		BatchSize:    2,
		BatchTimeout: time.Minute,
		MaxRetries:   2,
		BackoffMin:   time.Millisecond,
		BackoffMax:   2 * time.Millisecond,
		DLQTopic:     "events.dlq",
		AutoCommit:   true,
	}, r, NewProducerWithWriter(dlq, "events.dlq"))

	var mu sync.Mutex
	attempts := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cg.Run(ctx, func(context.Context, []Message) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return errors.New("db down")
	})

	require.Eventually(t, func() bool { return len(dlq.written()) == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return r.lastCommitted() == 1 }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, attempts)
	require.Equal(t, "events.dlq", dlq.written()[0].Topic)
}

func TestConsumerGroupSkipCommit(t *testing.T) {
	r := newFakeReader(1)
	cg := NewConsumerGroupWithReader(ConsumerConfig{
		WorkerCount:  1,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		AutoCommit:   true,
	}, r, nil)

	handled := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- cg.Run(ctx, func(context.Context, []Message) error {
			handled <- struct{}{}
			return ErrSkipCommit
		})
	}()

	<-handled
	cancel()
	<-done
	require.Equal(t, 0, r.commitCount())
}

func TestConsumerGroupCommitsInOffsetOrder(t *testing.T) {
	r := newFakeReader(2)
	cg := NewConsumerGroupWithReader(ConsumerConfig{
		WorkerCount:  2,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		AutoCommit:   true,
	}, r, nil)

	release := make(chan struct{})
	laterDone := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cg.Run(ctx, func(_ context.Context, msgs []Message) error {
		if msgs[0].Offset == 0 {
			<-release
			return nil
		}
		close(laterDone)
		return nil
	})

	<-laterDone
	require.Never(t, func() bool { return r.commitCount() > 0 }, 100*time.Millisecond, 5*time.Millisecond)

	close(release)
	require.Eventually(t, func() bool { return r.lastCommitted() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []int64{1}, r.committedOffsets())
}

func TestCommitTrackerPerPartition(t *testing.T) {
	r := newFakeReader(0)
	tr := newCommitTracker()
	msg := func(partition int, offset int64) kafka.Message {
		return kafka.Message{Topic: "events", Partition: partition, Offset: offset}
	}
	for _, m := range []kafka.Message{msg(0, 10), msg(1, 3), msg(0, 11), msg(1, 4), msg(0, 12)} {
		tr.track(m)
	}
	ctx := context.Background()

	require.NoError(t, tr.complete(ctx, r, []kafka.Message{msg(0, 11), msg(0, 12)}))
	require.Empty(t, r.committedOffsets())

	require.NoError(t, tr.complete(ctx, r, []kafka.Message{msg(1, 3)}))
	require.Equal(t, []int64{3}, r.committedOffsets())

	require.NoError(t, tr.complete(ctx, r, []kafka.Message{msg(0, 10)}))
	require.Equal(t, []int64{3, 12}, r.committedOffsets())

	require.NoError(t, tr.complete(ctx, r, []kafka.Message{msg(1, 4)}))
	require.Equal(t, []int64{3, 12, 4}, r.committedOffsets())
}
