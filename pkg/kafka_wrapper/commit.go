package kafkawrapper

import (
	"context"
	"sync"

	"github.com/gammazero/deque"
	kafka "github.com/segmentio/kafka-go"
)

type partitionKey struct {
	topic     string
	partition int
}

// partitionCommits holds fetched messages of one partition in fetch order
// and the offsets whose batch has finished.
type partitionCommits struct {
	pending deque.Deque[kafka.Message]
	done    map[int64]struct{}
}

// commitTracker turns out-of-order batch completions into in-order
// commits. An offset is committed only once every earlier offset fetched
// from the same partition has finished too.
type commitTracker struct {
	mu    sync.Mutex
	parts map[partitionKey]*partitionCommits
}

func newCommitTracker() *commitTracker {
	return &commitTracker{parts: make(map[partitionKey]*partitionCommits)}
}

// track must be called in fetch order.
func (t *commitTracker) track(m kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := partitionKey{topic: m.Topic, partition: m.Partition}
	p, ok := t.parts[k]
	if !ok {
		p = &partitionCommits{done: make(map[int64]struct{})}
		t.parts[k] = p
	}
	p.pending.PushBack(m)
}

// complete marks ms finished and commits the highest contiguous finished
// offset of every partition it touched. The lock is held across the commit
// so offsets reach the reader in increasing order.
func (t *commitTracker) complete(ctx context.Context, r MessageReader, ms []kafka.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	touched := make(map[partitionKey]struct{})
	for _, m := range ms {
		k := partitionKey{topic: m.Topic, partition: m.Partition}
		p, ok := t.parts[k]
		if !ok {
			continue
		}
		p.done[m.Offset] = struct{}{}
		touched[k] = struct{}{}
	}

	var commits []kafka.Message
	for k := range touched {
		p := t.parts[k]
		var last kafka.Message
		advanced := false
		for p.pending.Len() > 0 {
			front := p.pending.Front()
			if _, ok := p.done[front.Offset]; !ok {
				break
			}
			delete(p.done, front.Offset)
			last = p.pending.PopFront()
			advanced = true
		}
		if advanced {
			commits = append(commits, last)
		}
	}

	if len(commits) == 0 {
		return nil
	}
	return r.CommitMessages(ctx, commits...)
}
