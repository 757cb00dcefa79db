package kafka

import (
	"sync"

	"github.com/segmentio/kafka-go"
)

// ackTracker serializes offset commits across concurrent workers sharing one
// group reader. A consumer group stores a single committed offset per
// partition, so committing offset N+1 implicitly acknowledges every offset
// below it; a worker racing ahead of a slower sibling would otherwise mark
// the sibling's in-flight envelope as done, and a crash before the sibling
// settles would lose it. The tracker releases a commit only for the newest
// offset whose predecessors have all been settled.
type ackTracker struct {
	mu         sync.Mutex
	partitions map[int][]trackedMessage
}

type trackedMessage struct {
	msg     kafka.Message
	settled bool
}

func newAckTracker() *ackTracker {
	return &ackTracker{partitions: make(map[int][]trackedMessage)}
}

// track registers a fetched message. A group reader fetches each partition
// in offset order, so append order is offset order.
func (t *ackTracker) track(msg kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.partitions[msg.Partition] = append(t.partitions[msg.Partition], trackedMessage{msg: msg})
}

// settle marks one offset as done and reports the message to commit, if the
// contiguous frontier advanced. Committing that message covers every offset
// popped along the way.
func (t *ackTracker) settle(partition int, offset int64) (kafka.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	window := t.partitions[partition]
	for i := range window {
		if window[i].msg.Offset == offset {
			window[i].settled = true
			break
		}
	}

	var frontier kafka.Message
	advanced := false
	for len(window) > 0 && window[0].settled {
		frontier = window[0].msg
		advanced = true
		window = window[1:]
	}
	t.partitions[partition] = window

	return frontier, advanced
}
