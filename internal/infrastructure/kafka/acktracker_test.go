package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(partition int, offset int64) kafka.Message {
	return kafka.Message{Partition: partition, Offset: offset}
}

func TestSettleOutOfOrderHoldsCommit(t *testing.T) {
	tr := newAckTracker()

	// Worker A holds offset 5, worker B races ahead with 6 and 7.
	tr.track(msg(0, 5))
	tr.track(msg(0, 6))
	tr.track(msg(0, 7))

	_, advanced := tr.settle(0, 6)
	assert.False(t, advanced, "offset 6 must not be committed while 5 is in flight")

	_, advanced = tr.settle(0, 7)
	assert.False(t, advanced, "offset 7 must not be committed while 5 is in flight")

	frontier, advanced := tr.settle(0, 5)
	require.True(t, advanced)
	assert.Equal(t, int64(7), frontier.Offset,
		"settling the oldest in-flight offset releases the whole contiguous run")
}

func TestSettleInOrderCommitsEachStep(t *testing.T) {
	tr := newAckTracker()
	tr.track(msg(0, 10))
	tr.track(msg(0, 11))

	frontier, advanced := tr.settle(0, 10)
	require.True(t, advanced)
	assert.Equal(t, int64(10), frontier.Offset)

	frontier, advanced = tr.settle(0, 11)
	require.True(t, advanced)
	assert.Equal(t, int64(11), frontier.Offset)
}

func TestSettleTracksPartitionsIndependently(t *testing.T) {
	tr := newAckTracker()
	tr.track(msg(0, 3))
	tr.track(msg(1, 8))

	frontier, advanced := tr.settle(1, 8)
	require.True(t, advanced)
	assert.Equal(t, 1, frontier.Partition)
	assert.Equal(t, int64(8), frontier.Offset)

	_, advanced = tr.settle(1, 8)
	assert.False(t, advanced, "an already released offset has nothing left to commit")

	frontier, advanced = tr.settle(0, 3)
	require.True(t, advanced)
	assert.Equal(t, 0, frontier.Partition)
}

func TestSettleGapAfterFrontier(t *testing.T) {
	tr := newAckTracker()
	tr.track(msg(0, 1))
	tr.track(msg(0, 2))
	tr.track(msg(0, 3))

	_, advanced := tr.settle(0, 3)
	assert.False(t, advanced)

	frontier, advanced := tr.settle(0, 1)
	require.True(t, advanced)
	assert.Equal(t, int64(1), frontier.Offset, "the gap at offset 2 stops the frontier")

	frontier, advanced = tr.settle(0, 2)
	require.True(t, advanced)
	assert.Equal(t, int64(3), frontier.Offset)
}
