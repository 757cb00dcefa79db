package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotCounts(t *testing.T) {
	a := New()

	for i := 0; i < 10; i++ {
		a.RecordDelivery()
	}
	for i := 0; i < 4; i++ {
		a.RecordUnique()
	}

	snap := a.Snapshot()
	assert.Equal(t, int64(10), snap.Received)
	assert.Equal(t, int64(4), snap.Unique)
	assert.Equal(t, int64(6), snap.Duplicates)
}

func TestConcurrentIncrementsNeverViolateInvariant(t *testing.T) {
	a := New()

	const workers = 16
	const perWorker = 1000

	stop := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := a.Snapshot()
			if snap.Unique > snap.Received {
				t.Errorf("snapshot reported unique %d > received %d", snap.Unique, snap.Received)
				return
			}
			if snap.Duplicates < 0 {
				t.Errorf("snapshot reported negative duplicates: %d", snap.Duplicates)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// Same order as the worker pool: delivery first, outcome after.
				a.RecordDelivery()
				if i%2 == 0 {
					a.RecordUnique()
				} else {
					a.RecordDuplicate()
				}
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	readers.Wait()

	snap := a.Snapshot()
	assert.Equal(t, int64(workers*perWorker), snap.Received)
	assert.Equal(t, int64(workers*perWorker/2), snap.Unique)
	assert.Equal(t, int64(workers*perWorker/2), snap.Duplicates)
}
