package stats

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_deliveries_total",
		Help: "The total number of delivery attempts observed by workers, redeliveries included",
	})
	uniqueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_unique_events_total",
		Help: "The total number of newly stored events",
	})
	duplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_duplicates_suppressed_total",
		Help: "The total number of deliveries suppressed as duplicates",
	})
	malformedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aggregator_malformed_envelopes_total",
		Help: "The total number of poison envelopes dropped",
	})
)

// Aggregator keeps the pipeline's running counters. All increments are
// atomic and safe from any number of workers; prometheus mirrors are kept
// alongside for /metrics, but the snapshot source of truth is the atomics.
type Aggregator struct {
	received atomic.Int64
	unique   atomic.Int64
}

func New() *Aggregator {
	return &Aggregator{}
}

// Snapshot is a point-in-time view of the counters. It may lag in-flight
// commits but never reports unique > received.
type Snapshot struct {
	Received   int64 `json:"received"`
	Unique     int64 `json:"unique_processed"`
	Duplicates int64 `json:"duplicate_dropped"`
}

// RecordDelivery counts one delivery attempt. Called at dequeue, before the
// outcome is known, so redeliveries count too: this is raw traffic volume.
func (a *Aggregator) RecordDelivery() {
	a.received.Add(1)
	deliveriesTotal.Inc()
}

func (a *Aggregator) RecordUnique() {
	a.unique.Add(1)
	uniqueTotal.Inc()
}

func (a *Aggregator) RecordDuplicate() {
	duplicatesTotal.Inc()
}

func (a *Aggregator) RecordMalformed() {
	malformedTotal.Inc()
}

func (a *Aggregator) Snapshot() Snapshot {
	// Workers increment received before unique, so loading unique first
	// keeps unique <= received even against racing increments.
	unique := a.unique.Load()
	received := a.received.Load()
	return Snapshot{
		Received:   received,
		Unique:     unique,
		Duplicates: received - unique,
	}
}
