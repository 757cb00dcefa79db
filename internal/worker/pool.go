package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"aggregator/internal/channel"
	"aggregator/internal/ledger"
	"aggregator/internal/stats"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var processingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "aggregator_processing_duration_seconds",
	Help:    "Time taken to drive one delivery through the ledger",
	Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
})

const maxBackoff = 30 * time.Second

// Pool drains the channel with N concurrent workers and drives each
// delivery through the ledger. Workers share nothing beyond the ledger's
// atomic commit and the stats counters; the pool size tunes throughput,
// not correctness.
type Pool struct {
	ch     channel.Channel
	ledger ledger.Ledger
	agg    *stats.Aggregator
	size   int
}

func NewPool(ch channel.Channel, l ledger.Ledger, agg *stats.Aggregator, size int) *Pool {
	if size <= 0 {
		size = 5
	}
	return &Pool{ch: ch, ledger: l, agg: agg, size: size}
}

// Run blocks until ctx is cancelled and every worker has drained. A worker
// stops between deliveries; a commit already in flight is allowed to finish
// so an envelope is never acked without being committed.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runWorker(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	log := slog.With("worker", id)
	log.Info("ingestion worker started")

	backoff := time.Second

	for {
		delivery, err := p.ch.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("ingestion worker stopping")
				return
			}
			log.Error("failed to dequeue", "error", err)
			if !sleepCtx(ctx, time.Second) {
				return
			}
			continue
		}

		if p.process(ctx, log, delivery) {
			backoff = time.Second
			continue
		}

		// Storage outage: the envelope was nacked for redelivery, so back
		// off before pulling more work onto a broken store.
		if !sleepCtx(ctx, backoff) {
			return
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// process handles one delivery attempt and reports whether storage was
// reachable. Duplicates and poison messages are success paths.
func (p *Pool) process(ctx context.Context, log *slog.Logger, d *channel.Delivery) bool {
	p.agg.RecordDelivery()
	started := time.Now()

	// Detach from cancellation so an in-flight commit and its ack finish
	// cleanly during shutdown.
	opCtx := context.WithoutCancel(ctx)

	if d.Envelope == nil || d.Envelope.Validate() != nil {
		// Poison message: no dedup key is derivable and retrying cannot
		// help, so drop it and keep the queue moving.
		p.agg.RecordMalformed()
		log.Error("dropping malformed envelope", "raw", truncate(d.Raw, 256))
		if err := d.Ack(opCtx); err != nil {
			log.Error("failed to ack malformed envelope", "error", err)
		}
		return true
	}

	created, err := p.ledger.Commit(opCtx, d.Envelope)
	if err != nil {
		log.Error("ledger commit failed, leaving delivery for redelivery",
			"dedup_key", d.Envelope.DedupKey().String(), "error", err)
		if err := d.Nack(opCtx); err != nil {
			log.Error("failed to nack delivery", "error", err)
		}
		return false
	}

	if created {
		p.agg.RecordUnique()
	} else {
		p.agg.RecordDuplicate()
	}

	if err := d.Ack(opCtx); err != nil {
		// Redelivery of an already committed key lands on AlreadyExists,
		// so a lost ack is safe.
		log.Error("failed to ack delivery", "error", err)
	}

	processingDuration.Observe(time.Since(started).Seconds())
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
