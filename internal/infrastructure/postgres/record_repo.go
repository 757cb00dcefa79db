package postgres

import (
	"context"
	"fmt"

	"aggregator/internal/domain/event"
	"aggregator/internal/domain/record"
	"aggregator/internal/ledger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RecordRepository persists stored records and enforces the composite
// uniqueness constraint over (topic, event_id). It is the ledger: the
// database's unique index arbitrates concurrent commits, so a race between
// workers degrades to one Created and N-1 AlreadyExists outcomes.
type RecordRepository struct {
	pool *pgxpool.Pool
}

func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

var _ ledger.Ledger = (*RecordRepository)(nil)
var _ record.Reader = (*RecordRepository)(nil)

// Commit inserts the record unless its dedup key is already present.
// ON CONFLICT DO NOTHING makes the check-and-insert a single atomic
// statement; RowsAffected tells the two outcomes apart. The first committed
// payload wins, duplicates are discarded.
func (r *RecordRepository) Commit(ctx context.Context, env *event.Envelope) (bool, error) {
	const query = `
		INSERT INTO processed_events (event_id, topic, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (topic, event_id) DO NOTHING
	`

	payload := env.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	tag, err := r.pool.Exec(ctx, query, env.EventID, env.Topic, payload)
	if err != nil {
		return false, fmt.Errorf("%w: insert processed event: %v", ledger.ErrUnavailable, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *RecordRepository) List(ctx context.Context, f record.ListFilter) ([]*record.Record, error) {
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT event_id, topic, payload, created_at
		FROM processed_events
	`
	args := []any{}
	if f.Topic != "" {
		query += ` WHERE topic = $1`
		args = append(args, f.Topic)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed events: %w", err)
	}
	defer rows.Close()

	records := []*record.Record{}
	for rows.Next() {
		rec := &record.Record{}
		if err := rows.Scan(&rec.EventID, &rec.Topic, &rec.Payload, &rec.StoredAt); err != nil {
			return nil, fmt.Errorf("scan processed event: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *RecordRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM processed_events`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count processed events: %w", err)
	}
	return n, nil
}
