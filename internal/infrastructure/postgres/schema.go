package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitSchema ensures the ledger table and its composite uniqueness
// constraint exist. The constraint is the dedup guarantee; if it cannot be
// ensured the process must not start consuming.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS processed_events (
			id SERIAL PRIMARY KEY,
			event_id VARCHAR(255) NOT NULL,
			topic VARCHAR(100) NOT NULL,
			payload JSONB NOT NULL,
			status VARCHAR(50) DEFAULT 'processed',
			created_at TIMESTAMP DEFAULT NOW(),
			CONSTRAINT unique_event_dedup UNIQUE (topic, event_id)
		);
		CREATE INDEX IF NOT EXISTS idx_topic ON processed_events(topic);
	`

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
