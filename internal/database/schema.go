package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Active and saved (template) orders share one table, split by the saved flag.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS orders (
    id UUID PRIMARY KEY,
    saved BOOLEAN NOT NULL DEFAULT FALSE,
    customer_name TEXT NOT NULL,
    items JSONB NOT NULL,
    address TEXT,
    notes TEXT,
    total NUMERIC NOT NULL DEFAULT 0,
    created_at_ms BIGINT NOT NULL,
    original_message TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending'
);

CREATE INDEX IF NOT EXISTS idx_orders_saved_created ON orders(saved, created_at_ms DESC);
`

func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}
