package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// schemaLockID serializes schema creation across processes sharing a
// database; concurrent CREATE TABLE IF NOT EXISTS can still race on the
// catalog.
const schemaLockID = 0x63617265

// EnsureSchema creates kv_entries when missing. Safe on every startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", schemaLockID); err != nil {
		return fmt.Errorf("locking schema: %w", err)
	}
	defer conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", schemaLockID)

	if _, err := conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating kv_entries: %w", err)
	}
	return nil
}
