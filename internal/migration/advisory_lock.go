package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// advisoryLockKey serialises concurrent migrate runs across replicas.
const advisoryLockKey int64 = 7_301_554_210

func withAdvisoryLock(ctx context.Context, db *sql.DB, fn func(*sql.Conn) error) error {
	if db == nil {
		return errors.New("advisory lock requires database handle")
	}

	// Session-level locks belong to one connection, so pin it for the whole run.
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	var locked bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", advisoryLockKey).Scan(&locked); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !locked {
		return errors.New("another migration process holds the advisory lock")
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", advisoryLockKey)
	}()

	return fn(conn)
}
