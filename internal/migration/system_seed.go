package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type channelSeed struct {
	Channel    string
	MaxRetries int
}

// seedSystemImmutableData inserts one disabled notification config per channel
// so admins only ever update rows. Existing rows are left untouched.
func seedSystemImmutableData(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("system seed requires database handle")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin system seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := seedNotificationChannels(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit system seed transaction: %w", err)
	}
	return nil
}

func seedNotificationChannels(ctx context.Context, tx *sql.Tx) error {
	seeds := []channelSeed{
		{Channel: "whatsapp", MaxRetries: 3},
		{Channel: "email", MaxRetries: 3},
		{Channel: "webhook", MaxRetries: 5},
	}

	const stmt = `
		INSERT INTO notification_configs (channel, enabled, max_retries)
		VALUES ($1, FALSE, $2)
		ON CONFLICT (channel) DO NOTHING
	`

	for _, seed := range seeds {
		if _, err := tx.ExecContext(ctx, stmt, seed.Channel, seed.MaxRetries); err != nil {
			return fmt.Errorf("seed notification channel %s: %w", seed.Channel, err)
		}
	}
	return nil
}
