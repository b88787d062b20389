package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/railzwaylabs/federation/internal/migration"
	"gorm.io/gorm"
)

var (
	ErrBootstrapStateInactive = errors.New("system bootstrap state is not active")
	ErrSchemaVersionMismatch  = errors.New("schema version mismatch")
	ErrSchemaChecksumMismatch = errors.New("schema checksum mismatch")
	ErrSchemaIncomplete       = errors.New("schema incomplete")
)

// requiredTables are the tables the payment, enrollment and notification
// services read on their first request.
var requiredTables = []string{
	"gateway_configs",
	"memberships",
	"event_registrations",
	"clubs",
	"charges",
	"webhook_events",
	"payment_events",
	"notification_configs",
	"notification_logs",
}

// requiredColumns are columns added after the initial schema, keyed by table.
var requiredColumns = map[string][]string{
	"payment_events": {"dispatched_at"},
}

// SchemaGate refuses to start a process against a database that the current
// binary's migrations have not been applied to, or whose federation tables
// were dropped after activation.
type SchemaGate interface {
	MustBeActive(ctx context.Context) error
}

type schemaGate struct {
	db               *gorm.DB
	expectedVersion  string
	expectedChecksum string
}

func NewSchemaGate(db *gorm.DB) (SchemaGate, error) {
	if db == nil {
		return nil, errors.New("schema gate requires database handle")
	}

	latest, err := migration.LatestMigrationVersion()
	if err != nil {
		return nil, err
	}
	checksum, err := migration.MigrationsChecksum()
	if err != nil {
		return nil, err
	}

	return &schemaGate{
		db:               db,
		expectedVersion:  strconv.FormatUint(uint64(latest), 10),
		expectedChecksum: checksum,
	}, nil
}

func (g *schemaGate) MustBeActive(ctx context.Context) error {
	state, err := loadSystemState(ctx, g.db)
	if err != nil {
		return err
	}

	if state.Status != StatusActive {
		return fmt.Errorf("%w: status=%s", ErrBootstrapStateInactive, state.Status)
	}
	if state.SchemaVersion != g.expectedVersion {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaVersionMismatch, state.SchemaVersion, g.expectedVersion)
	}
	if state.Checksum != nil {
		if sum := strings.TrimSpace(*state.Checksum); sum != "" && sum != g.expectedChecksum {
			return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaChecksumMismatch, sum, g.expectedChecksum)
		}
	}
	return g.checkTables(ctx)
}

func (g *schemaGate) checkTables(ctx context.Context) error {
	migrator := g.db.WithContext(ctx).Migrator()
	var missing []string
	for _, table := range requiredTables {
		if !migrator.HasTable(table) {
			missing = append(missing, table)
			continue
		}
		for _, column := range requiredColumns[table] {
			if !migrator.HasColumn(table, column) {
				missing = append(missing, table+"."+column)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrSchemaIncomplete, strings.Join(missing, ", "))
	}
	return nil
}
