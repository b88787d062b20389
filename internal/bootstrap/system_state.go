package bootstrap

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

const StatusActive = "active"

var ErrBootstrapStateNotFound = errors.New("system bootstrap state not found")

type systemState struct {
	Status        string  `gorm:"column:status"`
	SchemaVersion string  `gorm:"column:schema_version"`
	Checksum      *string `gorm:"column:checksum"`
}

func loadSystemState(ctx context.Context, db *gorm.DB) (*systemState, error) {
	var state systemState
	result := db.WithContext(ctx).
		Table("system_bootstrap_state").
		Select("status, schema_version, checksum").
		Where("id = ?", true).
		Limit(1).
		Scan(&state)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrBootstrapStateNotFound
	}

	state.Status = strings.ToLower(strings.TrimSpace(state.Status))
	state.SchemaVersion = strings.TrimSpace(state.SchemaVersion)
	return &state, nil
}
