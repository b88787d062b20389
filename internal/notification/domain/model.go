package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	"gorm.io/gorm"
)

// Channels
const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
	ChannelWebhook  = "webhook"
)

var Channels = []string{ChannelWhatsApp, ChannelEmail, ChannelWebhook}

// Log statuses
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// NotificationConfig is the per-channel switch and its encrypted settings
// (tokens, SMTP credentials, target URL).
type NotificationConfig struct {
	Channel           string            `json:"channel" gorm:"primaryKey;type:text"`
	Enabled           bool              `json:"enabled" gorm:"not null;default:false"`
	MaxRetries        int               `json:"max_retries" gorm:"not null;default:3"`
	EncryptedSettings []byte            `json:"-"`
	SettingKeys       []string          `json:"setting_keys,omitempty" gorm:"-"`
	Settings          map[string]string `json:"-" gorm:"-"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (NotificationConfig) TableName() string { return "notification_configs" }

// NotificationLog is one delivery attempt. Rows are never updated.
type NotificationLog struct {
	ID        snowflake.ID  `json:"id" gorm:"primaryKey"`
	EventID   *snowflake.ID `json:"event_id,omitempty"`
	Channel   string        `json:"channel" gorm:"type:text;not null"`
	Recipient string        `json:"recipient" gorm:"type:text;not null"`
	Template  string        `json:"template" gorm:"type:text;not null"`
	Status    string        `json:"status" gorm:"type:text;not null"`
	Attempt   int           `json:"attempt" gorm:"not null"`
	Error     string        `json:"error,omitempty" gorm:"type:text"`
	CreatedAt time.Time     `json:"created_at" gorm:"not null"`
}

func (NotificationLog) TableName() string { return "notification_logs" }

// Message is a rendered notification ready for one channel.
type Message struct {
	EventID   *snowflake.ID
	Template  string
	Recipient string
	Subject   string
	Body      string
	Data      map[string]any
}

// Channel delivers messages. Settings are the decrypted channel settings.
type Channel interface {
	Name() string
	// Recipient picks the address for entity, empty when the entity has none.
	Recipient(entity *enrollmentdomain.Entity, settings map[string]string) string
	Send(ctx context.Context, settings map[string]string, msg Message) error
}

type LogFilter struct {
	Channel string
	Status  string
	EventID *snowflake.ID
	Limit   int
	Offset  int
}

type Repository interface {
	ListConfigs(ctx context.Context, db *gorm.DB) ([]*NotificationConfig, error)
	FindConfig(ctx context.Context, db *gorm.DB, channel string) (*NotificationConfig, error)
	SaveConfig(ctx context.Context, db *gorm.DB, cfg *NotificationConfig) error

	InsertLog(ctx context.Context, db *gorm.DB, log *NotificationLog) error
	ListLogs(ctx context.Context, db *gorm.DB, filter LogFilter) ([]*NotificationLog, error)
}

type UpsertConfigRequest struct {
	Enabled    *bool             `json:"enabled"`
	MaxRetries *int              `json:"max_retries"`
	Settings   map[string]string `json:"settings"`
}

type TestRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type Service interface {
	ListConfigs(ctx context.Context) ([]*NotificationConfig, error)
	GetConfig(ctx context.Context, channel string) (*NotificationConfig, error)
	UpsertConfig(ctx context.Context, channel string, req UpsertConfigRequest) (*NotificationConfig, error)
	ListLogs(ctx context.Context, filter LogFilter) ([]*NotificationLog, error)
	// SendTest sends one message over channel using its stored settings,
	// whether or not the channel is enabled, and logs the attempt.
	SendTest(ctx context.Context, channel string, req TestRequest) (*NotificationLog, error)
}
