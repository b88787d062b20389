package outbox

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	SourceWebhook   = "webhook"
	SourceAdmin     = "admin"
	SourceScheduler = "scheduler"
	SourceCheckout  = "checkout"
)

const (
	EventPaymentPending     = "payment.pending"
	EventPaymentPaid        = "payment.paid"
	EventPaymentFailed      = "payment.failed"
	EventPaymentCancelled   = "payment.cancelled"
	EventPaymentExpired     = "payment.expired"
	EventPaymentRefunded    = "payment.refunded"
	EventPaymentChargedBack = "payment.charged_back"
)

// Event is one entity payment status change. Rows are written in the same
// transaction as the change and stay pending until the notification
// dispatcher sets DispatchedAt.
type Event struct {
	ID           snowflake.ID  `json:"id" gorm:"primaryKey"`
	ChargeID     *snowflake.ID `json:"charge_id,omitempty"`
	EntityType   string        `json:"entity_type" gorm:"type:text;not null"`
	EntityID     snowflake.ID  `json:"entity_id" gorm:"not null"`
	EventType    string        `json:"event_type" gorm:"type:text;not null"`
	FromStatus   string        `json:"from_status" gorm:"type:text;not null"`
	ToStatus     string        `json:"to_status" gorm:"type:text;not null"`
	Source       string        `json:"source" gorm:"type:text;not null"`
	Provider     string        `json:"provider,omitempty" gorm:"type:text"`
	Amount       int64         `json:"amount"`
	Currency     string        `json:"currency,omitempty" gorm:"type:text"`
	Reason       string        `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt    time.Time     `json:"created_at" gorm:"not null"`
	DispatchedAt *time.Time    `json:"dispatched_at,omitempty"`
}

func (Event) TableName() string { return "payment_events" }

// EventTypeFor names the outbox event emitted when an entity enters status.
func EventTypeFor(status string) string {
	return "payment." + status
}
