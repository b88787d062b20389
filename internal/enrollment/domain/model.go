package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Billing is embedded in every payable entity.
type Billing struct {
	FeeAmount     int64         `json:"fee_amount" gorm:"not null"`
	Currency      string        `json:"currency" gorm:"type:text;not null"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"type:text;not null"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

type Membership struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey"`
	MemberName string        `json:"member_name" gorm:"type:text;not null"`
	DocumentID string        `json:"document_id" gorm:"type:text;not null;uniqueIndex:ux_memberships_document_season"`
	Email      string        `json:"email" gorm:"type:text;not null"`
	Phone      string        `json:"phone,omitempty" gorm:"type:text"`
	ClubID     *snowflake.ID `json:"club_id,omitempty"`
	Season     string        `json:"season" gorm:"type:text;not null;uniqueIndex:ux_memberships_document_season"`
	Billing    `gorm:"embedded"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"not null"`
}

func (Membership) TableName() string { return "memberships" }

type EventRegistration struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	EventID         string       `json:"event_id" gorm:"type:text;not null"`
	ParticipantName string       `json:"participant_name" gorm:"type:text;not null"`
	Email           string       `json:"email" gorm:"type:text;not null"`
	Phone           string       `json:"phone,omitempty" gorm:"type:text"`
	Category        string       `json:"category,omitempty" gorm:"type:text"`
	Billing         `gorm:"embedded"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"not null"`
}

func (EventRegistration) TableName() string { return "event_registrations" }

type Club struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Name         string       `json:"name" gorm:"type:text;not null"`
	Slug         string       `json:"slug" gorm:"type:text;not null;uniqueIndex:ux_clubs_slug_season"`
	ContactEmail string       `json:"contact_email" gorm:"type:text;not null"`
	Phone        string       `json:"phone,omitempty" gorm:"type:text"`
	Season       string       `json:"season" gorm:"type:text;not null;uniqueIndex:ux_clubs_slug_season"`
	LogoURL      string       `json:"logo_url,omitempty" gorm:"type:text"`
	Billing      `gorm:"embedded"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null"`
}

func (Club) TableName() string { return "clubs" }

// Entity is the type-independent view of a payable entity.
type Entity struct {
	Type          EntityType    `json:"type"`
	ID            snowflake.ID  `json:"id"`
	DisplayName   string        `json:"display_name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone,omitempty"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (m *Membership) Entity() *Entity {
	return &Entity{
		Type: EntityMembership, ID: m.ID, DisplayName: m.MemberName,
		Email: m.Email, Phone: m.Phone,
		Amount: m.FeeAmount, Currency: m.Currency,
		PaymentStatus: m.PaymentStatus, PaidAt: m.PaidAt,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func (r *EventRegistration) Entity() *Entity {
	return &Entity{
		Type: EntityEventRegistration, ID: r.ID, DisplayName: r.ParticipantName,
		Email: r.Email, Phone: r.Phone,
		Amount: r.FeeAmount, Currency: r.Currency,
		PaymentStatus: r.PaymentStatus, PaidAt: r.PaidAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func (c *Club) Entity() *Entity {
	return &Entity{
		Type: EntityClub, ID: c.ID, DisplayName: c.Name,
		Email: c.ContactEmail, Phone: c.Phone,
		Amount: c.FeeAmount, Currency: c.Currency,
		PaymentStatus: c.PaymentStatus, PaidAt: c.PaidAt,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

// TableFor maps an entity type to its table.
func TableFor(t EntityType) (string, error) {
	switch t {
	case EntityMembership:
		return Membership{}.TableName(), nil
	case EntityEventRegistration:
		return EventRegistration{}.TableName(), nil
	case EntityClub:
		return Club{}.TableName(), nil
	default:
		return "", ErrInvalidEntityType
	}
}
