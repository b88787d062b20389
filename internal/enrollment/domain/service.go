package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateMembershipRequest struct {
	MemberName string  `json:"member_name"`
	DocumentID string  `json:"document_id"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	ClubID     *string `json:"club_id"`
	Season     string  `json:"season"`
	FeeAmount  int64   `json:"fee_amount"`
	Currency   string  `json:"currency"`
}

type CreateEventRegistrationRequest struct {
	EventID         string `json:"event_id"`
	ParticipantName string `json:"participant_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Category        string `json:"category"`
	FeeAmount       int64  `json:"fee_amount"`
	Currency        string `json:"currency"`
}

type CreateClubRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	Phone        string `json:"phone"`
	Season       string `json:"season"`
	FeeAmount    int64  `json:"fee_amount"`
	Currency     string `json:"currency"`
}

type ListRequest struct {
	EntityType string
	Status     string
	Limit      int
	Offset     int
}

// StatusChange describes one application of a payment status to an entity.
type StatusChange struct {
	EntityType EntityType   `json:"entity_type"`
	EntityID   snowflake.ID `json:"entity_id"`
	ChargeID   *snowflake.ID
	Provider   string
	Source     string
	Reason     string
	To         PaymentStatus
}

type Transition struct {
	Entity  *Entity       `json:"entity"`
	From    PaymentStatus `json:"from"`
	To      PaymentStatus `json:"to"`
	Changed bool          `json:"changed"`
}

type OverrideRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Status     string `json:"status"`
	Reason     string `json:"reason"`
}

type Service interface {
	CreateMembership(ctx context.Context, req CreateMembershipRequest) (*Membership, error)
	CreateEventRegistration(ctx context.Context, req CreateEventRegistrationRequest) (*EventRegistration, error)
	CreateClub(ctx context.Context, req CreateClubRequest) (*Club, error)

	Get(ctx context.Context, entityType string, id string) (*Entity, error)
	List(ctx context.Context, req ListRequest) ([]*Entity, error)

	// ApplyPaymentStatus applies a provider-driven status inside tx, honouring
	// CanTransition and writing an outbox event when the status changes.
	ApplyPaymentStatus(ctx context.Context, tx *gorm.DB, change StatusChange) (*Transition, error)
	// OverrideStatus sets any status, bypassing CanTransition. Recorded with source admin.
	OverrideStatus(ctx context.Context, req OverrideRequest) (*Transition, error)
	SetClubLogo(ctx context.Context, clubID string, logoURL string) error
}
