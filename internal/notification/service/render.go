package service

import (
	"fmt"
	"strings"

	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	"github.com/railzwaylabs/federation/internal/notification/domain"
	"github.com/railzwaylabs/federation/internal/outbox"
)

// Notifiable reports whether the dispatcher sends anything for an outbox
// event type.
func Notifiable(eventType string) bool {
	switch eventType {
	case outbox.EventPaymentPaid, outbox.EventPaymentFailed, outbox.EventPaymentRefunded, outbox.EventPaymentChargedBack:
		return true
	}
	return false
}

func subjectLabel(t enrollmentdomain.EntityType) string {
	switch t {
	case enrollmentdomain.EntityMembership:
		return "tu afiliación"
	case enrollmentdomain.EntityEventRegistration:
		return "tu inscripción al evento"
	case enrollmentdomain.EntityClub:
		return "la afiliación del club"
	default:
		return "tu trámite"
	}
}

// FormatAmount renders minor units as "ARS 15000,00".
func FormatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s %s%d,%02d", strings.ToUpper(currency), sign, amount/100, amount%100)
}

// Render builds the message for one outbox event about entity.
func Render(event *outbox.Event, entity *enrollmentdomain.Entity) domain.Message {
	amount := event.Amount
	currency := event.Currency
	if amount == 0 {
		amount = entity.Amount
	}
	if currency == "" {
		currency = entity.Currency
	}
	price := FormatAmount(amount, currency)
	label := subjectLabel(entity.Type)

	var subject, body string
	switch event.EventType {
	case outbox.EventPaymentPaid:
		subject = "Pago confirmado"
		body = fmt.Sprintf("Hola %s, confirmamos el pago de %s correspondiente a %s. ¡Gracias!", entity.DisplayName, price, label)
	case outbox.EventPaymentFailed:
		subject = "Pago rechazado"
		body = fmt.Sprintf("Hola %s, el pago de %s para %s no pudo procesarse. Podés intentarlo nuevamente.", entity.DisplayName, price, label)
	case outbox.EventPaymentRefunded:
		subject = "Pago reintegrado"
		body = fmt.Sprintf("Hola %s, reintegramos el pago de %s correspondiente a %s.", entity.DisplayName, price, label)
	case outbox.EventPaymentChargedBack:
		subject = "Contracargo registrado"
		body = fmt.Sprintf("Hola %s, registramos un contracargo del pago de %s correspondiente a %s. Comunicate con la federación.", entity.DisplayName, price, label)
	default:
		subject = "Actualización de pago"
		body = fmt.Sprintf("Hola %s, el estado del pago de %s cambió a %s.", entity.DisplayName, label, event.ToStatus)
	}

	eventID := event.ID
	return domain.Message{
		EventID:  &eventID,
		Template: event.EventType,
		Subject:  subject,
		Body:     body,
		Data: map[string]any{
			"entity_type": string(entity.Type),
			"entity_id":   entity.ID.String(),
			"status":      event.ToStatus,
			"amount":      amount,
			"currency":    currency,
			"source":      event.Source,
		},
	}
}
