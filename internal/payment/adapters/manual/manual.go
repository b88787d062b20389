package manual

import (
	"context"

	"github.com/railzwaylabs/federation/internal/payment/domain"
)

const ProviderName = "manual"

// Factory builds adapters for offline payments (bank transfer, cash at the
// federation office). They never receive webhooks; an admin confirms them.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return ProviderName
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.PaymentAdapter, error) {
	return &Adapter{}, nil
}

type Adapter struct{}

func (a *Adapter) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.ProviderCharge, error) {
	return &domain.ProviderCharge{Reference: "manual-" + req.ChargeID.String()}, nil
}

func (a *Adapter) Verify(context.Context, domain.WebhookNotification) error {
	return domain.ErrInvalidSignature
}

func (a *Adapter) Parse(context.Context, domain.WebhookNotification) (string, error) {
	return "", domain.ErrEventIgnored
}

func (a *Adapter) FetchPayment(context.Context, string) (*domain.PaymentEvent, error) {
	return nil, domain.ErrUnsupported
}
