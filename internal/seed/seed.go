// Package seed creates the initial gateway configs from the environment.
package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/railzwaylabs/federation/internal/config"
	gatewaydomain "github.com/railzwaylabs/federation/internal/gateway/domain"
	"go.uber.org/zap"
)

const (
	mercadoPagoDisplay = "Mercado Pago"
	manualDisplay      = "Transferencia o efectivo"

	mercadoPagoPriority = 100
	manualPriority      = 0
)

var (
	mercadoPagoMethods = []string{"card", "debit_card", "ticket", "account_money"}
	manualMethods      = []string{"bank_transfer", "cash"}
	allEntityTypes     = []string{"membership", "event_registration", "club"}
)

// Result reports what EnsureGateways did per provider: "created",
// "updated" or "skipped".
type Result struct {
	MercadoPago string `json:"mercadopago"`
	Manual      string `json:"manual"`
}

// EnsureGateways makes sure the Mercado Pago config (when credentials are
// set) and the manual gateway exist. Running it again refreshes the Mercado
// Pago credentials and leaves admin edits to other fields alone.
func EnsureGateways(ctx context.Context, gateways gatewaydomain.Service, cfg config.Config, log *zap.Logger) (*Result, error) {
	if gateways == nil {
		return nil, errors.New("seed gateway service is required")
	}
	log = log.Named("seed")

	existing, err := gateways.List(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{MercadoPago: "skipped", Manual: "skipped"}

	mp := cfg.MercadoPago
	if strings.TrimSpace(mp.AccessToken) != "" {
		if current := find(existing, gatewaydomain.ProviderMercadoPago, mercadoPagoDisplay); current != nil {
			token, public, secret := mp.AccessToken, mp.PublicKey, mp.WebhookSecret
			if _, err := gateways.Update(ctx, current.ID.String(), gatewaydomain.UpdateRequest{
				AccessToken:   &token,
				PublicKey:     &public,
				WebhookSecret: &secret,
			}); err != nil {
				return nil, err
			}
			result.MercadoPago = "updated"
		} else {
			if _, err := gateways.Create(ctx, gatewaydomain.CreateRequest{
				Provider:       gatewaydomain.ProviderMercadoPago,
				DisplayName:    mercadoPagoDisplay,
				IsActive:       true,
				Priority:       mercadoPagoPriority,
				AllowedMethods: mercadoPagoMethods,
				EntityTypes:    allEntityTypes,
				CheckoutType:   gatewaydomain.CheckoutRedirect,
				PublicKey:      mp.PublicKey,
				AccessToken:    mp.AccessToken,
				WebhookSecret:  mp.WebhookSecret,
			}); err != nil {
				return nil, err
			}
			result.MercadoPago = "created"
		}
		if strings.TrimSpace(mp.WebhookSecret) == "" {
			log.Warn("mercadopago gateway has no webhook secret; webhooks are rejected unless unsigned webhooks are allowed")
		}
	} else {
		log.Info("MERCADOPAGO_ACCESS_TOKEN not set, skipping mercadopago gateway")
	}

	if find(existing, gatewaydomain.ProviderManual, "") == nil {
		if _, err := gateways.Create(ctx, gatewaydomain.CreateRequest{
			Provider:       gatewaydomain.ProviderManual,
			DisplayName:    manualDisplay,
			IsActive:       true,
			Priority:       manualPriority,
			AllowedMethods: manualMethods,
			EntityTypes:    allEntityTypes,
		}); err != nil {
			return nil, err
		}
		result.Manual = "created"
	}

	log.Info("gateway seed completed",
		zap.String("mercadopago", result.MercadoPago),
		zap.String("manual", result.Manual),
	)
	return result, nil
}

// find returns the first config of provider, matching displayName when set.
func find(items []*gatewaydomain.GatewayConfig, provider, displayName string) *gatewaydomain.GatewayConfig {
	for _, item := range items {
		if item.Provider != provider {
			continue
		}
		if displayName != "" && item.DisplayName != displayName {
			continue
		}
		return item
	}
	return nil
}
