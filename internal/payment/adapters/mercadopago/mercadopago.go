package mercadopago

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	"github.com/railzwaylabs/federation/internal/payment/domain"
)

const (
	ProviderName   = "mercadopago"
	DefaultBaseURL = "https://api.mercadopago.com"
)

// Factory creates Mercado Pago adapters.
type Factory struct {
	baseURL       string
	client        *http.Client
	allowUnsigned bool
}

type FactoryOption func(*Factory)

func WithBaseURL(baseURL string) FactoryOption {
	return func(f *Factory) {
		if strings.TrimSpace(baseURL) != "" {
			f.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) FactoryOption {
	return func(f *Factory) {
		if client != nil {
			f.client = client
		}
	}
}

// AllowUnsigned accepts webhooks for configs that have no webhook secret.
func AllowUnsigned(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowUnsigned = allow
	}
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) Provider() string {
	return ProviderName
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.PaymentAdapter, error) {
	token := strings.TrimSpace(cfg.Credentials.AccessToken)
	if token == "" {
		return nil, domain.ErrInvalidConfig
	}
	return &Adapter{
		baseURL:       f.baseURL,
		client:        f.client,
		accessToken:   token,
		webhookSecret: strings.TrimSpace(cfg.Credentials.WebhookSecret),
		allowUnsigned: f.allowUnsigned,
	}, nil
}

// Adapter implements PaymentAdapter against the Mercado Pago REST API
// (Checkout Pro preferences + payments).
type Adapter struct {
	baseURL       string
	client        *http.Client
	accessToken   string
	webhookSecret string
	allowUnsigned bool
}

// paymentTypes maps our method names to Mercado Pago payment_type_id values.
var paymentTypes = map[string]string{
	"card":          "credit_card",
	"debit_card":    "debit_card",
	"ticket":        "ticket",
	"cash":          "ticket",
	"bank_transfer": "bank_transfer",
	"account_money": "account_money",
}

var allPaymentTypes = []string{"credit_card", "debit_card", "prepaid_card", "ticket", "atm", "bank_transfer", "account_money"}

func (a *Adapter) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.ProviderCharge, error) {
	mpType, ok := paymentTypes[req.Method]
	if !ok {
		return nil, domain.ErrUnsupportedMethod
	}

	body := preferenceRequest{
		Items: []preferenceItem{{
			ID:         req.EntityType + ":" + req.EntityID.String(),
			Title:      req.Title,
			Quantity:   1,
			CurrencyID: req.Currency,
			UnitPrice:  toMajorUnits(req.Amount),
		}},
		Payer: &preferencePayer{
			Name:  req.PayerName,
			Email: req.PayerEmail,
		},
		ExternalReference: req.ChargeID.String(),
		NotificationURL:   req.NotificationURL,
		StatementDesc:     "FEDERACION",
	}
	for _, t := range allPaymentTypes {
		if t != mpType {
			body.PaymentMethods.ExcludedPaymentTypes = append(body.PaymentMethods.ExcludedPaymentTypes, excludedType{ID: t})
		}
	}
	if req.BackURL != "" {
		body.BackURLs = &backURLs{Success: req.BackURL, Failure: req.BackURL, Pending: req.BackURL}
		body.AutoReturn = "approved"
	}
	if !req.ExpiresAt.IsZero() {
		body.Expires = true
		body.ExpirationDateTo = req.ExpiresAt.Format("2006-01-02T15:04:05.000-07:00")
	}

	var resp preferenceResponse
	if err := a.do(ctx, http.MethodPost, "/checkout/preferences", req.ChargeID.String(), body, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.ID) == "" || strings.TrimSpace(resp.InitPoint) == "" {
		return nil, fmt.Errorf("%w: preference response missing id or init_point", domain.ErrProviderRequest)
	}

	return &domain.ProviderCharge{
		Reference:   resp.ID,
		CheckoutURL: resp.InitPoint,
	}, nil
}

// Verify checks x-signature as HMAC-SHA256 over the manifest
// "id:<data.id>;request-id:<x-request-id>;ts:<x-timestamp>;".
func (a *Adapter) Verify(ctx context.Context, n domain.WebhookNotification) error {
	if a.webhookSecret == "" {
		if a.allowUnsigned {
			return nil
		}
		return domain.ErrInvalidSignature
	}

	dataID, err := dataIDOf(n)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	given, err := hex.DecodeString(signatureValue(n.Signature))
	if err != nil || len(given) == 0 {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(Manifest(dataID, n.RequestID, n.Timestamp)))
	if !hmac.Equal(mac.Sum(nil), given) {
		return domain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, n domain.WebhookNotification) (string, error) {
	var note notification
	if err := json.Unmarshal(n.Payload, &note); err != nil {
		return "", domain.ErrInvalidPayload
	}

	topic := strings.ToLower(strings.TrimSpace(note.Type))
	if topic == "" {
		topic = strings.ToLower(strings.TrimSpace(n.Query.Get("type")))
	}
	if topic == "" {
		topic = strings.ToLower(strings.TrimSpace(n.Query.Get("topic")))
	}
	if topic != "payment" {
		return "", domain.ErrEventIgnored
	}

	id, err := dataIDOf(n)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (a *Adapter) FetchPayment(ctx context.Context, paymentID string) (*domain.PaymentEvent, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, domain.ErrInvalidPayload
	}

	var p payment
	if err := a.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), "", nil, &p); err != nil {
		return nil, err
	}

	occurred := p.DateLastUpdated
	if occurred.IsZero() {
		occurred = p.DateCreated
	}

	return &domain.PaymentEvent{
		Provider:          ProviderName,
		PaymentID:         p.ID.String(),
		ExternalReference: strings.TrimSpace(p.ExternalReference),
		Status:            MapStatus(p.Status),
		ProviderStatus:    p.Status,
		StatusDetail:      p.StatusDetail,
		Amount:            toMinorUnits(p.TransactionAmount),
		Currency:          p.CurrencyID,
		PaymentType:       p.PaymentTypeID,
		OccurredAt:        occurred.UTC(),
	}, nil
}

// MapStatus converts a Mercado Pago payment status to an entity payment status.
func MapStatus(status string) enrollmentdomain.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved":
		return enrollmentdomain.StatusPaid
	case "rejected":
		return enrollmentdomain.StatusFailed
	case "cancelled":
		return enrollmentdomain.StatusCancelled
	case "refunded":
		return enrollmentdomain.StatusRefunded
	case "charged_back":
		return enrollmentdomain.StatusChargedBack
	default:
		// pending, in_process, authorized, in_mediation
		return enrollmentdomain.StatusPending
	}
}

// Manifest builds the string Mercado Pago signs for webhook notifications.
func Manifest(dataID, requestID, ts string) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), requestID, ts)
}

// Sign returns the hex signature for a manifest. Used by tests and tooling.
func Sign(secret, dataID, requestID, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(Manifest(dataID, requestID, ts)))
	return hex.EncodeToString(mac.Sum(nil))
}

// signatureValue accepts "<hex>", "v1=<hex>" or "ts=<ts>,v1=<hex>".
func signatureValue(header string) string {
	header = strings.TrimSpace(header)
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if found && strings.EqualFold(key, "v1") {
			return strings.TrimSpace(value)
		}
	}
	if strings.Contains(header, "=") {
		return ""
	}
	return header
}

func dataIDOf(n domain.WebhookNotification) (string, error) {
	if id := strings.TrimSpace(n.Query.Get("data.id")); id != "" {
		return id, nil
	}
	var note notification
	if err := json.Unmarshal(n.Payload, &note); err != nil {
		return "", domain.ErrInvalidPayload
	}
	id := strings.Trim(strings.TrimSpace(string(note.Data.ID)), `"`)
	if id == "" {
		return "", domain.ErrInvalidPayload
	}
	return id, nil
}

func (a *Adapter) do(ctx context.Context, method, path, idempotencyKey string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderRequest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", domain.ErrProviderRequest, err)
	}

	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return domain.ErrPaymentNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		return fmt.Errorf("%w: status=%d message=%s", domain.ErrProviderRequest, resp.StatusCode, apiErr.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrProviderRequest, err)
	}
	return nil
}

func toMajorUnits(minor int64) float64 {
	return float64(minor) / 100
}

func toMinorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}

