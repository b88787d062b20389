package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/federation/internal/clock"
	"github.com/railzwaylabs/federation/internal/config"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	enrollmentrepo "github.com/railzwaylabs/federation/internal/enrollment/repository"
	enrollmentservice "github.com/railzwaylabs/federation/internal/enrollment/service"
	gatewaydomain "github.com/railzwaylabs/federation/internal/gateway/domain"
	gatewayrepo "github.com/railzwaylabs/federation/internal/gateway/repository"
	gatewayservice "github.com/railzwaylabs/federation/internal/gateway/service"
	notificationdomain "github.com/railzwaylabs/federation/internal/notification/domain"
	"github.com/railzwaylabs/federation/internal/observability"
	"github.com/railzwaylabs/federation/internal/outbox"
	paymentdomain "github.com/railzwaylabs/federation/internal/payment/domain"
	"github.com/railzwaylabs/federation/internal/security/vault"
	"github.com/railzwaylabs/federation/internal/storage"
	"github.com/railzwaylabs/federation/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAdminKey = "admin-secret"

type fakeWebhooks struct {
	provider string
	payload  []byte
	headers  http.Header
	result   *paymentdomain.WebhookResult
	err      error
}

func (f *fakeWebhooks) IngestWebhook(_ context.Context, provider string, payload []byte, headers http.Header, _ url.Values) (*paymentdomain.WebhookResult, error) {
	f.provider = provider
	f.payload = payload
	f.headers = headers
	return f.result, f.err
}

func (f *fakeWebhooks) PurgeWebhookEvents(context.Context) (int64, error) { return 0, nil }

type fakeCheckout struct {
	confirmedID     string
	confirmedReason string
	listReq         paymentdomain.ListChargesRequest
	result          *paymentdomain.CheckoutResult
	err             error
}

func (f *fakeCheckout) CreateCheckout(_ context.Context, req paymentdomain.CheckoutRequest) (*paymentdomain.CheckoutResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeCheckout) GetCharge(_ context.Context, id string) (*paymentdomain.Charge, error) {
	return nil, paymentdomain.ErrChargeNotFound
}

func (f *fakeCheckout) ListCharges(_ context.Context, req paymentdomain.ListChargesRequest) ([]*paymentdomain.Charge, error) {
	f.listReq = req
	return []*paymentdomain.Charge{}, nil
}

func (f *fakeCheckout) ConfirmManualCharge(_ context.Context, id string, reason string) (*paymentdomain.Charge, error) {
	f.confirmedID = id
	f.confirmedReason = reason
	if f.err != nil {
		return nil, f.err
	}
	return &paymentdomain.Charge{Status: enrollmentdomain.StatusPaid}, nil
}

func (f *fakeCheckout) ExpireStaleCharges(context.Context) (int, error) { return 0, nil }

type fakeNotifications struct {
	filter notificationdomain.LogFilter
}

func (f *fakeNotifications) ListConfigs(context.Context) ([]*notificationdomain.NotificationConfig, error) {
	return []*notificationdomain.NotificationConfig{}, nil
}

func (f *fakeNotifications) GetConfig(_ context.Context, channel string) (*notificationdomain.NotificationConfig, error) {
	return nil, notificationdomain.ErrChannelNotConfigured
}

func (f *fakeNotifications) UpsertConfig(_ context.Context, channel string, req notificationdomain.UpsertConfigRequest) (*notificationdomain.NotificationConfig, error) {
	if channel != notificationdomain.ChannelEmail {
		return nil, notificationdomain.ErrUnknownChannel
	}
	return &notificationdomain.NotificationConfig{Channel: channel, Enabled: req.Enabled != nil && *req.Enabled}, nil
}

func (f *fakeNotifications) ListLogs(_ context.Context, filter notificationdomain.LogFilter) ([]*notificationdomain.NotificationLog, error) {
	f.filter = filter
	return []*notificationdomain.NotificationLog{}, nil
}

func (f *fakeNotifications) SendTest(_ context.Context, channel string, req notificationdomain.TestRequest) (*notificationdomain.NotificationLog, error) {
	return &notificationdomain.NotificationLog{Channel: channel, Recipient: req.Recipient, Status: notificationdomain.StatusSent, Attempt: 1}, nil
}

type fakeAssets struct {
	uploaded    []byte
	contentType string
	presignTTL  time.Duration
}

func (f *fakeAssets) UploadLogo(_ context.Context, name string, r io.Reader, size int64, contentType string) (*storage.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if contentType != "image/png" {
		return nil, storage.ErrInvalidContentType
	}
	f.uploaded = data
	f.contentType = contentType
	return &storage.Object{
		Bucket:      "logos",
		Key:         "escudo-1772366400.png",
		URL:         "http://minio.local/logos/escudo-1772366400.png",
		Size:        size,
		ContentType: contentType,
	}, nil
}

func (f *fakeAssets) PresignDocument(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.presignTTL = ttl
	return "http://minio.local/fgc/" + key + "?X-Amz-Signature=abc", nil
}

type fixture struct {
	srv           *Server
	db            *gorm.DB
	redis         *miniredis.Miniredis
	enrollment    enrollmentdomain.Service
	webhooks      *fakeWebhooks
	checkout      *fakeCheckout
	notifications *fakeNotifications
	assets        *fakeAssets
}

func newFixture(t *testing.T, adminKey string) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t,
		&enrollmentdomain.Membership{},
		&enrollmentdomain.EventRegistration{},
		&enrollmentdomain.Club{},
		&gatewaydomain.GatewayConfig{},
		&outbox.Event{},
	)
	node := testutil.NewNode(t)
	clk := clock.Fixed{At: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	log := zap.NewNop()

	v, err := vault.NewAESVault("server-test-key")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	enrollment := enrollmentservice.New(enrollmentservice.Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Clock:  clk,
		Repo:   enrollmentrepo.NewRepository(db),
		Outbox: outbox.NewRepository(db),
	})
	gateways := gatewayservice.New(gatewayservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  gatewayrepo.NewRepository(db),
		Vault: v,
	})

	f := &fixture{
		db:            db,
		redis:         mr,
		enrollment:    enrollment,
		webhooks:      &fakeWebhooks{result: &paymentdomain.WebhookResult{Outcome: paymentdomain.OutcomeProcessed}},
		checkout:      &fakeCheckout{},
		notifications: &fakeNotifications{},
		assets:        &fakeAssets{},
	}
	f.srv = New(Params{
		Log:           log,
		Cfg:           config.Config{Admin: config.AdminConfig{APIKey: adminKey}},
		DB:            db,
		Redis:         rdb,
		Metrics:       observability.NewMetrics(),
		Enrollment:    enrollment,
		Gateways:      gateways,
		Checkout:      f.checkout,
		Webhooks:      f.webhooks,
		Notifications: f.notifications,
	})
	f.srv.assets = f.assets
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	resp := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(resp, req)
	return resp
}

func adminHeader() http.Header {
	return http.Header{"Authorization": {"Bearer " + testAdminKey}}
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env.Error
}

func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env.Data
}

func TestHealth(t *testing.T) {
	f := newFixture(t, testAdminKey)

	resp := f.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Equal(t, "ok", body.Checks["redis"])

	f.redis.SetError("ERR server unavailable")
	resp = f.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "down", body.Checks["redis"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t, testAdminKey)

	resp := f.do(t, http.MethodGet, "/health", nil, http.Header{HeaderRequestID: {"req-123"}})
	assert.Equal(t, "req-123", resp.Header().Get(HeaderRequestID))

	resp = f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Len(t, resp.Header().Get(HeaderRequestID), 36)
}

func TestAdminAuth(t *testing.T) {
	f := newFixture(t, testAdminKey)

	cases := map[string]http.Header{
		"missing header": nil,
		"wrong scheme":   {"Authorization": {"Basic " + testAdminKey}},
		"wrong key":      {"Authorization": {"Bearer nope"}},
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			resp := f.do(t, http.MethodGet, "/api/admin/gateways", nil, header)
			require.Equal(t, http.StatusUnauthorized, resp.Code)
			assert.Equal(t, ErrorTypeUnauthorized, decodeError(t, resp).Type)
		})
	}

	resp := f.do(t, http.MethodGet, "/api/admin/gateways", nil, adminHeader())
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	f := newFixture(t, "")

	resp := f.do(t, http.MethodGet, "/api/admin/gateways", nil, http.Header{"Authorization": {"Bearer "}})
	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, ErrorTypeForbidden, decodeError(t, resp).Type)
}

func TestWebhookPassesRequestThrough(t *testing.T) {
	f := newFixture(t, testAdminKey)
	payload := []byte(`{"type":"payment","data":{"id":"123"}}`)

	resp := f.do(t, http.MethodPost, "/api/webhooks/payment?provider=mercadopago", payload, http.Header{
		"X-Signature":  {"ts=1,v1=abc"},
		"X-Timestamp":  {"1772366400"},
		"X-Request-Id": {"mp-req-1"},
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"processed"}`, resp.Body.String())
	assert.Equal(t, "mercadopago", f.webhooks.provider)
	assert.Equal(t, payload, f.webhooks.payload)
	assert.Equal(t, "mp-req-1", f.webhooks.headers.Get("x-request-id"))
	assert.Equal(t, "mp-req-1", resp.Header().Get(HeaderRequestID))
}

func TestWebhookErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{paymentdomain.ErrMissingWebhookHeaders, http.StatusBadRequest, ErrorTypeInvalidRequest},
		{paymentdomain.ErrInvalidPayload, http.StatusBadRequest, ErrorTypeInvalidRequest},
		{paymentdomain.ErrStaleTimestamp, http.StatusUnauthorized, ErrorTypeUnauthorized},
		{paymentdomain.ErrInvalidSignature, http.StatusUnauthorized, ErrorTypeUnauthorized},
		{paymentdomain.ErrProviderNotFound, http.StatusNotFound, ErrorTypeNotFound},
		{paymentdomain.ErrProviderRequest, http.StatusInternalServerError, ErrorTypeProvider},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			f := newFixture(t, testAdminKey)
			f.webhooks.err = tc.err

			resp := f.do(t, http.MethodPost, "/api/webhooks/payment?provider=mercadopago", []byte(`{}`), nil)
			require.Equal(t, tc.status, resp.Code)
			body := decodeError(t, resp)
			assert.Equal(t, tc.kind, body.Type)
			assert.Equal(t, tc.err.Error(), body.Message)
		})
	}
}

func TestUnknownErrorIsHidden(t *testing.T) {
	f := newFixture(t, testAdminKey)
	f.webhooks.err = errors.New("pq: connection reset by peer")

	resp := f.do(t, http.MethodPost, "/api/webhooks/payment?provider=mercadopago", []byte(`{}`), nil)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	body := decodeError(t, resp)
	assert.Equal(t, ErrorTypeInternal, body.Type)
	assert.Equal(t, "internal error", body.Message)
}

func TestWebhookBodyLimit(t *testing.T) {
	f := newFixture(t, testAdminKey)

	resp := f.do(t, http.MethodPost, "/api/webhooks/payment?provider=mercadopago", bytes.Repeat([]byte("a"), maxWebhookBody+1), nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	body := decodeError(t, resp)
	assert.Equal(t, ErrorTypeInvalidRequest, body.Type)
	assert.Equal(t, ErrPayloadTooBig.Error(), body.Message)
	assert.Nil(t, f.webhooks.payload)
}

func TestEntityRoutes(t *testing.T) {
	f := newFixture(t, testAdminKey)

	resp := f.do(t, http.MethodPost, "/api/memberships", map[string]any{
		"member_name": "Lucia Gomez",
		"document_id": "30111222",
		"email":       "lucia@example.com",
		"season":      "2026",
		"fee_amount":  1500000,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.Code)
	membership := decodeData[enrollmentdomain.Membership](t, resp)
	assert.Equal(t, enrollmentdomain.StatusPending, membership.PaymentStatus)

	resp = f.do(t, http.MethodPost, "/api/memberships", map[string]any{
		"member_name": "Lucia Gomez",
		"document_id": "30111222",
		"email":       "lucia@example.com",
		"season":      "2026",
		"fee_amount":  1500000,
	}, nil)
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/entities/membership/"+membership.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	entity := decodeData[enrollmentdomain.Entity](t, resp)
	assert.Equal(t, "Lucia Gomez", entity.DisplayName)
	assert.Equal(t, int64(1500000), entity.Amount)

	resp = f.do(t, http.MethodGet, "/api/entities/trophy/"+membership.ID.String(), nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/entities/membership/42", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = f.do(t, http.MethodPost, "/api/registrations/events", []byte(`{"event_id":`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOverrideEntityStatus(t *testing.T) {
	f := newFixture(t, testAdminKey)
	club, err := f.enrollment.CreateClub(context.Background(), enrollmentdomain.CreateClubRequest{
		Name:         "Club Atletico Norte",
		ContactEmail: "secretaria@norte.example",
		Season:       "2026",
		FeeAmount:    9000000,
	})
	require.NoError(t, err)
	path := "/api/admin/entities/club/" + club.ID.String() + "/status"

	resp := f.do(t, http.MethodPost, path, map[string]string{"status": "paid"}, adminHeader())
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodPost, path, map[string]string{"status": "paid", "reason": "pago en sede"}, adminHeader())
	require.Equal(t, http.StatusOK, resp.Code)
	transition := decodeData[enrollmentdomain.Transition](t, resp)
	assert.Equal(t, enrollmentdomain.StatusPending, transition.From)
	assert.Equal(t, enrollmentdomain.StatusPaid, transition.To)

	resp = f.do(t, http.MethodGet, "/api/admin/entities/club?status=paid", nil, adminHeader())
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeData[[]enrollmentdomain.Entity](t, resp), 1)

	resp = f.do(t, http.MethodGet, "/api/admin/entities/club?limit=abc", nil, adminHeader())
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGatewayRoutes(t *testing.T) {
	f := newFixture(t, testAdminKey)

	resp := f.do(t, http.MethodPost, "/api/admin/gateways", map[string]any{
		"provider":        "mercadopago",
		"display_name":    "Mercado Pago",
		"is_active":       true,
		"priority":        100,
		"allowed_methods": []string{"card"},
		"entity_types":    []string{"membership"},
		"checkout_type":   "redirect",
		"access_token":    "APP_USR-secret-token",
		"webhook_secret":  "whsec",
	}, adminHeader())
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.NotContains(t, resp.Body.String(), "APP_USR-secret-token")
	assert.NotContains(t, resp.Body.String(), `"whsec"`)
	created := decodeData[gatewaydomain.GatewayConfig](t, resp)
	assert.True(t, created.HasAccessToken)
	id := created.ID.String()

	resp = f.do(t, http.MethodPost, "/api/admin/gateways/"+id+"/toggle", map[string]any{}, adminHeader())
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodPost, "/api/admin/gateways/"+id+"/toggle", map[string]any{"is_active": false}, adminHeader())
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, decodeData[gatewaydomain.GatewayConfig](t, resp).IsActive)

	resp = f.do(t, http.MethodPatch, "/api/admin/gateways/"+id, map[string]any{"priority": 5}, adminHeader())
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 5, decodeData[gatewaydomain.GatewayConfig](t, resp).Priority)

	resp = f.do(t, http.MethodPost, "/api/admin/gateways", map[string]any{
		"provider":     "stripe",
		"display_name": "Stripe",
	}, adminHeader())
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodDelete, "/api/admin/gateways/"+id, nil, adminHeader())
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/admin/gateways/"+id, nil, adminHeader())
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCheckoutRoutes(t *testing.T) {
	f := newFixture(t, testAdminKey)
	f.checkout.result = &paymentdomain.CheckoutResult{
		Charge:       &paymentdomain.Charge{Status: enrollmentdomain.StatusPending},
		CheckoutURL:  "https://www.mercadopago.com.ar/checkout/v1/redirect?pref_id=1",
		CheckoutType: gatewaydomain.CheckoutRedirect,
	}

	resp := f.do(t, http.MethodPost, "/api/checkout", map[string]string{"entity_type": "membership", "entity_id": "1", "method": "card"}, nil)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, f.checkout.result.CheckoutURL, decodeData[paymentdomain.CheckoutResult](t, resp).CheckoutURL)

	f.checkout.result.Reused = true
	resp = f.do(t, http.MethodPost, "/api/checkout", map[string]string{"entity_type": "membership", "entity_id": "1", "method": "card"}, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/charges/99", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	f.checkout.err = gatewaydomain.ErrNoGatewayAvailable
	resp = f.do(t, http.MethodPost, "/api/checkout", map[string]string{"entity_type": "membership", "entity_id": "1", "method": "cash"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestConfirmCharge(t *testing.T) {
	f := newFixture(t, testAdminKey)

	resp := f.do(t, http.MethodPost, "/api/admin/charges/777/confirm", map[string]string{"reason": "transferencia 0042"}, adminHeader())
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "777", f.checkout.confirmedID)
	assert.Equal(t, "transferencia 0042", f.checkout.confirmedReason)

	resp = f.do(t, http.MethodPost, "/api/admin/charges/777/confirm", map[string]string{"reason": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	f.checkout.err = paymentdomain.ErrAlreadyPaid
	resp = f.do(t, http.MethodPost, "/api/admin/charges/777/confirm", map[string]string{"reason": "x"}, adminHeader())
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, ErrorTypeConflict, decodeError(t, resp).Type)

	resp = f.do(t, http.MethodGet, "/api/admin/charges?entity_type=club&status=pending&limit=500", nil, adminHeader())
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "club", f.checkout.listReq.EntityType)
	assert.Equal(t, maxPageLimit, f.checkout.listReq.Limit)
}

func TestNotificationRoutes(t *testing.T) {
	f := newFixture(t, testAdminKey)

	resp := f.do(t, http.MethodPut, "/api/admin/notifications/configs/email", map[string]any{"enabled": true}, adminHeader())
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decodeData[notificationdomain.NotificationConfig](t, resp).Enabled)

	resp = f.do(t, http.MethodPut, "/api/admin/notifications/configs/telegram", map[string]any{"enabled": true}, adminHeader())
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/admin/notifications/configs/webhook", nil, adminHeader())
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = f.do(t, http.MethodPost, "/api/admin/notifications/configs/email/test", map[string]string{"recipient": "ops@federation.example"}, adminHeader())
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, notificationdomain.StatusSent, decodeData[notificationdomain.NotificationLog](t, resp).Status)

	eventID := snowflake.ID(1234)
	resp = f.do(t, http.MethodGet, "/api/admin/notifications/logs?channel=email&status=failed&event_id="+eventID.String(), nil, adminHeader())
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "email", f.notifications.filter.Channel)
	assert.Equal(t, "failed", f.notifications.filter.Status)
	require.NotNil(t, f.notifications.filter.EventID)
	assert.Equal(t, eventID, *f.notifications.filter.EventID)

	resp = f.do(t, http.MethodGet, "/api/admin/notifications/logs?event_id=nope", nil, adminHeader())
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func multipartLogo(t *testing.T, contentType string, clubID string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="Escudo.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG logo"))
	require.NoError(t, err)
	if clubID != "" {
		require.NoError(t, w.WriteField("club_id", clubID))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestUploadLogo(t *testing.T) {
	f := newFixture(t, testAdminKey)
	club, err := f.enrollment.CreateClub(context.Background(), enrollmentdomain.CreateClubRequest{
		Name:         "Club Atletico Norte",
		ContactEmail: "secretaria@norte.example",
		Season:       "2026",
		FeeAmount:    9000000,
	})
	require.NoError(t, err)

	resp := f.do(t, http.MethodPost, "/api/admin/assets/logos", map[string]string{"file": "logo"}, adminHeader())
	require.Equal(t, http.StatusBadRequest, resp.Code)

	body, contentType := multipartLogo(t, "image/png", club.ID.String())
	req := httptest.NewRequest(http.MethodPost, "/api/admin/assets/logos", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	obj := decodeData[storage.Object](t, rec)
	assert.Equal(t, "http://minio.local/logos/escudo-1772366400.png", obj.URL)
	assert.Equal(t, []byte("\x89PNG logo"), f.assets.uploaded)

	var stored enrollmentdomain.Club
	require.NoError(t, f.db.First(&stored, "id = ?", club.ID).Error)
	assert.Equal(t, obj.URL, stored.LogoURL)

	gif, gifType := multipartLogo(t, "image/gif", "")
	req = httptest.NewRequest(http.MethodPost, "/api/admin/assets/logos", gif)
	req.Header.Set("Content-Type", gifType)
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	rec = httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPresignDocument(t *testing.T) {
	f := newFixture(t, testAdminKey)

	resp := f.do(t, http.MethodGet, "/api/admin/assets/documents/presign?key=actas/2026-03.pdf&ttl=30m", nil, adminHeader())
	require.Equal(t, http.StatusOK, resp.Code)
	out := decodeData[presignResponse](t, resp)
	assert.True(t, strings.HasPrefix(out.URL, "http://minio.local/fgc/actas/2026-03.pdf"))
	assert.Equal(t, 30*time.Minute, f.assets.presignTTL)

	resp = f.do(t, http.MethodGet, "/api/admin/assets/documents/presign?key=actas/2026-03.pdf&ttl=600", nil, adminHeader())
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 10*time.Minute, f.assets.presignTTL)

	resp = f.do(t, http.MethodGet, "/api/admin/assets/documents/presign?key=&ttl=600", nil, adminHeader())
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/admin/assets/documents/presign?key=a.pdf&ttl=soon", nil, adminHeader())
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAssetsWithoutStorage(t *testing.T) {
	f := newFixture(t, testAdminKey)
	f.srv.assets = nil

	resp := f.do(t, http.MethodGet, "/api/admin/assets/documents/presign?key=a.pdf", nil, adminHeader())
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, storage.ErrStorageUnavailable.Error(), decodeError(t, resp).Message)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, testAdminKey)
	f.do(t, http.MethodGet, "/health", nil, nil)

	resp := f.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `federation_http_request_duration_seconds_count{method="GET",route="/health",status="200"} 1`)
}

func TestNoRoute(t *testing.T) {
	f := newFixture(t, testAdminKey)

	resp := f.do(t, http.MethodGet, "/api/unknown", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, ErrorTypeNotFound, decodeError(t, resp).Type)
}
