package webhook

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/railzwaylabs/federation/internal/clock"
	"github.com/railzwaylabs/federation/internal/config"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	enrollmentrepo "github.com/railzwaylabs/federation/internal/enrollment/repository"
	enrollmentservice "github.com/railzwaylabs/federation/internal/enrollment/service"
	gatewaydomain "github.com/railzwaylabs/federation/internal/gateway/domain"
	gatewayrepo "github.com/railzwaylabs/federation/internal/gateway/repository"
	gatewayservice "github.com/railzwaylabs/federation/internal/gateway/service"
	"github.com/railzwaylabs/federation/internal/observability"
	"github.com/railzwaylabs/federation/internal/outbox"
	"github.com/railzwaylabs/federation/internal/payment/adapters"
	"github.com/railzwaylabs/federation/internal/payment/adapters/manual"
	"github.com/railzwaylabs/federation/internal/payment/adapters/mercadopago"
	"github.com/railzwaylabs/federation/internal/payment/domain"
	"github.com/railzwaylabs/federation/internal/payment/repository"
	paymentservice "github.com/railzwaylabs/federation/internal/payment/service"
	"github.com/railzwaylabs/federation/internal/security/vault"
	"github.com/railzwaylabs/federation/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec-federation"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeMercadoPago serves GET /v1/payments/{id} from an in-memory table.
type fakeMercadoPago struct {
	mu       sync.Mutex
	payments map[string]string
	fetches  int
}

func (f *fakeMercadoPago) set(id, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[id] = body
}

func (f *fakeMercadoPago) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeMercadoPago) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++

	id := r.URL.Path[len("/v1/payments/"):]
	body, ok := f.payments[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"payment not found","status":404}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

type fixture struct {
	svc      *Service
	db       *gorm.DB
	repo     domain.Repository
	mp       *fakeMercadoPago
	redis    *miniredis.Miniredis
	member   *enrollmentdomain.Membership
	charge   *domain.Charge
	gateway  *gatewaydomain.GatewayConfig
	gateways gatewaydomain.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := testutil.NewDB(t,
		&enrollmentdomain.Membership{},
		&enrollmentdomain.EventRegistration{},
		&enrollmentdomain.Club{},
		&gatewaydomain.GatewayConfig{},
		&domain.Charge{},
		&domain.WebhookEvent{},
		&outbox.Event{},
	)
	node := testutil.NewNode(t)
	clk := clock.Fixed{At: testNow}
	log := zap.NewNop()

	v, err := vault.NewAESVault("webhook-test-key")
	require.NoError(t, err)
	gateways := gatewayservice.New(gatewayservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clk,
		Repo:  gatewayrepo.NewRepository(db),
		Vault: v,
	})
	enrollment := enrollmentservice.New(enrollmentservice.Params{
		DB:     db,
		Log:    log,
		GenID:  node,
		Clock:  clk,
		Repo:   enrollmentrepo.NewRepository(db),
		Outbox: outbox.NewRepository(db),
	})

	mp := &fakeMercadoPago{payments: map[string]string{}}
	srv := httptest.NewServer(mp)
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := repository.Provide(db)
	registry := adapters.NewRegistry(
		mercadopago.NewFactory(mercadopago.WithBaseURL(srv.URL)),
		manual.NewFactory(),
	)

	svc := NewService(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Cfg:      config.Config{Payment: config.PaymentConfig{WebhookTolerance: 5 * time.Minute, ReplayTTL: time.Hour}, WebhookRetentionDays: 30},
		Repo:     repo,
		Gateways: gateways,
		Adapters: registry,
		Applier:  paymentservice.NewStatusApplier(repo, enrollment, clk, log),
		Redis:    client,
	}).(*Service)

	gw, err := gateways.Create(ctx, gatewaydomain.CreateRequest{
		Provider:       "mercadopago",
		DisplayName:    "Mercado Pago",
		IsActive:       true,
		Priority:       10,
		AllowedMethods: []string{"card"},
		EntityTypes:    []string{"membership"},
		AccessToken:    "APP_USR-test",
		WebhookSecret:  webhookSecret,
	})
	require.NoError(t, err)

	member, err := enrollment.CreateMembership(ctx, enrollmentdomain.CreateMembershipRequest{
		MemberName: "Lucia Gomez",
		DocumentID: "30111222",
		Email:      "lucia@example.com",
		Season:     "2026",
		FeeAmount:  1500000,
	})
	require.NoError(t, err)

	expires := testNow.Add(48 * time.Hour)
	charge := &domain.Charge{
		ID:                node.Generate(),
		EntityType:        string(enrollmentdomain.EntityMembership),
		EntityID:          member.ID,
		GatewayConfigID:   gw.ID,
		Provider:          "mercadopago",
		Method:            "card",
		Amount:            1500000,
		Currency:          "ARS",
		Status:            enrollmentdomain.StatusPending,
		ProviderReference: "pref-1",
		ExpiresAt:         &expires,
		CreatedAt:         testNow,
		UpdatedAt:         testNow,
	}
	require.NoError(t, repo.InsertCharge(ctx, nil, charge))

	return &fixture{
		svc:      svc,
		db:       db,
		repo:     repo,
		mp:       mp,
		redis:    mr,
		member:   member,
		charge:   charge,
		gateway:  gw,
		gateways: gateways,
	}
}

func paymentBody(id, status, externalRef string, amount float64) string {
	return fmt.Sprintf(`{"id":%s,"status":%q,"status_detail":"detail","external_reference":%q,"transaction_amount":%.2f,"currency_id":"ARS","payment_type_id":"credit_card","date_created":"2026-03-01T08:59:00.000-03:00"}`,
		id, status, externalRef, amount)
}

func notificationHeaders(secret, paymentID, requestID, ts string) http.Header {
	h := http.Header{}
	h.Set("x-signature", "ts="+ts+",v1="+mercadopago.Sign(secret, paymentID, requestID, ts))
	h.Set("x-timestamp", ts)
	h.Set("x-request-id", requestID)
	return h
}

func notificationPayload(paymentID string) []byte {
	return []byte(`{"action":"payment.updated","type":"payment","data":{"id":"` + paymentID + `"},"payer":{"email":"lucia@example.com"}}`)
}

func (f *fixture) deliver(t *testing.T, paymentID, requestID string) (*domain.WebhookResult, error) {
	t.Helper()
	ts := strconv.FormatInt(testNow.Unix(), 10)
	return f.svc.IngestWebhook(context.Background(), "mercadopago",
		notificationPayload(paymentID),
		notificationHeaders(webhookSecret, paymentID, requestID, ts),
		url.Values{"provider": {"mercadopago"}},
	)
}

func (f *fixture) memberStatus(t *testing.T) enrollmentdomain.PaymentStatus {
	t.Helper()
	var m enrollmentdomain.Membership
	require.NoError(t, f.db.First(&m, "id = ?", f.member.ID).Error)
	return m.PaymentStatus
}

func (f *fixture) chargeStatus(t *testing.T) enrollmentdomain.PaymentStatus {
	t.Helper()
	c, err := f.repo.FindCharge(context.Background(), nil, f.charge.ID, false)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c.Status
}

func TestIngestRejectsMissingHeaders(t *testing.T) {
	f := setup(t)
	ts := strconv.FormatInt(testNow.Unix(), 10)

	for _, missing := range []string{"x-signature", "x-timestamp", "x-request-id"} {
		t.Run(missing, func(t *testing.T) {
			h := notificationHeaders(webhookSecret, "123", "req-1", ts)
			h.Del(missing)
			_, err := f.svc.IngestWebhook(context.Background(), "mercadopago", notificationPayload("123"), h, nil)
			assert.ErrorIs(t, err, domain.ErrMissingWebhookHeaders)
		})
	}
	assert.Zero(t, f.mp.fetchCount())
}

func TestIngestRejectsStaleTimestamp(t *testing.T) {
	f := setup(t)

	cases := map[string]string{
		"seconds old":    strconv.FormatInt(testNow.Add(-6*time.Minute).Unix(), 10),
		"seconds future": strconv.FormatInt(testNow.Add(6*time.Minute).Unix(), 10),
		"millis old":     strconv.FormatInt(testNow.Add(-10*time.Minute).UnixMilli(), 10),
		"rfc3339 old":    testNow.Add(-time.Hour).Format(time.RFC3339),
		"garbage":        "yesterday",
	}
	for name, ts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.IngestWebhook(context.Background(), "mercadopago",
				notificationPayload("123"),
				notificationHeaders(webhookSecret, "123", "req-"+name, ts),
				nil,
			)
			assert.ErrorIs(t, err, domain.ErrStaleTimestamp)
		})
	}
	assert.Equal(t, enrollmentdomain.StatusPending, f.memberStatus(t))
}

func TestIngestAcceptsTimestampFormatsWithinTolerance(t *testing.T) {
	f := setup(t)
	f.mp.set("900", paymentBody("900", "in_process", f.charge.ID.String(), 15000))

	for i, ts := range []string{
		strconv.FormatInt(testNow.Add(-4*time.Minute).Unix(), 10),
		strconv.FormatInt(testNow.Add(4*time.Minute).UnixMilli(), 10),
		testNow.Add(-time.Minute).Format(time.RFC3339),
	} {
		rid := fmt.Sprintf("req-fmt-%d", i)
		res, err := f.svc.IngestWebhook(context.Background(), "mercadopago",
			notificationPayload("900"), notificationHeaders(webhookSecret, "900", rid, ts), nil)
		require.NoError(t, err, ts)
		assert.Equal(t, domain.OutcomeProcessed, res.Outcome)
	}
}

func TestIngestRejectsInvalidSignature(t *testing.T) {
	f := setup(t)
	ts := strconv.FormatInt(testNow.Unix(), 10)

	_, err := f.svc.IngestWebhook(context.Background(), "mercadopago",
		notificationPayload("123"),
		notificationHeaders("wrong-secret", "123", "req-1", ts),
		nil,
	)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	// Signed for a different payment id.
	h := notificationHeaders(webhookSecret, "999", "req-2", ts)
	_, err = f.svc.IngestWebhook(context.Background(), "mercadopago", notificationPayload("123"), h, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.Zero(t, f.mp.fetchCount())
}

func TestIngestUnknownProvider(t *testing.T) {
	f := setup(t)
	ts := strconv.FormatInt(testNow.Unix(), 10)

	_, err := f.svc.IngestWebhook(context.Background(), "stripe",
		notificationPayload("1"), notificationHeaders(webhookSecret, "1", "req-1", ts), nil)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)

	// manual is registered but has no active webhook config.
	_, err = f.svc.IngestWebhook(context.Background(), "manual",
		notificationPayload("1"), notificationHeaders(webhookSecret, "1", "req-2", ts), nil)
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)

	_, err = f.svc.IngestWebhook(context.Background(), "",
		notificationPayload("1"), notificationHeaders(webhookSecret, "1", "req-3", ts), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)
}

func TestIngestMetricsLabelUnknownProviders(t *testing.T) {
	f := setup(t)
	metrics := observability.NewMetrics()
	f.svc.metrics = metrics

	ts := strconv.FormatInt(testNow.Unix(), 10)
	for i := 0; i < 20; i++ {
		_, err := f.svc.IngestWebhook(context.Background(), fmt.Sprintf("made-up-%d", i),
			notificationPayload("1"),
			notificationHeaders(webhookSecret, "1", fmt.Sprintf("req-unknown-%d", i), ts),
			nil,
		)
		assert.ErrorIs(t, err, domain.ErrProviderNotFound)
	}

	f.mp.set("123", paymentBody("123", "approved", f.charge.ID.String(), 15000))
	_, err := f.deliver(t, "123", "req-known")
	require.NoError(t, err)

	assert.Equal(t, 2, promtestutil.CollectAndCount(metrics.WebhooksTotal))
	assert.Equal(t, float64(20), promtestutil.ToFloat64(metrics.WebhooksTotal.WithLabelValues("unknown", "failed")))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(metrics.WebhooksTotal.WithLabelValues("mercadopago", domain.OutcomeProcessed)))
}

func TestIngestRejectsInvalidJSON(t *testing.T) {
	f := setup(t)
	ts := strconv.FormatInt(testNow.Unix(), 10)
	_, err := f.svc.IngestWebhook(context.Background(), "mercadopago",
		[]byte(`{"type":`), notificationHeaders(webhookSecret, "1", "req-1", ts), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestIngestApprovedPaymentMarksEntityPaid(t *testing.T) {
	f := setup(t)
	f.mp.set("123", paymentBody("123", "approved", f.charge.ID.String(), 15000))

	res, err := f.deliver(t, "123", "req-approved")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeProcessed, res.Outcome)
	assert.Equal(t, f.charge.ID.String(), res.ChargeID)

	assert.Equal(t, enrollmentdomain.StatusPaid, f.memberStatus(t))
	assert.Equal(t, enrollmentdomain.StatusPaid, f.chargeStatus(t))

	c, err := f.repo.FindCharge(context.Background(), nil, f.charge.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "123", c.ProviderPaymentID)
	require.NotNil(t, c.PaidAt)

	events, err := outbox.NewRepository(f.db).ListByEntity(context.Background(), nil, string(enrollmentdomain.EntityMembership), f.member.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, outbox.EventTypeFor(string(enrollmentdomain.StatusPaid)), events[0].EventType)
	assert.Equal(t, outbox.SourceWebhook, events[0].Source)

	stored, err := f.repo.FindWebhookEvent(context.Background(), nil, "mercadopago", "req-approved")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.OutcomeProcessed, stored.Outcome)
	assert.NotContains(t, string(stored.Payload), "lucia@example.com")
	require.NotNil(t, stored.ProcessedAt)
}

func TestIngestReplayedRequestIDIsDuplicate(t *testing.T) {
	f := setup(t)
	f.mp.set("123", paymentBody("123", "approved", f.charge.ID.String(), 15000))

	_, err := f.deliver(t, "123", "req-replay")
	require.NoError(t, err)
	fetches := f.mp.fetchCount()

	res, err := f.deliver(t, "123", "req-replay")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, res.Outcome)
	assert.Equal(t, fetches, f.mp.fetchCount())

	// The database record still catches the replay once Redis forgets it.
	f.redis.FlushAll()
	res, err = f.deliver(t, "123", "req-replay")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, res.Outcome)
	assert.Equal(t, fetches, f.mp.fetchCount())

	var count int64
	require.NoError(t, f.db.Model(&outbox.Event{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestIngestLateDeliveryNeverRegressesPaid(t *testing.T) {
	f := setup(t)
	f.mp.set("123", paymentBody("123", "approved", f.charge.ID.String(), 15000))

	_, err := f.deliver(t, "123", "req-1")
	require.NoError(t, err)
	require.Equal(t, enrollmentdomain.StatusPaid, f.memberStatus(t))

	for i, status := range []string{"pending", "in_process", "rejected", "cancelled"} {
		f.mp.set("123", paymentBody("123", status, f.charge.ID.String(), 15000))
		res, err := f.deliver(t, "123", fmt.Sprintf("req-late-%d", i))
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeProcessed, res.Outcome)
		assert.Equal(t, enrollmentdomain.StatusPaid, f.memberStatus(t), status)
		assert.Equal(t, enrollmentdomain.StatusPaid, f.chargeStatus(t), status)
	}

	// A refund is still allowed after payment.
	f.mp.set("123", paymentBody("123", "refunded", f.charge.ID.String(), 15000))
	_, err = f.deliver(t, "123", "req-refund")
	require.NoError(t, err)
	assert.Equal(t, enrollmentdomain.StatusRefunded, f.memberStatus(t))
}

func TestIngestRefundOfSecondChargeKeepsEntityPaid(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	second := *f.charge
	second.ID = snowflake.ID(int64(f.charge.ID) + 1)
	second.Method = "ticket"
	second.ProviderReference = "pref-2"
	require.NoError(t, f.repo.InsertCharge(ctx, nil, &second))

	f.mp.set("123", paymentBody("123", "approved", f.charge.ID.String(), 15000))
	_, err := f.deliver(t, "123", "req-first")
	require.NoError(t, err)
	f.mp.set("124", paymentBody("124", "approved", second.ID.String(), 15000))
	_, err = f.deliver(t, "124", "req-second")
	require.NoError(t, err)

	f.mp.set("124", paymentBody("124", "refunded", second.ID.String(), 15000))
	_, err = f.deliver(t, "124", "req-second-refund")
	require.NoError(t, err)

	refunded, err := f.repo.FindCharge(ctx, nil, second.ID, false)
	require.NoError(t, err)
	assert.Equal(t, enrollmentdomain.StatusRefunded, refunded.Status)
	assert.Equal(t, enrollmentdomain.StatusPaid, f.chargeStatus(t))
	assert.Equal(t, enrollmentdomain.StatusPaid, f.memberStatus(t))

	// Refunding the last paid charge moves the entity.
	f.mp.set("123", paymentBody("123", "refunded", f.charge.ID.String(), 15000))
	_, err = f.deliver(t, "123", "req-first-refund")
	require.NoError(t, err)
	assert.Equal(t, enrollmentdomain.StatusRefunded, f.memberStatus(t))
}

func TestIngestFailureWithAnotherPendingChargeKeepsEntityPending(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	second := *f.charge
	second.ID = snowflake.ID(int64(f.charge.ID) + 1)
	second.Method = "ticket"
	second.ProviderReference = "pref-2"
	require.NoError(t, f.repo.InsertCharge(ctx, nil, &second))

	f.mp.set("300", paymentBody("300", "rejected", f.charge.ID.String(), 15000))
	_, err := f.deliver(t, "300", "req-rejected")
	require.NoError(t, err)
	assert.Equal(t, enrollmentdomain.StatusFailed, f.chargeStatus(t))
	assert.Equal(t, enrollmentdomain.StatusPending, f.memberStatus(t))
}

func TestIngestRejectedThenApproved(t *testing.T) {
	f := setup(t)

	f.mp.set("200", paymentBody("200", "rejected", f.charge.ID.String(), 15000))
	_, err := f.deliver(t, "200", "req-rejected")
	require.NoError(t, err)
	assert.Equal(t, enrollmentdomain.StatusFailed, f.memberStatus(t))

	f.mp.set("201", paymentBody("201", "approved", f.charge.ID.String(), 15000))
	_, err = f.deliver(t, "201", "req-approved")
	require.NoError(t, err)
	assert.Equal(t, enrollmentdomain.StatusPaid, f.memberStatus(t))
}

func TestIngestFallsBackToProviderPaymentID(t *testing.T) {
	f := setup(t)
	f.charge.ProviderPaymentID = "555"
	require.NoError(t, f.repo.SaveCharge(context.Background(), nil, f.charge))

	f.mp.set("555", paymentBody("555", "approved", "", 15000))
	res, err := f.deliver(t, "555", "req-fallback")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeProcessed, res.Outcome)
	assert.Equal(t, enrollmentdomain.StatusPaid, f.memberStatus(t))
}

func TestIngestUnknownChargeIsIgnored(t *testing.T) {
	f := setup(t)
	f.mp.set("404", paymentBody("404", "approved", snowflake.ID(42).String(), 15000))

	res, err := f.deliver(t, "404", "req-orphan")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnored, res.Outcome)
	assert.Equal(t, enrollmentdomain.StatusPending, f.memberStatus(t))

	stored, err := f.repo.FindWebhookEvent(context.Background(), nil, "mercadopago", "req-orphan")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.OutcomeIgnored, stored.Outcome)
	assert.Equal(t, domain.ErrChargeNotFound.Error(), stored.Error)
}

func TestIngestUnderpaymentIsIgnored(t *testing.T) {
	f := setup(t)
	f.mp.set("123", paymentBody("123", "approved", f.charge.ID.String(), 100))

	res, err := f.deliver(t, "123", "req-under")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnored, res.Outcome)
	assert.Equal(t, enrollmentdomain.StatusPending, f.memberStatus(t))
}

func TestIngestNonPaymentTopicIsIgnored(t *testing.T) {
	f := setup(t)
	ts := strconv.FormatInt(testNow.Unix(), 10)
	payload := []byte(`{"type":"merchant_order","data":{"id":"77"}}`)

	res, err := f.svc.IngestWebhook(context.Background(), "mercadopago", payload,
		notificationHeaders(webhookSecret, "77", "req-order", ts), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnored, res.Outcome)
	assert.Zero(t, f.mp.fetchCount())
}

func TestIngestProviderFailureReleasesClaim(t *testing.T) {
	f := setup(t)

	_, err := f.deliver(t, "123", "req-retry")
	require.ErrorIs(t, err, domain.ErrPaymentNotFound)

	f.mp.set("123", paymentBody("123", "approved", f.charge.ID.String(), 15000))
	res, err := f.deliver(t, "123", "req-retry")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeProcessed, res.Outcome)
	assert.Equal(t, enrollmentdomain.StatusPaid, f.memberStatus(t))
}

func TestIngestSecondGatewaySecret(t *testing.T) {
	f := setup(t)
	_, err := f.gateways.Create(context.Background(), gatewaydomain.CreateRequest{
		Provider:       "mercadopago",
		DisplayName:    "Mercado Pago eventos",
		IsActive:       true,
		Priority:       5,
		AllowedMethods: []string{"card"},
		EntityTypes:    []string{"event_registration"},
		AccessToken:    "APP_USR-events",
		WebhookSecret:  "whsec-events",
	})
	require.NoError(t, err)
	f.mp.set("321", paymentBody("321", "approved", f.charge.ID.String(), 15000))

	ts := strconv.FormatInt(testNow.Unix(), 10)
	res, err := f.svc.IngestWebhook(context.Background(), "mercadopago",
		notificationPayload("321"), notificationHeaders("whsec-events", "321", "req-events", ts), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeProcessed, res.Outcome)
}

func TestPurgeWebhookEvents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	old := &domain.WebhookEvent{
		ID: snowflake.ID(1), Provider: "mercadopago", RequestID: "old",
		Outcome: domain.OutcomeProcessed, ReceivedAt: testNow.AddDate(0, 0, -31),
	}
	recent := &domain.WebhookEvent{
		ID: snowflake.ID(2), Provider: "mercadopago", RequestID: "recent",
		Outcome: domain.OutcomeProcessed, ReceivedAt: testNow.AddDate(0, 0, -1),
	}
	require.NoError(t, f.repo.InsertWebhookEvent(ctx, nil, old))
	require.NoError(t, f.repo.InsertWebhookEvent(ctx, nil, recent))

	deleted, err := f.svc.PurgeWebhookEvents(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	got, err := f.repo.FindWebhookEvent(ctx, nil, "mercadopago", "recent")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
