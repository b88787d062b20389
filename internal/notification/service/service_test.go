package service

import (
	"context"
	"testing"

	"github.com/railzwaylabs/federation/internal/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertConfigValidatesAndHidesSettings(t *testing.T) {
	f := setupDispatcher(t, &fakeChannel{name: domain.ChannelWebhook})
	ctx := context.Background()
	enabled := true

	_, err := f.svc.UpsertConfig(ctx, "webhook", domain.UpsertConfigRequest{Enabled: &enabled})
	assert.ErrorIs(t, err, domain.ErrInvalidSettings)

	_, err = f.svc.UpsertConfig(ctx, "webhook", domain.UpsertConfigRequest{
		Enabled:  &enabled,
		Settings: map[string]string{"url": "ftp://nope"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSettings)

	zero := 0
	_, err = f.svc.UpsertConfig(ctx, "webhook", domain.UpsertConfigRequest{MaxRetries: &zero})
	assert.ErrorIs(t, err, domain.ErrInvalidMaxRetries)

	_, err = f.svc.UpsertConfig(ctx, "sms", domain.UpsertConfigRequest{})
	assert.ErrorIs(t, err, domain.ErrUnknownChannel)

	cfg, err := f.svc.UpsertConfig(ctx, "Webhook", domain.UpsertConfigRequest{
		Enabled:  &enabled,
		Settings: map[string]string{"url": "https://hooks.example/x", "secret": "s3cret"},
	})
	require.NoError(t, err)
	assert.Equal(t, "webhook", cfg.Channel)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"secret", "url"}, cfg.SettingKeys)
	assert.NotContains(t, string(cfg.EncryptedSettings), "s3cret")

	// Empty value removes a key; the remaining settings survive.
	cfg, err = f.svc.UpsertConfig(ctx, "webhook", domain.UpsertConfigRequest{Settings: map[string]string{"secret": ""}})
	require.NoError(t, err)
	assert.Equal(t, []string{"url"}, cfg.SettingKeys)

	got, err := f.svc.GetConfig(ctx, "webhook")
	require.NoError(t, err)
	assert.Equal(t, []string{"url"}, got.SettingKeys)

	list, err := f.svc.ListConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSendTestLogsAttempt(t *testing.T) {
	hook := &fakeChannel{name: domain.ChannelWebhook}
	f := setupDispatcher(t, hook)
	ctx := context.Background()

	_, err := f.svc.SendTest(ctx, "webhook", domain.TestRequest{})
	assert.ErrorIs(t, err, domain.ErrChannelNotConfigured)

	_, err = f.svc.UpsertConfig(ctx, "webhook", domain.UpsertConfigRequest{
		Settings: map[string]string{"url": "https://hooks.example/x"},
	})
	require.NoError(t, err)

	entry, err := f.svc.SendTest(ctx, "webhook", domain.TestRequest{Message: "hola"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, entry.Status)
	assert.Equal(t, "https://hooks.example/x", entry.Recipient)
	require.Len(t, hook.sent, 1)
	assert.Equal(t, "hola", hook.sent[0].Body)

	logs, err := f.svc.ListLogs(ctx, domain.LogFilter{Channel: "webhook", Status: "sent"})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = f.svc.ListLogs(ctx, domain.LogFilter{Status: "bogus"})
	assert.Error(t, err)
}
