package service

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"

	"github.com/railzwaylabs/federation/internal/notification/channel/email"
	"github.com/railzwaylabs/federation/internal/notification/channel/webhook"
	"github.com/railzwaylabs/federation/internal/notification/channel/whatsapp"
	"github.com/railzwaylabs/federation/internal/notification/domain"
	"github.com/railzwaylabs/federation/internal/security/vault"
)

var requiredSettings = map[string][]string{
	domain.ChannelWhatsApp: {whatsapp.SettingAccessToken, whatsapp.SettingPhoneNumberID},
	domain.ChannelEmail:    {email.SettingHost, email.SettingFrom},
	domain.ChannelWebhook:  {webhook.SettingURL},
}

func normalizeChannel(raw string) (string, error) {
	ch := strings.ToLower(strings.TrimSpace(raw))
	if !slices.Contains(domain.Channels, ch) {
		return "", domain.ErrUnknownChannel
	}
	return ch, nil
}

func decryptSettings(v vault.Provider, cfg *domain.NotificationConfig) (map[string]string, error) {
	if len(cfg.EncryptedSettings) == 0 {
		return map[string]string{}, nil
	}
	settings, err := vault.DecryptMap(v, cfg.EncryptedSettings)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSettingsCorrupted, cfg.Channel)
	}
	return settings, nil
}

func settingKeys(settings map[string]string) []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// validateSettings checks what a channel needs before it can be enabled.
func validateSettings(channel string, settings map[string]string) error {
	for _, key := range requiredSettings[channel] {
		if strings.TrimSpace(settings[key]) == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrInvalidSettings, key)
		}
	}
	if channel == domain.ChannelWebhook {
		u, err := url.Parse(settings[webhook.SettingURL])
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: url must be an absolute http(s) url", domain.ErrInvalidSettings)
		}
	}
	return nil
}
