package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	"github.com/railzwaylabs/federation/internal/notification/domain"
)

const (
	SettingURL    = "url"
	SettingSecret = "secret"

	HeaderSignature = "X-Federation-Signature"
	HeaderTimestamp = "X-Federation-Timestamp"
	HeaderDelivery  = "X-Federation-Delivery"
)

// Channel posts a signed JSON document to a configured URL.
type Channel struct {
	client *http.Client
	now    func() time.Time
}

func New(client *http.Client) *Channel {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Channel{client: client, now: time.Now}
}

func (c *Channel) Name() string { return domain.ChannelWebhook }

func (c *Channel) Recipient(_ *enrollmentdomain.Entity, settings map[string]string) string {
	return strings.TrimSpace(settings[SettingURL])
}

type envelope struct {
	EventID  *snowflake.ID  `json:"event_id,omitempty"`
	Template string         `json:"template"`
	Subject  string         `json:"subject"`
	Body     string         `json:"body"`
	Data     map[string]any `json:"data,omitempty"`
}

func (c *Channel) Send(ctx context.Context, settings map[string]string, msg domain.Message) error {
	target := strings.TrimSpace(msg.Recipient)
	if target == "" {
		return domain.ErrMissingRecipient
	}

	body, err := json.Marshal(envelope{
		EventID:  msg.EventID,
		Template: msg.Template,
		Subject:  msg.Subject,
		Body:     msg.Body,
		Data:     msg.Data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderDelivery, ulid.Make().String())

	ts := strconv.FormatInt(c.now().Unix(), 10)
	req.Header.Set(HeaderTimestamp, ts)
	if secret := settings[SettingSecret]; secret != "" {
		req.Header.Set(HeaderSignature, "sha256="+Sign(secret, ts, body))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook status=%d", domain.ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of "<ts>.<body>".
func Sign(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(ts))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
