package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	"github.com/railzwaylabs/federation/internal/notification/domain"
)

const (
	DefaultBaseURL = "https://graph.facebook.com/v19.0"

	SettingAccessToken      = "access_token"
	SettingPhoneNumberID    = "phone_number_id"
	SettingTemplateName     = "template_name"
	SettingTemplateLanguage = "template_language"
)

// Channel sends messages through the WhatsApp Business Cloud API. With a
// template_name setting the message body is passed as the single template
// parameter, otherwise a plain text message is sent.
type Channel struct {
	client  *http.Client
	baseURL string
}

func New(client *http.Client, baseURL string) *Channel {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Channel{client: client, baseURL: baseURL}
}

func (c *Channel) Name() string { return domain.ChannelWhatsApp }

func (c *Channel) Recipient(entity *enrollmentdomain.Entity, _ map[string]string) string {
	if entity == nil {
		return ""
	}
	return NormalizePhone(entity.Phone)
}

// NormalizePhone keeps digits only, as the Cloud API expects.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type textBody struct {
	Body string `json:"body"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateBody struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type messageRequest struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             *textBody     `json:"text,omitempty"`
	Template         *templateBody `json:"template,omitempty"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *Channel) Send(ctx context.Context, settings map[string]string, msg domain.Message) error {
	token := strings.TrimSpace(settings[SettingAccessToken])
	phoneID := strings.TrimSpace(settings[SettingPhoneNumberID])
	if token == "" || phoneID == "" {
		return domain.ErrChannelNotConfigured
	}
	to := NormalizePhone(msg.Recipient)
	if to == "" {
		return domain.ErrMissingRecipient
	}

	payload := messageRequest{MessagingProduct: "whatsapp", To: to}
	if name := strings.TrimSpace(settings[SettingTemplateName]); name != "" {
		lang := strings.TrimSpace(settings[SettingTemplateLanguage])
		if lang == "" {
			lang = "es_AR"
		}
		payload.Type = "template"
		payload.Template = &templateBody{
			Name:     name,
			Language: templateLanguage{Code: lang},
			Components: []templateComponent{{
				Type:       "body",
				Parameters: []templateParameter{{Type: "text", Text: msg.Body}},
			}},
		}
	} else {
		payload.Type = "text"
		payload.Text = &textBody{Body: msg.Body}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+phoneID+"/messages", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr apiError
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(body, &apiErr)
		return fmt.Errorf("%w: whatsapp status=%d message=%s", domain.ErrDeliveryFailed, resp.StatusCode, apiErr.Error.Message)
	}
	return nil
}
