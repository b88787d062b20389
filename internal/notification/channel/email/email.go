package email

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	enrollmentdomain "github.com/railzwaylabs/federation/internal/enrollment/domain"
	"github.com/railzwaylabs/federation/internal/notification/domain"
	"gopkg.in/gomail.v2"
)

const (
	SettingHost     = "smtp_host"
	SettingPort     = "smtp_port"
	SettingUsername = "username"
	SettingPassword = "password"
	SettingFrom     = "from"
)

// Sender is the part of *gomail.Dialer the channel uses.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type DialerFunc func(host string, port int, username, password string) Sender

func defaultDialer(host string, port int, username, password string) Sender {
	return gomail.NewDialer(host, port, username, password)
}

// Channel sends plain-text mail over SMTP.
type Channel struct {
	dial DialerFunc
}

func New(dial DialerFunc) *Channel {
	if dial == nil {
		dial = defaultDialer
	}
	return &Channel{dial: dial}
}

func (c *Channel) Name() string { return domain.ChannelEmail }

func (c *Channel) Recipient(entity *enrollmentdomain.Entity, _ map[string]string) string {
	if entity == nil {
		return ""
	}
	return strings.TrimSpace(entity.Email)
}

func (c *Channel) Send(ctx context.Context, settings map[string]string, msg domain.Message) error {
	host := strings.TrimSpace(settings[SettingHost])
	from := strings.TrimSpace(settings[SettingFrom])
	if host == "" || from == "" {
		return domain.ErrChannelNotConfigured
	}
	port := 587
	if raw := strings.TrimSpace(settings[SettingPort]); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 {
			return fmt.Errorf("%w: smtp_port", domain.ErrInvalidSettings)
		}
		port = p
	}
	if _, err := mail.ParseAddress(msg.Recipient); err != nil {
		return domain.ErrMissingRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.Recipient)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	d := c.dial(host, port, settings[SettingUsername], settings[SettingPassword])
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	return nil
}
