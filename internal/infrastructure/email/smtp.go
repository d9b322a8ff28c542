package email

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	sharedConfig "github.com/channelgate/channelgate/internal/shared/config"
)

var ErrNoRecipients = errors.New("email: no alert recipients configured")

// SMTPAlertSender delivers operator alerts over SMTP.
type SMTPAlertSender struct {
	config sharedConfig.EmailAlertConfig
	send   func(m *gomail.Message) error
}

func NewSMTPAlertSender(config sharedConfig.EmailAlertConfig) *SMTPAlertSender {
	dialer := gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.SMTPUser, config.SMTPPassword)
	return &SMTPAlertSender{
		config: config,
		send: func(m *gomail.Message) error {
			return dialer.DialAndSend(m)
		},
	}
}

// SendAlert mails subject to every configured recipient. gomail has no context
// support, so ctx is only checked before dialing.
func (s *SMTPAlertSender) SendAlert(ctx context.Context, subject, htmlBody, plainBody string) error {
	if len(s.config.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	if s.config.FromName != "" {
		m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	} else {
		m.SetHeader("From", s.config.FromAddress)
	}
	m.SetHeader("To", s.config.To...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
