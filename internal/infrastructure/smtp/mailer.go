package smtp

import (
	"fmt"

	"github.com/aeronite/auth-api/internal/config"
	"gopkg.in/gomail.v2"
)

// Mailer delivers HTML notifications by email address. Delivery is
// best-effort: callers log failures and never roll back on them.
type Mailer interface {
	SendEmail(toName, toAddr, subject, htmlBody string) error
}

type mailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		dialer:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:     cfg.SMTPFrom,
		fromName: cfg.SMTPFromName,
	}
}

func (m *mailer) SendEmail(toName, toAddr, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetAddressHeader("To", toAddr, toName)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", toAddr, err)
	}
	return nil
}
