package platform

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
)

// Mailer sends operator mail over SMTP.
type Mailer struct {
	cfg MailConfig
}

func NewMailer(cfg MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Enabled reports whether both a recipient and an SMTP server are configured.
func (m *Mailer) Enabled() bool {
	return len(m.cfg.To) > 0 && m.cfg.SMTPAddr != ""
}

func (m *Mailer) Send(subject, text, html string) error {
	e := email.NewEmail()
	e.From = m.cfg.From
	e.To = m.cfg.To
	e.Subject = subject
	e.Text = []byte(text)
	e.HTML = []byte(html)

	var auth smtp.Auth
	if m.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}
	if err := e.Send(m.cfg.SMTPAddr, auth); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
