package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog/log"
)

// Mailer sends transactional mail. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(to, subject, body string) error
}

type smtpMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPMailer creates a Mailer backed by a plain SMTP relay.
func NewSMTPMailer(host, port, username, password, from string) Mailer {
	return &smtpMailer{host: host, port: port, username: username, password: password, from: from}
}

func (m *smtpMailer) Send(to, subject, body string) error {
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s\r\n",
		m.from, to, subject, body,
	))

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	log.Debug().Str("to", to).Str("subject", subject).Msg("mail sent")
	return nil
}
