package mail

import (
	"fmt"
	"html"
	"net/smtp"

	"github.com/gofiber/fiber/v2/log"

	"github.com/armonyco/armonyco/internal/pkg/env"
)

// Mailer delivers a single HTML message.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends emails via SMTP
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
}

func NewSMTPMailerFromEnv() *SMTPMailer {
	sender := env.GetEnv("SMTP_SENDER", "")
	if sender == "" {
		sender = "no-reply@localhost"
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", sender)
	}
	return &SMTPMailer{
		Host:     env.GetEnv("SMTP_HOST", ""),
		Port:     env.GetEnv("SMTP_PORT", "587"),
		Username: env.GetEnv("SMTP_USERNAME", ""),
		Password: env.GetEnv("SMTP_PASSWORD", ""),
		Sender:   sender,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.Host == "" {
		return fmt.Errorf("SMTP_HOST is not configured")
	}

	var auth smtp.Auth
	if m.Username != "" && m.Password != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)
	err := smtp.SendMail(addr, auth, m.Sender, []string{to}, buildMessage(m.Sender, to, subject, body))
	if err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
	} else {
		log.Infof("[Mail] Email sent to %s via %s", to, addr)
	}
	return err
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)
}

// InvitationBody renders the collaborator invitation mail.
func InvitationBody(organization, inviter, acceptURL string) string {
	return fmt.Sprintf(
		`<p>%s invited you to join <strong>%s</strong> on Armonyco.</p>`+
			`<p><a href="%s">Accept the invitation</a></p>`+
			`<p>The link is valid for 7 days.</p>`,
		html.EscapeString(inviter), html.EscapeString(organization), html.EscapeString(acceptURL),
	)
}
