package certificate

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPMailer delivers certificates over plain SMTP. Attachment handling is
// reduced to a reference line in the body; the artifact stays retrievable
// from the case record.
type SMTPMailer struct {
	addr string
	from string
}

func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body, attachmentPath string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	if attachmentPath != "" {
		fmt.Fprintf(&msg, "\r\n\r\nBescheinigung: %s\r\n", attachmentPath)
	}

	if err := smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail via %s: %w", m.addr, err)
	}
	return nil
}

// NopMailer is used when outbound email is disabled; delivery always
// succeeds without side effects.
type NopMailer struct{}

func (NopMailer) Send(ctx context.Context, to, subject, body, attachmentPath string) error {
	return nil
}
