// Package mail delivers outbound account mail over SMTP.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
)

// sendMail is a seam for testing smtp.SendMail.
var sendMail = smtp.SendMail

// SMTPNotifier sends verification links through a plain SMTP relay.
type SMTPNotifier struct {
	addr    string
	from    string
	baseURL string
}

// NewSMTPNotifier builds a notifier delivering through addr (host:port) with
// the given sender. baseURL is the externally visible server address used in
// verification links.
func NewSMTPNotifier(addr, from, baseURL string) *SMTPNotifier {
	return &SMTPNotifier{addr: addr, from: from, baseURL: baseURL}
}

// SendVerificationLink mails the verification URL for token to email.
// The caller decides whether a delivery failure is fatal; registration
// treats it as log-only.
func (n *SMTPNotifier) SendVerificationLink(ctx context.Context, email, token string) error {
	link := fmt.Sprintf("%s/api/users/verify/%s", n.baseURL, token)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Verify email\r\nContent-Type: text/html; charset=utf-8\r\n\r\n"+
		`<a target="_blank" href="%s">Verify email</a>`+"\r\n",
		n.from, email, link)

	if err := sendMail(n.addr, nil, n.from, []string{email}, []byte(msg)); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}
