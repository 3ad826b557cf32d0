// Package email sends operator notices over SMTP, rebuilt from the
// teacher's email.SendText(cfg, to, subject, body) call-site contract
// in handlers/users.go (the implementation file itself was not
// retrieved into the pack).
package email

import (
	"fmt"
	"net/smtp"
)

// SMTPConfig mirrors the teacher's email.SMTPConfig{Host, Port, User,
// Pass, From} shape.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SendText delivers a single plain-text message to one recipient. A
// zero-value Host/From makes this a silent no-op, so the daemon runs
// fine without SMTP configured — callers treat the error as
// best-effort and never fail the triggering operation on it.
func SendText(cfg SMTPConfig, to, subject, body string) error {
	if cfg.Host == "" || cfg.From == "" || to == "" {
		return nil
	}

	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", cfg.From, to, subject, body)

	return smtp.SendMail(addr, auth, cfg.From, []string{to}, []byte(msg))
}

// BreakerOpenNotice formats the operator alert sent when a printer's
// circuit breaker trips open.
func BreakerOpenNotice(printerID string, failureCount int) (subject, body string) {
	subject = fmt.Sprintf("Printer %s is offline", printerID)
	body = fmt.Sprintf(
		"Printer %s has failed %d times and is now offline. "+
			"The daemon will keep retrying automatically.",
		printerID, failureCount,
	)
	return subject, body
}
