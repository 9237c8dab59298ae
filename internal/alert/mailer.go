package alert

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Mailer emails abandoned-sync alerts to the operations list.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	to     []string
}

func NewMailer(cfg MailerConfig) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		to:     cfg.To,
	}
}

func (m *Mailer) Fire(_ context.Context, a Alert) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to...)
	msg.SetHeader("Subject", fmt.Sprintf("[hospital-api] sync failed: %s %s", a.Flow, a.RecordID))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Record %s in flow %q could not be synchronized with its owning service.\n\n"+
			"Reason: %s\nRetries attempted: %d\nOccurred at: %s\n\n"+
			"The local record is authoritative but the remote service has not acknowledged it. "+
			"Manual reconciliation is required.\n",
		a.RecordID, a.Flow, a.Reason, a.RetryCount, a.OccurredAt.Format("2006-01-02 15:04:05 MST"),
	))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send alert mail: %w", err)
	}
	return nil
}
