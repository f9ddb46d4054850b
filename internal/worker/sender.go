package worker

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/evergreenlive/backend/pkg/queue"
)

// subjects maps triggers to email subjects. Template rendering beyond this
// belongs to the external email surface.
var subjects = map[string]string{
	"reminder_before": "Your webinar starts soon",
	"started":         "Your webinar is live now",
	"no_show":         "Sorry we missed you",
	"completed":       "Thanks for attending",
}

// SMTPSender delivers notification emails over SMTP.
type SMTPSender struct {
	host     string
	port     int
	user     string
	pass     string
	from     string
	fromName string
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(host string, port int, user, pass, from, fromName string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, pass: pass, from: from, fromName: fromName}
}

// Send delivers one notification email.
func (s *SMTPSender) Send(ctx context.Context, p queue.DeliveryPayload) error {
	subject, ok := subjects[p.Trigger]
	if !ok {
		subject = "Webinar update"
	}
	body := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s: %s\r\n\r\nHi %s,\r\n\r\nWebinar: %s\r\nSession time: %s\r\n",
		s.fromName, s.from, p.RecipientEmail, subject, p.WebinarTitle,
		p.RecipientName, p.WebinarTitle, p.SessionStartsAt.Format(time.RFC1123))

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.pass, s.host)
	}
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.from, []string{p.RecipientEmail}, []byte(body))
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// ConsoleSender logs deliveries instead of sending, for local development.
type ConsoleSender struct {
	logger *zap.Logger
}

// NewConsoleSender creates a console sender.
func NewConsoleSender(logger *zap.Logger) *ConsoleSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleSender{logger: logger}
}

// Send logs the notification.
func (s *ConsoleSender) Send(_ context.Context, p queue.DeliveryPayload) error {
	s.logger.Info("notification (console)",
		zap.String("trigger", p.Trigger),
		zap.String("recipient", p.RecipientEmail),
		zap.String("webinar", p.WebinarTitle),
		zap.Time("session_starts_at", p.SessionStartsAt))
	return nil
}
