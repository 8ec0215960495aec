// Package notification delivers operator alerts over SMTP when the
// diagnosis pipeline loses a capability.
package notification

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"lechuga_bot_backend/internal/events"
	"lechuga_bot_backend/platform/config"
	"lechuga_bot_backend/platform/logger"
)

// AlertSender emails the operator about capability failures.
type AlertSender struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	toEmail   string
	log       *logger.Logger
}

// NewAlertSender creates an alert sender. Returns nil when email alerting is
// disabled.
func NewAlertSender(cfg config.EmailConfig, log *logger.Logger) *AlertSender {
	if !cfg.GetEmailEnabled() {
		return nil
	}
	return &AlertSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromEmail: cfg.GetEmailFromAddress(),
		toEmail:   cfg.GetAdminAlertAddress(),
		log:       log,
	}
}

// Subscribe attaches the sender to the bus. Only capability failures alert;
// input errors are expected user behavior.
func (a *AlertSender) Subscribe(bus events.Bus) {
	if a == nil {
		return
	}
	bus.Subscribe(events.DiagnosisFailed{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		failed, ok := event.(events.DiagnosisFailed)
		if !ok || !failed.Capability {
			return nil
		}
		return a.sendFailureAlert(ctx, failed)
	}))
}

func (a *AlertSender) sendFailureAlert(ctx context.Context, failed events.DiagnosisFailed) error {
	subject := fmt.Sprintf("[lechuga-bot] capability failure in stage %s", failed.Stage)
	body := fmt.Sprintf(
		"<p>A diagnosis attempt failed because a capability is unavailable.</p>"+
			"<ul><li>Stage: %s</li><li>User: %d</li><li>Attempt: %s</li><li>Reason: %s</li></ul>",
		failed.Stage, failed.UserID, failed.AttemptID, failed.Reason,
	)

	msg := gomail.NewMsg()
	if err := msg.From(a.fromEmail); err != nil {
		return fmt.Errorf("alert from: %w", err)
	}
	if err := msg.To(a.toEmail); err != nil {
		return fmt.Errorf("alert to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body)

	client, err := gomail.NewClient(a.host,
		gomail.WithPort(a.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(a.username),
		gomail.WithPassword(a.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	a.log.Info("capability alert sent", "stage", failed.Stage, "user_id", failed.UserID)
	return nil
}
