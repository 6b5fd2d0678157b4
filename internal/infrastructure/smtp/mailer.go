package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-api-magiclink/internal/config"
	"github.com/go-api-magiclink/internal/domain"
	"github.com/go-api-magiclink/internal/pkg/id"
	"gopkg.in/gomail.v2"
)

// sender is the part of *gomail.Dialer the mailer needs.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer renders templated emails and delivers them over SMTP.
type Mailer struct {
	dialer    sender
	from      string
	templates TemplateSource
	now       func() time.Time
}

func NewMailer(cfg *config.Config, templates TemplateSource) *Mailer {
	return &Mailer{
		dialer:    gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:      cfg.SMTPFrom,
		templates: templates,
		now:       time.Now,
	}
}

// Send renders msg.TemplateKey with msg.Model and hands it to the SMTP server.
// It returns when the server accepts the message or ctx is done, whichever is first.
// gomail cannot be cancelled, so a send that outlives ctx still runs to completion
// and the mail may arrive after the caller has reported failure.
func (m *Mailer) Send(ctx context.Context, msg domain.TemplateEmail) (*domain.Receipt, error) {
	text, err := m.templates.Template(ctx, msg.TemplateKey)
	if err != nil {
		return nil, fmt.Errorf("load template: %v: %w", err, domain.ErrNotification)
	}
	subject, body, err := render(text, msg.Model)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrNotification)
	}

	messageID := id.New()
	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", subject)
	gm.SetHeader("Message-ID", "<"+messageID+"@magiclink>")
	gm.SetHeader("X-Template-ID", strconv.FormatInt(msg.TemplateID, 10))
	gm.SetHeader("X-Template-Alias", msg.TemplateKey)
	gm.SetBody("text/html", body)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("send email: %v: %w", err, domain.ErrNotification)
	}
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(gm) }()
	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("send email: %v: %w", err, domain.ErrNotification)
		}
	case <-ctx.Done():
		slog.Warn("smtp send outlived its deadline", "message_id", messageID)
		return nil, fmt.Errorf("send email: %v: %w", ctx.Err(), domain.ErrNotification)
	}
	return &domain.Receipt{MessageID: messageID, SubmittedAt: m.now().UTC()}, nil
}
