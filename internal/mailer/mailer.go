package mailer

import (
	"context"
	"fmt"
	"time"

	"gmbh-wizard/internal/common/config"
	apperrors "gmbh-wizard/internal/common/errors"
	"gmbh-wizard/internal/common/logger"
	"gmbh-wizard/internal/common/metrics"
)

const (
	ProviderSMTP = "smtp"
	ProviderSES  = "ses"
)

// Sender delivers one message. Implementations never retry; a failure is a
// MAIL_ERROR.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// transport moves an already built message to the mail system.
type transport interface {
	provider() string
	deliver(ctx context.Context, from string, recipients []string, raw []byte) error
}

func send(ctx context.Context, t transport, log logger.Logger, now func() time.Time, msg Message) error {
	provider := t.provider()
	log.Info("Sending mail", map[string]interface{}{
		"provider":    provider,
		"to":          msg.To,
		"cc":          msg.CC,
		"subject":     msg.Subject,
		"attachments": len(msg.Attachments),
	})

	if err := msg.Validate(); err != nil {
		metrics.MailSent.WithLabelValues(provider, "invalid").Inc()
		return apperrors.NewMailError(provider, err)
	}
	if err := ctx.Err(); err != nil {
		metrics.MailSent.WithLabelValues(provider, "cancelled").Inc()
		return apperrors.NewMailError(provider, fmt.Errorf("context cancelled before sending email: %w", err))
	}

	raw, err := Build(msg, now())
	if err != nil {
		metrics.MailSent.WithLabelValues(provider, "failed").Inc()
		return apperrors.NewMailError(provider, err)
	}

	if err := t.deliver(ctx, msg.From, msg.Recipients(), raw); err != nil {
		metrics.MailSent.WithLabelValues(provider, "failed").Inc()
		log.Error("Mail delivery failed", map[string]interface{}{
			"provider": provider,
			"error":    err.Error(),
		})
		return apperrors.NewMailError(provider, err)
	}

	metrics.MailSent.WithLabelValues(provider, "sent").Inc()
	log.Info("Mail sent successfully", map[string]interface{}{
		"provider": provider,
		"to":       msg.To,
		"bytes":    len(raw),
	})
	return nil
}

// New returns the sender selected by cfg.Provider.
func New(ctx context.Context, cfg config.MailConfig, log logger.Logger) (Sender, error) {
	switch cfg.Provider {
	case "", ProviderSMTP:
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			UseTLS:   cfg.SMTP.UseTLS,
			Timeout:  cfg.Timeout,
		}, log), nil
	case ProviderSES:
		return NewSESSender(ctx, cfg.AWS.Region, cfg.Timeout, log)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
