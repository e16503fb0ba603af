package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"gmbh-wizard/internal/common/logger"
)

const defaultTimeout = 30 * time.Second

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	// Timeout bounds the whole session from dial to QUIT.
	Timeout time.Duration
	// TLSConfig overrides the STARTTLS configuration; tests use it to trust
	// a local server.
	TLSConfig *tls.Config
}

// SMTPSender delivers through one SMTP session per message.
type SMTPSender struct {
	config SMTPConfig
	logger logger.Logger
	now    func() time.Time
}

func NewSMTPSender(cfg SMTPConfig, log logger.Logger) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &SMTPSender{config: cfg, logger: log, now: time.Now}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	return send(ctx, s, s.logger, s.now, msg)
}

func (s *SMTPSender) provider() string { return ProviderSMTP }

func (s *SMTPSender) addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// session dials the server and negotiates STARTTLS when configured. The
// returned stop function releases the cancellation hook.
func (s *SMTPSender) session(ctx context.Context) (*smtp.Client, func() bool, error) {
	dialer := &net.Dialer{Timeout: s.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	// Unblock a stalled session as soon as the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		stop()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to start SMTP session: %w", err)
	}

	if s.config.UseTLS {
		tlsConfig := s.config.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{ServerName: s.config.Host}
		}
		if err = client.StartTLS(tlsConfig); err != nil {
			stop()
			client.Close()
			return nil, nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	return client, stop, nil
}

func (s *SMTPSender) deliver(ctx context.Context, from string, to []string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	client, stop, err := s.session(ctx)
	if err != nil {
		return err
	}
	defer stop()
	defer client.Close()

	if s.config.Username != "" && s.config.Password != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, addr := range to {
		if err = client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", addr, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// TestConnection opens a session, negotiates TLS when configured and quits.
func (s *SMTPSender) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	client, stop, err := s.session(ctx)
	if err != nil {
		return err
	}
	defer stop()
	defer client.Close()
	return client.Quit()
}
