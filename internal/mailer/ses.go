package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"gmbh-wizard/internal/common/logger"
)

// SESAPI is the part of the SES client the sender needs.
type SESAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESSender delivers the raw MIME message through AWS SES.
type SESSender struct {
	client  SESAPI
	timeout time.Duration
	logger  logger.Logger
	now     func() time.Time
}

// NewSESSender loads the default AWS credential chain for region.
func NewSESSender(ctx context.Context, region string, timeout time.Duration, log logger.Logger) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESSenderWithClient(ses.NewFromConfig(cfg), timeout, log), nil
}

func NewSESSenderWithClient(client SESAPI, timeout time.Duration, log logger.Logger) *SESSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &SESSender{client: client, timeout: timeout, logger: log, now: time.Now}
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	return send(ctx, s, s.logger, s.now, msg)
}

func (s *SESSender) provider() string { return ProviderSES }

func (s *SESSender) deliver(ctx context.Context, from string, to []string, raw []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(from),
		Destinations: to,
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		return fmt.Errorf("ses send raw email: %w", err)
	}
	if out != nil && out.MessageId != nil {
		s.logger.Debug("SES accepted message", map[string]interface{}{"messageId": *out.MessageId})
	}
	return nil
}
