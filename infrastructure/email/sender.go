// Package email delivers notification emails through SES.
package email

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// SESSender sends email through Amazon SES v2.
type SESSender struct {
	client *sesv2.Client
	from   string
	logger *zap.Logger
}

// NewSESSender creates a sender delivering from the given verified address.
func NewSESSender(client *sesv2.Client, from string, logger *zap.Logger) *SESSender {
	return &SESSender{
		client: client,
		from:   from,
		logger: logger,
	}
}

// Send delivers one HTML email.
func (s *SESSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody)},
				},
			},
		},
	})
	if err != nil {
		return err
	}

	s.logger.Info("Email sent",
		zap.String("to", to),
		zap.String("messageID", aws.ToString(out.MessageId)),
	)
	return nil
}

// NoopSender drops emails on the floor, for local runs and tests.
type NoopSender struct {
	logger *zap.Logger
}

// NewNoopSender creates a NoopSender.
func NewNoopSender(logger *zap.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

// Send logs the email instead of delivering it.
func (s *NoopSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.logger.Info("Email suppressed (noop sender)",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
