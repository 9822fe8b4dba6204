// Package notify delivers office notifications for new membership
// applications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Message is a single outgoing e-mail.
type Message struct {
	To      []string
	From    string
	Subject string
	HTML    string
	ReplyTo string
}

// Receipt is what a provider returns for an accepted message.
type Receipt struct {
	ID     string
	SentAt time.Time
}

// Sender delivers messages through an external provider.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

var ErrNoRecipients = errors.New("message has no recipients")

// ResendSender sends through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	logger *zap.Logger
}

// NewResendSender returns a sender using apiKey; from is used when a message
// does not name its own sender.
func NewResendSender(apiKey, from string, logger *zap.Logger) *ResendSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResendSender{client: resend.NewClient(apiKey), from: from, logger: logger}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if len(msg.To) == 0 {
		return Receipt{}, ErrNoRecipients
	}
	from := msg.From
	if from == "" {
		from = s.from
	}
	params := &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if msg.ReplyTo != "" {
		params.ReplyTo = msg.ReplyTo
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		s.logger.Error("resend send failed", zap.Strings("to", msg.To), zap.Error(err))
		return Receipt{}, fmt.Errorf("resend send failed: %w", err)
	}
	s.logger.Info("notification sent", zap.String("message_id", sent.Id), zap.String("subject", msg.Subject))
	return Receipt{ID: sent.Id, SentAt: time.Now()}, nil
}

// NoopSender logs messages instead of delivering them.
type NoopSender struct {
	logger *zap.Logger
}

func NewNoopSender(logger *zap.Logger) *NoopSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopSender{logger: logger}
}

func (s *NoopSender) Send(_ context.Context, msg Message) (Receipt, error) {
	if len(msg.To) == 0 {
		return Receipt{}, ErrNoRecipients
	}
	s.logger.Info("notification skipped (no provider configured)",
		zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	now := time.Now()
	return Receipt{ID: fmt.Sprintf("noop-%d", now.UnixNano()), SentAt: now}, nil
}

// New picks Resend when apiKey is set and the no-op sender otherwise.
func New(apiKey, from string, logger *zap.Logger) Sender {
	if apiKey == "" {
		return NewNoopSender(logger)
	}
	return NewResendSender(apiKey, from, logger)
}
