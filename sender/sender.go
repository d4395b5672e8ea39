package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// EmailSender delivers a rendered HTML email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) (SendResult, error)
}

// LogSender writes emails to the log instead of delivering them. It is used
// when no SMTP server is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, htmlBody string) (SendResult, error) {
	id := fmt.Sprintf("log-%s", uuid.NewString())
	s.logger.Info("Email not delivered (log sender)",
		zap.String("message_id", id),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(htmlBody)))
	return SendResult{MessageID: id, SentAt: time.Now()}, nil
}
