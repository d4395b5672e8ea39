package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"checkout-service/models"
	"checkout-service/repository"
	"checkout-service/sender"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

type templateConfig struct {
	file    string
	subject string
}

var templateConfigs = map[string]templateConfig{
	models.NotificationPaymentConfirmed: {
		file:    "templates/payment_confirmed.html",
		subject: "Payment received for order %s",
	},
}

const defaultMaxAttempts = 3

// Processor renders and delivers notification jobs.
type Processor struct {
	sender    sender.EmailSender
	logs      repository.NotificationRepository
	templates map[string]*template.Template
	currency  string
	logger    *zap.Logger

	maxAttempts int
	backoff     time.Duration
}

// NewProcessor parses the embedded templates. logs may be nil, in which case
// delivery outcomes are only logged.
func NewProcessor(s sender.EmailSender, logs repository.NotificationRepository, currency string, logger *zap.Logger) (*Processor, error) {
	tmpls := make(map[string]*template.Template, len(templateConfigs))
	for typ, cfg := range templateConfigs {
		tmpl, err := template.ParseFS(templateFS, cfg.file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template for %s: %w", typ, err)
		}
		tmpls[typ] = tmpl
	}
	return &Processor{
		sender:      s,
		logs:        logs,
		templates:   tmpls,
		currency:    currency,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoff:     time.Second,
	}, nil
}

type templateData struct {
	OrderID   string
	Recipient string
	Amount    string
	Currency  string
}

// Process renders job and sends it with linear backoff between attempts.
// It returns an error only when every attempt failed.
func (p *Processor) Process(ctx context.Context, job Job) error {
	cfg, ok := templateConfigs[job.Type]
	if !ok {
		return fmt.Errorf("unsupported notification type: %s", job.Type)
	}

	var buf bytes.Buffer
	if err := p.templates[job.Type].Execute(&buf, templateData{
		OrderID:   job.OrderID,
		Recipient: job.Recipient,
		Amount:    fmt.Sprintf("%.2f", job.Amount),
		Currency:  p.currency,
	}); err != nil {
		return fmt.Errorf("template render failed: %w", err)
	}
	subject := fmt.Sprintf(cfg.subject, job.OrderID)

	var (
		result   sender.SendResult
		lastErr  error
		attempts int
	)
	for attempts < p.maxAttempts {
		if attempts > 0 {
			if err := sleepCtx(ctx, time.Duration(attempts)*p.backoff); err != nil {
				lastErr = err
				break
			}
		}
		attempts++

		result, lastErr = p.sender.SendEmail(ctx, job.Recipient, subject, buf.String())
		if lastErr == nil {
			break
		}
		p.logger.Warn("send attempt failed",
			zap.String("order_id", job.OrderID),
			zap.String("type", job.Type),
			zap.Int("attempt", attempts),
			zap.Error(lastErr))
	}

	entry := &models.NotificationLog{
		OrderID:    job.OrderID,
		Recipient:  job.Recipient,
		Type:       job.Type,
		Channel:    models.ChannelEmail,
		Status:     models.NotificationSent,
		MessageID:  result.MessageID,
		RetryCount: max(attempts-1, 0),
	}
	if lastErr != nil {
		entry.Status = models.NotificationFailed
		entry.Error = lastErr.Error()
	}

	p.logger.Info("notification processed",
		zap.String("order_id", job.OrderID),
		zap.String("type", job.Type),
		zap.String("status", entry.Status),
		zap.String("message_id", entry.MessageID),
		zap.Int("retries", entry.RetryCount))

	if p.logs != nil {
		if err := p.logs.SaveLog(context.WithoutCancel(ctx), entry); err != nil {
			p.logger.Error("failed to save notification log", zap.Error(err))
		}
	}

	if lastErr != nil {
		return fmt.Errorf("notification for order %s failed after %d attempts: %w", job.OrderID, attempts, lastErr)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
