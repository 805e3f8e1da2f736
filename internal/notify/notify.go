package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Email templates understood by the mailer.
const (
	TemplateWelcome             = "welcome"
	TemplateComplaintCreated    = "complaint_created"
	TemplateComplaintInProgress = "complaint_in_progress"
	TemplateComplaintResolved   = "complaint_resolved"
	TemplateComplaintRejected   = "complaint_rejected"
)

// Message is one transactional email request.
type Message struct {
	Template  string         `json:"template"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// Notifier hands an email request to the delivery provider.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a notifier for environments without a mail broker.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message.
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.logger.Info("email notification",
		zap.String("template", msg.Template),
		zap.String("to", msg.To),
		zap.Any("data", msg.Data))
	return nil
}
