package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/notify"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/worker"
)

const notificationTimeout = 15 * time.Second

// NotificationService turns domain events into emails for the affected user.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	notifier   notify.Notifier
	runner     *worker.BestEffort
	from       string
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	UserRepo   repository.UserRepository
	Notifier   notify.Notifier
	Runner     *worker.BestEffort
	EmailFrom  string
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := deps.Runner
	if runner == nil {
		runner = worker.NewBestEffort(logger, nil)
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		users:      deps.UserRepo,
		notifier:   deps.Notifier,
		runner:     runner,
		from:       deps.EmailFrom,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.notifier == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventComplaintCreated, n.handleComplaintCreated)
	n.dispatcher.Subscribe(events.EventComplaintStatusChanged, n.handleComplaintStatusChanged)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRegisteredPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.sendTo(ctx, payload.UserID, notify.TemplateWelcome, map[string]any{})
	return nil
}

func (n *NotificationService) handleComplaintCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.sendTo(ctx, payload.OwnerID, notify.TemplateComplaintCreated, map[string]any{
		"complaintId": payload.ComplaintID,
		"title":       payload.Title,
		"category":    string(payload.Category),
	})
	return nil
}

func (n *NotificationService) handleComplaintStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ComplaintStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	template, ok := payload.NewStatus.NotificationTemplate()
	if !ok {
		return nil
	}
	n.sendTo(ctx, payload.OwnerID, template, map[string]any{
		"complaintId":    payload.ComplaintID,
		"title":          payload.Title,
		"status":         string(payload.NewStatus),
		"previousStatus": string(payload.OldStatus),
		"adminNotes":     payload.AdminNotes,
	})
	return nil
}

// sendTo resolves the recipient and sends in the background. Nothing here can
// fail the operation that raised the event.
func (n *NotificationService) sendTo(ctx context.Context, userID, template string, data map[string]any) {
	n.runner.Go(ctx, "notify."+template, notificationTimeout, func(ctx context.Context) error {
		user, err := n.users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("resolve recipient: %w", err)
		}
		return n.notifier.Send(ctx, notify.Message{
			Template:  template,
			From:      n.from,
			To:        user.Email,
			Name:      user.Name,
			Data:      data,
			CreatedAt: time.Now().UTC(),
		})
	}, zap.String("user_id", userID), zap.String("template", template))
}
