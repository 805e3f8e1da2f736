package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/media"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/worker"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// ComplaintService coordinates the complaint lifecycle.
type ComplaintService struct {
	complaints repository.ComplaintRepository
	users      repository.UserRepository
	media      mediaCleaner
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	UserRepo      repository.UserRepository
	Media         media.Provider
	Dispatcher    events.Dispatcher
	Runner        *worker.BestEffort
	Logger        *zap.Logger
	DeleteTimeout time.Duration
	Clock         func() time.Time
}

// ComplaintCreateInput describes complaint creation payload.
type ComplaintCreateInput struct {
	Title       string
	Description string
	Category    string
	Address     string
	Priority    string
}

// ComplaintListFilter describes the admin listing.
type ComplaintListFilter struct {
	Status   *domain.ComplaintStatus
	Category *domain.ComplaintCategory
	Priority *domain.ComplaintPriority
	Pagination
}

// ComplaintPage is one page of complaints with owner identities.
type ComplaintPage struct {
	Items      []domain.ComplaintWithOwner
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runner := deps.Runner
	if runner == nil {
		runner = worker.NewBestEffort(logger, nil)
	}
	timeout := deps.DeleteTimeout
	if timeout <= 0 {
		timeout = defaultDeleteTimeout
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ComplaintService{
		complaints: deps.ComplaintRepo,
		users:      deps.UserRepo,
		media:      mediaCleaner{provider: deps.Media, runner: runner, timeout: timeout},
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// Create files a new complaint owned by actorID.
func (s *ComplaintService) Create(ctx context.Context, actorID string, input ComplaintCreateInput, images []media.Upload) (*domain.Complaint, error) {
	complaint := &domain.Complaint{
		OwnerID:     actorID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Address:     strings.TrimSpace(input.Address),
		Status:      domain.ComplaintStatusPending,
		Priority:    domain.ComplaintPriorityMedium,
	}

	required := []struct {
		name  string
		value string
	}{
		{"title", complaint.Title},
		{"description", complaint.Description},
		{"category", strings.TrimSpace(input.Category)},
		{"address", complaint.Address},
	}
	var missing []string
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}

	category, err := domain.ParseComplaintCategory(strings.TrimSpace(input.Category))
	if err != nil {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": input.Category})
	}
	complaint.Category = category

	if raw := strings.TrimSpace(input.Priority); raw != "" {
		priority, err := domain.ParseComplaintPriority(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
		}
		complaint.Priority = priority
	}

	if err := validateImageCount(images); err != nil {
		return nil, err
	}
	if err := validateUploads("images", images); err != nil {
		return nil, err
	}

	uploaded, err := s.media.uploadAll(ctx, complaintImageFolder, images)
	if err != nil {
		return nil, err
	}
	complaint.Images = uploaded

	if err := s.complaints.Create(ctx, complaint); err != nil {
		s.media.discard(ctx, uploaded)
		return nil, err
	}

	s.publish(ctx, events.New(events.EventComplaintCreated, actorID, events.ComplaintCreatedPayload{
		ComplaintID: complaint.ID,
		OwnerID:     complaint.OwnerID,
		Title:       complaint.Title,
		Category:    complaint.Category,
	}))
	return complaint, nil
}

// Update applies a partial update. Owners may edit content while the
// complaint is Pending; admins may edit anything at any status.
func (s *ComplaintService) Update(ctx context.Context, actor domain.Actor, complaintID string, patch domain.ComplaintPatch, images []media.Upload) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, mapNotFound(err, "complaint")
	}
	if err := authorizeComplaintMutation(actor, complaint); err != nil {
		return nil, err
	}

	updated := *complaint
	if err := applyContentPatch(&updated, patch); err != nil {
		return nil, err
	}

	previousStatus := complaint.Status
	statusChanged := false
	if actor.IsAdmin() {
		if patch.Status.IsNull() {
			return nil, apperrors.NewValidationError("status cannot be cleared", nil)
		}
		if status, ok := patch.Status.Get(); ok {
			if _, err := domain.ParseComplaintStatus(string(status)); err != nil {
				return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
			}
			statusChanged = updated.ApplyStatus(status, s.now())
		}
		if patch.AdminNotes.IsSet() {
			notes, _ := patch.AdminNotes.Get()
			updated.AdminNotes = strings.TrimSpace(notes)
		}
	} else if patch.TouchesAdminFields() {
		s.logger.Debug("ignoring admin-only complaint fields",
			zap.String("complaint_id", complaint.ID),
			zap.String("actor_id", actor.ID))
	}

	if err := validateImageCount(images); err != nil {
		return nil, err
	}
	if err := validateUploads("images", images); err != nil {
		return nil, err
	}

	replaceImages := len(images) > 0
	if replaceImages {
		uploaded, err := s.media.uploadAll(ctx, complaintImageFolder, images)
		if err != nil {
			return nil, err
		}
		updated.Images = uploaded
	}

	if err := s.complaints.Update(ctx, &updated); err != nil {
		if replaceImages {
			s.media.discard(ctx, updated.Images)
		}
		return nil, mapNotFound(err, "complaint")
	}

	if replaceImages {
		s.media.discard(ctx, complaint.Images)
	}

	if statusChanged {
		s.publish(ctx, events.New(events.EventComplaintStatusChanged, actor.ID, events.ComplaintStatusChangedPayload{
			ComplaintID: updated.ID,
			OwnerID:     updated.OwnerID,
			Title:       updated.Title,
			OldStatus:   previousStatus,
			NewStatus:   updated.Status,
			AdminNotes:  updated.AdminNotes,
		}))
	}
	return &updated, nil
}

// Delete removes a complaint and then its images, best-effort.
func (s *ComplaintService) Delete(ctx context.Context, actor domain.Actor, complaintID string) error {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return mapNotFound(err, "complaint")
	}
	if err := authorizeComplaintMutation(actor, complaint); err != nil {
		return err
	}
	if err := s.complaints.Delete(ctx, complaint.ID); err != nil {
		return mapNotFound(err, "complaint")
	}
	s.media.deleteAll(ctx, complaint.ImageHandles())
	return nil
}

// GetByID returns a complaint with its owner's public identity.
func (s *ComplaintService) GetByID(ctx context.Context, complaintID string) (*domain.ComplaintWithOwner, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, mapNotFound(err, "complaint")
	}
	result := &domain.ComplaintWithOwner{Complaint: complaint}
	owner, err := s.users.GetByID(ctx, complaint.OwnerID)
	switch {
	case err == nil:
		ref := owner.Ref()
		result.Owner = &ref
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Warn("complaint owner missing", zap.String("complaint_id", complaint.ID))
	default:
		return nil, err
	}
	return result, nil
}

// ListMine returns the actor's complaints, newest first.
func (s *ComplaintService) ListMine(ctx context.Context, actorID string) ([]domain.Complaint, error) {
	return s.complaints.ListByOwner(ctx, actorID)
}

// ListAll returns a filtered page of every complaint, newest first.
func (s *ComplaintService) ListAll(ctx context.Context, filter ComplaintListFilter) (*ComplaintPage, error) {
	page := filter.Pagination.Normalize()
	items, total, err := s.complaints.List(ctx, repository.ComplaintFilter{
		Status:   filter.Status,
		Category: filter.Category,
		Priority: filter.Priority,
		Limit:    page.Limit,
		Offset:   page.Offset(),
	})
	if err != nil {
		return nil, err
	}

	owners, err := s.ownerRefs(ctx, items)
	if err != nil {
		return nil, err
	}

	result := &ComplaintPage{
		Items:      make([]domain.ComplaintWithOwner, 0, len(items)),
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages(total),
	}
	for i := range items {
		entry := domain.ComplaintWithOwner{Complaint: &items[i]}
		if ref, ok := owners[items[i].OwnerID]; ok {
			entry.Owner = &ref
		}
		result.Items = append(result.Items, entry)
	}
	return result, nil
}

func (s *ComplaintService) ownerRefs(ctx context.Context, items []domain.Complaint) (map[string]domain.UserRef, error) {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, c := range items {
		if _, ok := seen[c.OwnerID]; ok {
			continue
		}
		seen[c.OwnerID] = struct{}{}
		ids = append(ids, c.OwnerID)
	}
	refs := make(map[string]domain.UserRef, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range users {
		refs[users[i].ID] = users[i].Ref()
	}
	return refs, nil
}

func (s *ComplaintService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// authorizeComplaintMutation checks ownership first, then the Pending gate.
func authorizeComplaintMutation(actor domain.Actor, complaint *domain.Complaint) error {
	if actor.IsAdmin() {
		return nil
	}
	if complaint.OwnerID != actor.ID {
		return apperrors.NewForbidden("not allowed to modify this complaint")
	}
	if complaint.Status != domain.ComplaintStatusPending {
		return apperrors.NewInvalidState("complaint can only be changed while pending", map[string]any{
			"status": complaint.Status,
		})
	}
	return nil
}

func applyContentPatch(c *domain.Complaint, patch domain.ComplaintPatch) error {
	text := []struct {
		name  string
		patch domain.Patch[string]
		dst   *string
	}{
		{"title", patch.Title, &c.Title},
		{"description", patch.Description, &c.Description},
		{"address", patch.Address, &c.Address},
	}
	for _, f := range text {
		if !f.patch.IsSet() {
			continue
		}
		value, _ := f.patch.Get()
		value = strings.TrimSpace(value)
		if value == "" {
			return apperrors.NewValidationError(f.name+" cannot be empty", map[string]any{"field": f.name})
		}
		*f.dst = value
	}

	if patch.Category.IsNull() {
		return apperrors.NewValidationError("category cannot be empty", map[string]any{"field": "category"})
	}
	if category, ok := patch.Category.Get(); ok {
		parsed, err := domain.ParseComplaintCategory(string(category))
		if err != nil {
			return apperrors.NewValidationError("invalid category", map[string]any{"category": category})
		}
		c.Category = parsed
	}

	if patch.Priority.IsNull() {
		return apperrors.NewValidationError("priority cannot be empty", map[string]any{"field": "priority"})
	}
	if priority, ok := patch.Priority.Get(); ok {
		parsed, err := domain.ParseComplaintPriority(string(priority))
		if err != nil {
			return apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
		}
		c.Priority = parsed
	}
	return nil
}

func validateImageCount(images []media.Upload) error {
	if len(images) > domain.MaxComplaintImages {
		return apperrors.NewValidationError("too many images", map[string]any{
			"max":      domain.MaxComplaintImages,
			"received": len(images),
		})
	}
	return nil
}
