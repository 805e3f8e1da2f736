package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/media"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/worker"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// UserService administers accounts.
type UserService struct {
	users      repository.UserRepository
	complaints repository.ComplaintRepository
	media      mediaCleaner
	validate   *validator.Validate
	bcryptCost int
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo      repository.UserRepository
	ComplaintRepo repository.ComplaintRepository
	Media         media.Provider
	Runner        *worker.BestEffort
	Logger        *zap.Logger
	BcryptCost    int
	DeleteTimeout time.Duration
}

// UserListFilter describes the admin roster listing.
type UserListFilter struct {
	Role   *domain.Role
	Search string
	Pagination
}

// UserPage is one page of users with complaint counters.
type UserPage struct {
	Items      []domain.UserWithStats
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
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
	return &UserService{
		users:      deps.UserRepo,
		complaints: deps.ComplaintRepo,
		media:      mediaCleaner{provider: deps.Media, runner: runner, timeout: timeout},
		validate:   validator.New(),
		bcryptCost: deps.BcryptCost,
		logger:     logger,
	}
}

// UpdateProfile edits a user. Callers edit themselves; admins edit anyone and
// may also change the role.
func (s *UserService) UpdateProfile(ctx context.Context, actor domain.Actor, targetID string, patch domain.UserPatch, picture *media.Upload) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, mapNotFound(err, "user")
	}
	if actor.ID != user.ID && !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("not allowed to modify this user")
	}

	updated := *user

	if patch.Name.IsSet() {
		name, _ := patch.Name.Get()
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", map[string]any{"field": "name"})
		}
		updated.Name = name
	}

	if patch.Email.IsSet() {
		email, _ := patch.Email.Get()
		email = strings.TrimSpace(email)
		if err := s.validate.Var(email, "required,email"); err != nil {
			return nil, apperrors.NewValidationError("invalid email", map[string]any{"field": "email"})
		}
		if email != user.Email {
			existing, err := s.users.GetByEmail(ctx, email)
			switch {
			case err == nil && existing.ID != user.ID:
				return nil, apperrors.NewConflict("email already in use", map[string]any{"field": "email"})
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				return nil, err
			}
		}
		updated.Email = email
	}

	if patch.Password.IsSet() {
		password, _ := patch.Password.Get()
		hash, err := auth.HashPassword(password, s.bcryptCost)
		if err != nil {
			if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
				return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "password"})
			}
			return nil, apperrors.NewInternalError(err)
		}
		updated.PasswordHash = hash
	}

	if actor.IsAdmin() {
		if patch.Role.IsNull() {
			return nil, apperrors.NewValidationError("role cannot be empty", map[string]any{"field": "role"})
		}
		if role, ok := patch.Role.Get(); ok {
			parsed, err := domain.ParseRole(string(role))
			if err != nil {
				return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
			}
			updated.Role = parsed
		}
	}

	var newPicture *domain.Image
	if picture != nil {
		uploads := []media.Upload{*picture}
		if err := validateUploads("profilePicture", uploads); err != nil {
			return nil, err
		}
		images, err := s.media.uploadAll(ctx, profilePictureFolder, uploads)
		if err != nil {
			return nil, err
		}
		newPicture = &images[0]
		updated.ProfilePicture = newPicture
	}

	if err := s.users.Update(ctx, &updated); err != nil {
		if newPicture != nil {
			s.media.discard(ctx, []domain.Image{*newPicture})
		}
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, apperrors.NewConflict("email already in use", map[string]any{"field": "email"})
		default:
			return nil, mapNotFound(err, "user")
		}
	}

	if newPicture != nil && user.ProfilePicture != nil {
		s.media.deleteHandle(ctx, user.ProfilePicture.Handle)
	}
	return &updated, nil
}

// PromoteToAdmin grants the admin role.
func (s *UserService) PromoteToAdmin(ctx context.Context, targetID string) (*domain.User, error) {
	return s.changeRole(ctx, targetID, domain.RoleAdmin)
}

// DemoteFromAdmin revokes the admin role.
func (s *UserService) DemoteFromAdmin(ctx context.Context, targetID string) (*domain.User, error) {
	return s.changeRole(ctx, targetID, domain.RoleUser)
}

// PromoteByEmail grants the admin role to the account with the given email.
func (s *UserService) PromoteByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, mapNotFound(err, "user")
	}
	return s.changeRole(ctx, user.ID, domain.RoleAdmin)
}

// DemoteByEmail revokes the admin role from the account with the given email.
func (s *UserService) DemoteByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, mapNotFound(err, "user")
	}
	return s.changeRole(ctx, user.ID, domain.RoleUser)
}

func (s *UserService) changeRole(ctx context.Context, targetID string, role domain.Role) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, mapNotFound(err, "user")
	}
	if user.Role == role {
		msg := "user is already an admin"
		if !role.IsAdmin() {
			msg = "user is not an admin"
		}
		return nil, apperrors.NewConflictWithStatus(msg, http.StatusBadRequest)
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapNotFound(err, "user")
	}
	s.logger.Info("user role changed", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// DeleteUser removes an account together with its complaints. Hosted images
// are deleted concurrently and best-effort. It returns the number of removed
// complaints.
func (s *UserService) DeleteUser(ctx context.Context, actor domain.Actor, targetID string) (int64, error) {
	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return 0, mapNotFound(err, "user")
	}
	self := actor.ID == user.ID
	if !self && !actor.IsAdmin() {
		return 0, apperrors.NewForbidden("not allowed to delete this user")
	}
	if self && actor.IsAdmin() {
		return 0, apperrors.NewInvalidState("admins cannot delete their own account", nil)
	}

	complaints, err := s.complaints.ListByOwner(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	var handles []string
	for i := range complaints {
		handles = append(handles, complaints[i].ImageHandles()...)
	}
	if user.ProfilePicture != nil {
		handles = append(handles, user.ProfilePicture.Handle)
	}
	s.media.deleteAll(ctx, handles)

	removed, err := s.complaints.DeleteByOwner(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return 0, mapNotFound(err, "user")
	}
	s.logger.Info("user deleted",
		zap.String("user_id", user.ID),
		zap.String("actor_id", actor.ID),
		zap.Int64("complaints_removed", removed))
	return removed, nil
}

// GetWithStats returns a user and their complaint counters.
func (s *UserService) GetWithStats(ctx context.Context, targetID string) (*domain.UserWithStats, error) {
	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, mapNotFound(err, "user")
	}
	stats, err := s.complaints.StatsByOwners(ctx, []string{user.ID})
	if err != nil {
		return nil, err
	}
	return &domain.UserWithStats{User: user, Stats: stats[user.ID]}, nil
}

// ListUsers returns a filtered page of users, each with complaint counters.
func (s *UserService) ListUsers(ctx context.Context, filter UserListFilter) (*UserPage, error) {
	page := filter.Pagination.Normalize()
	users, total, err := s.users.List(ctx, repository.UserFilter{
		Role:   filter.Role,
		Search: strings.TrimSpace(filter.Search),
		Limit:  page.Limit,
		Offset: page.Offset(),
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	stats := map[string]domain.ComplaintStats{}
	if len(ids) > 0 {
		if stats, err = s.complaints.StatsByOwners(ctx, ids); err != nil {
			return nil, err
		}
	}

	result := &UserPage{
		Items:      make([]domain.UserWithStats, 0, len(users)),
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages(total),
	}
	for i := range users {
		result.Items = append(result.Items, domain.UserWithStats{User: &users[i], Stats: stats[users[i].ID]})
	}
	return result, nil
}
