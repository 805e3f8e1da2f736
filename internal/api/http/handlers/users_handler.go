package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/media"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

const profilePictureField = "profilePicture"

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetWithStats(c.UserContext(), p.User.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user fetched", dto.NewUserWithStatsResponse(*user))
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetWithStats(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user fetched", dto.NewUserWithStatsResponse(*user))
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	var query dto.UserListQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	if err := dto.Validate(query); err != nil {
		return err
	}

	filter := service.UserListFilter{
		Search:     query.Search,
		Pagination: service.Pagination{Page: query.Page, Limit: query.Limit},
	}
	if query.Role != "" {
		role, err := domain.ParseRole(query.Role)
		if err != nil {
			return apperrors.NewValidationError("invalid role", map[string]any{"role": query.Role})
		}
		filter.Role = &role
	}

	page, err := h.users.ListUsers(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "users fetched", dto.NewUserListResponse(page))
}

// Update handles PUT /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	fields, form, err := readFields(c)
	if err != nil {
		return err
	}

	patch := domain.UserPatch{
		Name:     fields.text("name"),
		Email:    fields.text("email"),
		Password: fields.text("password"),
		Role:     typedPatch[domain.Role](fields, "role"),
	}

	uploads, closeUploads, err := openUploads(form, profilePictureField)
	if err != nil {
		return err
	}
	defer closeUploads()
	if len(uploads) > 1 {
		return apperrors.NewValidationError("only one profile picture may be uploaded", nil)
	}

	var picture *media.Upload
	if len(uploads) == 1 {
		picture = &uploads[0]
	}

	user, err := h.users.UpdateProfile(c.UserContext(), p.Actor(), c.Params("id"), patch, picture)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user updated", dto.NewUserResponse(user))
}

// Delete handles DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	removed, err := h.users.DeleteUser(c.UserContext(), p.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user deleted", dto.DeleteUserResponse{DeletedComplaints: removed})
}
