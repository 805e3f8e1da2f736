package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/service"
)

// AdminHandler exposes role management.
type AdminHandler struct {
	users *service.UserService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(users *service.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

// Promote handles PUT /admin/promote/:id.
func (h *AdminHandler) Promote(c *fiber.Ctx) error {
	user, err := h.users.PromoteToAdmin(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user promoted to admin", dto.NewUserResponse(user))
}

// Demote handles PUT /admin/demote/:id.
func (h *AdminHandler) Demote(c *fiber.Ctx) error {
	user, err := h.users.DemoteFromAdmin(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "user demoted to user", dto.NewUserResponse(user))
}
