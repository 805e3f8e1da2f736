package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

const complaintImagesField = "images"

// ComplaintsHandler exposes the complaint lifecycle.
type ComplaintsHandler struct {
	complaints *service.ComplaintService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaints *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{complaints: complaints}
}

// Create handles POST /complaint/create.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	fields, form, err := readFields(c)
	if err != nil {
		return err
	}

	req := dto.ComplaintCreateRequest{
		Title:       fields.value("title"),
		Description: fields.value("description"),
		Category:    fields.value("category"),
		Address:     fields.value("address"),
		Priority:    fields.value("priority"),
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	uploads, closeUploads, err := openUploads(form, complaintImagesField)
	if err != nil {
		return err
	}
	defer closeUploads()

	complaint, err := h.complaints.Create(c.UserContext(), p.User.ID, service.ComplaintCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Address:     req.Address,
		Priority:    req.Priority,
	}, uploads)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "complaint created", dto.NewComplaintResponse(complaint))
}

// Update handles PUT /complaint/update/:id.
func (h *ComplaintsHandler) Update(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	fields, form, err := readFields(c)
	if err != nil {
		return err
	}

	patch := domain.ComplaintPatch{
		Title:       fields.text("title"),
		Description: fields.text("description"),
		Category:    typedPatch[domain.ComplaintCategory](fields, "category"),
		Address:     fields.text("address"),
		Priority:    typedPatch[domain.ComplaintPriority](fields, "priority"),
		Status:      typedPatch[domain.ComplaintStatus](fields, "status"),
		AdminNotes:  fields.text("adminNotes"),
	}

	uploads, closeUploads, err := openUploads(form, complaintImagesField)
	if err != nil {
		return err
	}
	defer closeUploads()

	complaint, err := h.complaints.Update(c.UserContext(), p.Actor(), c.Params("id"), patch, uploads)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "complaint updated", dto.NewComplaintResponse(complaint))
}

// Delete handles DELETE /complaint/delete/:id.
func (h *ComplaintsHandler) Delete(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.complaints.Delete(c.UserContext(), p.Actor(), c.Params("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "complaint deleted", nil)
}

// Get handles GET /complaint/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	complaint, err := h.complaints.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "complaint fetched", dto.NewComplaintWithOwnerResponse(*complaint))
}

// ListMine handles GET /complaint/user.
func (h *ComplaintsHandler) ListMine(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.complaints.ListMine(c.UserContext(), p.User.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "complaints fetched", dto.NewComplaintListResponse(items))
}

// ListAll handles GET /complaint/all.
func (h *ComplaintsHandler) ListAll(c *fiber.Ctx) error {
	var query dto.ComplaintListQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}

	filter := service.ComplaintListFilter{Pagination: service.Pagination{Page: query.Page, Limit: query.Limit}}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, err := domain.ParseComplaintStatus(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(query.Category); raw != "" {
		category, err := domain.ParseComplaintCategory(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid category", map[string]any{"category": raw})
		}
		filter.Category = &category
	}
	if raw := strings.TrimSpace(query.Priority); raw != "" {
		priority, err := domain.ParseComplaintPriority(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid priority", map[string]any{"priority": raw})
		}
		filter.Priority = &priority
	}

	page, err := h.complaints.ListAll(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "complaints fetched", dto.NewComplaintPageResponse(page))
}
