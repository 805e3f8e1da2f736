package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
)

// ComplaintCreateRequest is the form payload for filing a complaint.
type ComplaintCreateRequest struct {
	Title       string `form:"title" json:"title" validate:"required,max=200"`
	Description string `form:"description" json:"description" validate:"required,max=5000"`
	Category    string `form:"category" json:"category" validate:"required"`
	Address     string `form:"address" json:"address" validate:"required,max=500"`
	Priority    string `form:"priority" json:"priority" validate:"omitempty,oneof=Low Medium High Critical"`
}

// ComplaintListQuery filters the admin listing.
type ComplaintListQuery struct {
	Status   string `query:"status"`
	Category string `query:"category"`
	Priority string `query:"priority"`
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
}

// OwnerResponse is the public identity of a complaint owner.
type OwnerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ComplaintResponse renders a complaint.
type ComplaintResponse struct {
	ID          string                   `json:"id"`
	UserID      string                   `json:"userId"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Category    domain.ComplaintCategory `json:"category"`
	Address     string                   `json:"address"`
	Images      []ImageResponse          `json:"images"`
	Status      domain.ComplaintStatus   `json:"status"`
	Priority    domain.ComplaintPriority `json:"priority"`
	ResolvedAt  *time.Time               `json:"resolvedAt"`
	AdminNotes  string                   `json:"adminNotes"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
	User        *OwnerResponse           `json:"user,omitempty"`
}

// ComplaintListResponse is a page of complaints.
type ComplaintListResponse struct {
	Complaints []ComplaintResponse `json:"complaints"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"totalPages"`
}

// NewComplaintResponse renders a complaint without owner details.
func NewComplaintResponse(c *domain.Complaint) ComplaintResponse {
	resp := ComplaintResponse{
		ID:          c.ID,
		UserID:      c.OwnerID,
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		Address:     c.Address,
		Images:      make([]ImageResponse, 0, len(c.Images)),
		Status:      c.Status,
		Priority:    c.Priority,
		ResolvedAt:  c.ResolvedAt,
		AdminNotes:  c.AdminNotes,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for _, img := range c.Images {
		resp.Images = append(resp.Images, ImageResponse{URL: img.URL, Handle: img.Handle})
	}
	return resp
}

// NewComplaintWithOwnerResponse renders a complaint with its owner.
func NewComplaintWithOwnerResponse(c domain.ComplaintWithOwner) ComplaintResponse {
	resp := NewComplaintResponse(c.Complaint)
	if c.Owner != nil {
		resp.User = &OwnerResponse{ID: c.Owner.ID, Name: c.Owner.Name, Email: c.Owner.Email}
	}
	return resp
}

// NewComplaintListResponse renders complaints without pagination.
func NewComplaintListResponse(items []domain.Complaint) []ComplaintResponse {
	out := make([]ComplaintResponse, 0, len(items))
	for i := range items {
		out = append(out, NewComplaintResponse(&items[i]))
	}
	return out
}

// NewComplaintPageResponse renders a page of complaints.
func NewComplaintPageResponse(page *service.ComplaintPage) ComplaintListResponse {
	resp := ComplaintListResponse{
		Complaints: make([]ComplaintResponse, 0, len(page.Items)),
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}
	for _, item := range page.Items {
		resp.Complaints = append(resp.Complaints, NewComplaintWithOwnerResponse(item))
	}
	return resp
}
