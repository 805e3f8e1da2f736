package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
)

// UserRegisterRequest payload for new users.
type UserRegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserListQuery filters the admin roster.
type UserListQuery struct {
	Role   string `query:"role" validate:"omitempty,oneof=user admin"`
	Search string `query:"search" validate:"max=100"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

// ImageResponse is a hosted image.
type ImageResponse struct {
	URL    string `json:"url"`
	Handle string `json:"handle"`
}

// UserResponse is the public rendering of an account. The password hash is
// never rendered.
type UserResponse struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Role           domain.Role    `json:"role"`
	ProfilePicture *ImageResponse `json:"profilePicture"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// ComplaintStatsResponse counts a user's complaints per status.
type ComplaintStatsResponse struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Resolved   int64 `json:"resolved"`
	Rejected   int64 `json:"rejected"`
}

// UserWithStatsResponse is a user plus complaint counters.
type UserWithStatsResponse struct {
	UserResponse
	ComplaintStats ComplaintStatsResponse `json:"complaintStats"`
}

// UserListResponse is a page of users.
type UserListResponse struct {
	Users      []UserWithStatsResponse `json:"users"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
	TotalPages int                     `json:"totalPages"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// DeleteUserResponse reports the cascade result.
type DeleteUserResponse struct {
	DeletedComplaints int64 `json:"deletedComplaints"`
}

// NewUserResponse renders a user.
func NewUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.ProfilePicture != nil {
		resp.ProfilePicture = &ImageResponse{URL: u.ProfilePicture.URL, Handle: u.ProfilePicture.Handle}
	}
	return resp
}

// NewUserWithStatsResponse renders a user with counters.
func NewUserWithStatsResponse(u domain.UserWithStats) UserWithStatsResponse {
	return UserWithStatsResponse{
		UserResponse: NewUserResponse(u.User),
		ComplaintStats: ComplaintStatsResponse{
			Total:      u.Stats.Total,
			Pending:    u.Stats.Pending,
			InProgress: u.Stats.InProgress,
			Resolved:   u.Stats.Resolved,
			Rejected:   u.Stats.Rejected,
		},
	}
}

// NewUserListResponse renders a page of users.
func NewUserListResponse(page *service.UserPage) UserListResponse {
	resp := UserListResponse{
		Users:      make([]UserWithStatsResponse, 0, len(page.Items)),
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}
	for _, item := range page.Items {
		resp.Users = append(resp.Users, NewUserWithStatsResponse(item))
	}
	return resp
}

// NewAuthResponse renders a session.
func NewAuthResponse(s *service.Session) AuthResponse {
	return AuthResponse{Token: s.Token, ExpiresAt: s.ExpiresAt, User: NewUserResponse(s.User)}
}
