package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates a raw role string.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// IsAdmin reports whether the role carries administrative authority.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleUser:
		return false
	default:
		return false
	}
}

// Image is a media asset hosted by the media provider.
type Image struct {
	URL    string `json:"url"`
	Handle string `json:"handle"`
}

// User is the domain model for accounts that file or triage complaints.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	ProfilePicture *Image
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserRef is the public identity of a complaint owner.
type UserRef struct {
	ID    string
	Name  string
	Email string
}

// Ref returns the owner identity of the user.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// ComplaintStats counts a user's complaints per status.
type ComplaintStats struct {
	Total      int64
	Pending    int64
	InProgress int64
	Resolved   int64
	Rejected   int64
}

// Add accumulates count complaints in the given status.
func (s *ComplaintStats) Add(status ComplaintStatus, count int64) {
	s.Total += count
	switch status {
	case ComplaintStatusPending:
		s.Pending += count
	case ComplaintStatusInProgress:
		s.InProgress += count
	case ComplaintStatusResolved:
		s.Resolved += count
	case ComplaintStatusRejected:
		s.Rejected += count
	}
}

// UserWithStats pairs a user with complaint counters.
type UserWithStats struct {
	User  *User
	Stats ComplaintStats
}
