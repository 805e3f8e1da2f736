package domain

import (
	"fmt"
	"time"
)

// MaxComplaintImages caps the number of images attached to one complaint.
const MaxComplaintImages = 5

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	ComplaintStatusPending    ComplaintStatus = "Pending"
	ComplaintStatusInProgress ComplaintStatus = "In Progress"
	ComplaintStatusResolved   ComplaintStatus = "Resolved"
	ComplaintStatusRejected   ComplaintStatus = "Rejected"
)

// ParseComplaintStatus validates a raw status string.
func ParseComplaintStatus(raw string) (ComplaintStatus, error) {
	switch s := ComplaintStatus(raw); s {
	case ComplaintStatusPending, ComplaintStatusInProgress, ComplaintStatusResolved, ComplaintStatusRejected:
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// NotificationTemplate names the email sent when a complaint enters the status.
// Pending has none.
func (s ComplaintStatus) NotificationTemplate() (string, bool) {
	switch s {
	case ComplaintStatusInProgress:
		return "complaint_in_progress", true
	case ComplaintStatusResolved:
		return "complaint_resolved", true
	case ComplaintStatusRejected:
		return "complaint_rejected", true
	}
	return "", false
}

// ComplaintPriority enumerates triage urgency.
type ComplaintPriority string

const (
	ComplaintPriorityLow      ComplaintPriority = "Low"
	ComplaintPriorityMedium   ComplaintPriority = "Medium"
	ComplaintPriorityHigh     ComplaintPriority = "High"
	ComplaintPriorityCritical ComplaintPriority = "Critical"
)

// ParseComplaintPriority validates a raw priority string.
func ParseComplaintPriority(raw string) (ComplaintPriority, error) {
	switch p := ComplaintPriority(raw); p {
	case ComplaintPriorityLow, ComplaintPriorityMedium, ComplaintPriorityHigh, ComplaintPriorityCritical:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q", raw)
}

// ComplaintCategory is the fixed set of complaint subjects.
type ComplaintCategory string

const (
	CategoryInfrastructure ComplaintCategory = "Infrastructure"
	CategorySanitation     ComplaintCategory = "Sanitation"
	CategoryWaterSupply    ComplaintCategory = "Water Supply"
	CategoryElectricity    ComplaintCategory = "Electricity"
	CategoryPublicSafety   ComplaintCategory = "Public Safety"
	CategoryNoise          ComplaintCategory = "Noise"
	CategoryOther          ComplaintCategory = "Other"
)

// ComplaintCategories lists every accepted category.
var ComplaintCategories = []ComplaintCategory{
	CategoryInfrastructure,
	CategorySanitation,
	CategoryWaterSupply,
	CategoryElectricity,
	CategoryPublicSafety,
	CategoryNoise,
	CategoryOther,
}

// ParseComplaintCategory validates a raw category string.
func ParseComplaintCategory(raw string) (ComplaintCategory, error) {
	for _, c := range ComplaintCategories {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", raw)
}

// Complaint is the aggregate for a filed grievance.
type Complaint struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Category    ComplaintCategory
	Address     string
	Images      []Image
	Status      ComplaintStatus
	Priority    ComplaintPriority
	ResolvedAt  *time.Time
	AdminNotes  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApplyStatus moves the complaint to next. The first entry into Resolved stamps
// ResolvedAt; later transitions never clear or move it.
func (c *Complaint) ApplyStatus(next ComplaintStatus, now time.Time) (changed bool) {
	changed = c.Status != next
	c.Status = next
	if next == ComplaintStatusResolved && c.ResolvedAt == nil {
		stamp := now
		c.ResolvedAt = &stamp
	}
	return changed
}

// ImageHandles returns the deletion handles of attached images.
func (c *Complaint) ImageHandles() []string {
	handles := make([]string, 0, len(c.Images))
	for _, img := range c.Images {
		if img.Handle != "" {
			handles = append(handles, img.Handle)
		}
	}
	return handles
}

// ComplaintWithOwner is a complaint plus its owner's public identity.
type ComplaintWithOwner struct {
	Complaint *Complaint
	Owner     *UserRef
}
