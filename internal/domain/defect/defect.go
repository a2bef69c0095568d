package defect

import (
	"errors"
	"time"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusReview     = "review"
	StatusClosed     = "closed"
	StatusCancelled  = "cancelled"
)

// StatusAll is the list-filter sentinel that bypasses the status clause.
const StatusAll = "all"

type Defect struct {
	ID            int64     `json:"id"`
	ProjectID     int64     `json:"project_id"`
	ProjectName   string    `json:"project_name"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Priority      string    `json:"priority"`
	Status        string    `json:"status"`
	AssigneeID    *int64    `json:"assignee_id"`
	AttachmentURL string    `json:"attachment_url"`
	CreatedAt     time.Time `json:"created_at"`
}

var ErrNotFound = errors.New("defect not found")

type CreateDefectRequest struct {
	ProjectID     int64  `json:"project_id" binding:"required"`
	Title         string `json:"title" binding:"required,min=1,max=200"`
	Description   string `json:"description" binding:"omitempty,max=5000"`
	Priority      string `json:"priority"`
	Status        string `json:"status"`
	AssigneeID    *int64 `json:"assignee_id"`
	AttachmentURL string `json:"attachment_url"`
}

// Patch lists the only fields writable after creation. A nil field means
// "leave untouched"; server-controlled fields (id, project_id, created_at)
// are deliberately absent.
type Patch struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Priority      *string `json:"priority"`
	Status        *string `json:"status"`
	AssigneeID    *int64  `json:"assignee_id"`
	AttachmentURL *string `json:"attachment_url"`
}

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Status == nil && p.AssigneeID == nil && p.AttachmentURL == nil
}

// Filter clauses are ANDed together; nil means "no constraint".
// To is exclusive (callers pass start-of-next-day for an inclusive date_to).
type Filter struct {
	ProjectID *int64
	Status    *string
	Priority  *string
	Query     *string
	From      *time.Time
	To        *time.Time
}
