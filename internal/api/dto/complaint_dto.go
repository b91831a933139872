package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// CreateComplaintRequest payload for submissions.
type CreateComplaintRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`
}

// UpdateComplaintRequest patches content fields; absent fields are left
// unchanged.
type UpdateComplaintRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Location    *string `json:"location"`
}

// UpdateStatusRequest moves a complaint through its lifecycle.
type UpdateStatusRequest struct {
	Status domain.ComplaintStatus `json:"status"`
}

// AttachResponseRequest carries the admin response text.
type AttachResponseRequest struct {
	Response string `json:"response"`
}

// ComplaintSummary is the listing view.
type ComplaintSummary struct {
	ID           string                   `json:"id"`
	Reference    string                   `json:"reference"`
	Title        string                   `json:"title"`
	Category     domain.ComplaintCategory `json:"category"`
	Location     string                   `json:"location"`
	Status       domain.ComplaintStatus   `json:"status"`
	HasResponse  bool                     `json:"has_response"`
	ResponseRead bool                     `json:"response_read"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

// ComplaintDetailResponse is the full view.
type ComplaintDetailResponse struct {
	ID           string                   `json:"id"`
	Reference    string                   `json:"reference"`
	OwnerID      string                   `json:"owner_id"`
	Title        string                   `json:"title"`
	Description  string                   `json:"description"`
	Category     domain.ComplaintCategory `json:"category"`
	Location     string                   `json:"location"`
	Status       domain.ComplaintStatus   `json:"status"`
	Response     *string                  `json:"response,omitempty"`
	ResponseRead bool                     `json:"response_read"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}
