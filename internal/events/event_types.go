package events

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated          EventType = "complaint_created"
	EventComplaintStatusChanged    EventType = "complaint_status_changed"
	EventComplaintResponseAttached EventType = "complaint_response_attached"
	EventComplaintDeleted          EventType = "complaint_deleted"
	EventComplaintUpdated          EventType = "complaint_updated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ComplaintID string      `json:"complaint_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Reference string                   `json:"reference"`
	Category  domain.ComplaintCategory `json:"category"`
	Title     string                   `json:"title"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	OldStatus domain.ComplaintStatus `json:"old_status"`
	NewStatus domain.ComplaintStatus `json:"new_status"`
}

// ComplaintResponseAttachedPayload payload.
type ComplaintResponseAttachedPayload struct {
	OwnerID         string `json:"owner_id"`
	ResponsePreview string `json:"response_preview"`
}

// ComplaintDeletedPayload payload.
type ComplaintDeletedPayload struct {
	Reference string `json:"reference"`
}

// ComplaintUpdatedPayload is published by the poller for complaints changed
// since its previous sweep.
type ComplaintUpdatedPayload struct {
	OwnerID      string                 `json:"owner_id"`
	Status       domain.ComplaintStatus `json:"status"`
	HasResponse  bool                   `json:"has_response"`
	ResponseRead bool                   `json:"response_read"`
}
