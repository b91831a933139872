package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// ComplaintService drives the complaint lifecycle: creation, status
// transitions, response handling, content edits, and deletion, with role and
// ownership checks on every operation.
type ComplaintService struct {
	complaints repository.ComplaintRepository
	dispatcher events.Dispatcher
}

// ComplaintDependencies bundles collaborators for the service.
type ComplaintDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	Dispatcher    events.Dispatcher
}

// ComplaintCreateInput describes submission payload.
type ComplaintCreateInput struct {
	Title       string
	Description string
	Category    domain.ComplaintCategory
	Location    string
}

// ComplaintContentPatch carries the content fields an owner may edit; nil
// fields are left unchanged.
type ComplaintContentPatch struct {
	Title       *string
	Description *string
	Category    *domain.ComplaintCategory
	Location    *string
}

// ComplaintListFilter describes admin listing filters.
type ComplaintListFilter struct {
	Statuses    []domain.ComplaintStatus
	Categories  []domain.ComplaintCategory
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	return &ComplaintService{
		complaints: deps.ComplaintRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Create submits a new complaint for the citizen actor. The complaint starts
// in PENDING with the actor as owner.
func (s *ComplaintService) Create(ctx context.Context, actor *domain.User, input ComplaintCreateInput) (*domain.Complaint, error) {
	if actor.IsAdmin() {
		return nil, apperrors.NewForbidden("complaints are submitted by citizens")
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Location = strings.TrimSpace(input.Location)
	if err := validateContent(input.Title, input.Description, input.Category, input.Location); err != nil {
		return nil, err
	}

	complaint := &domain.Complaint{
		Reference:   generateReference(),
		OwnerID:     actor.ID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Location:    input.Location,
		Status:      domain.ComplaintStatusPending,
	}
	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintCreated,
		ComplaintID: complaint.ID,
		Actor:       actorOf(actor),
		Payload: events.ComplaintCreatedPayload{
			Reference: complaint.Reference,
			Category:  complaint.Category,
			Title:     complaint.Title,
		},
	})
	return complaint, nil
}

// Transition moves a complaint to newStatus. Admin only; the edge must be
// legal per the lifecycle table. A same-status transition is a no-op success.
// A stale-version conflict is retried exactly once against the fresh record.
func (s *ComplaintService) Transition(ctx context.Context, actor *domain.User, complaintID string, newStatus domain.ComplaintStatus) (*domain.Complaint, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only administrators change complaint status")
	}
	if !domain.KnownStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(newStatus)})
	}

	complaint, err := s.fetch(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	updated, err := s.applyTransition(ctx, complaint, newStatus)
	if err != nil && apperrors.HasCode(err, apperrors.CodeConflict) {
		complaint, err = s.fetch(ctx, complaintID)
		if err != nil {
			return nil, err
		}
		updated, err = s.applyTransition(ctx, complaint, newStatus)
	}
	if err != nil {
		return nil, err
	}

	if updated.Status != complaint.Status || updated.Version != complaint.Version {
		s.publishEvent(ctx, events.Event{
			Type:        events.EventComplaintStatusChanged,
			ComplaintID: updated.ID,
			Actor:       actorOf(actor),
			Payload: events.ComplaintStatusChangedPayload{
				OldStatus: complaint.Status,
				NewStatus: updated.Status,
			},
		})
	}
	return updated, nil
}

func (s *ComplaintService) applyTransition(ctx context.Context, complaint *domain.Complaint, newStatus domain.ComplaintStatus) (*domain.Complaint, error) {
	if complaint.Status == newStatus {
		return complaint, nil
	}
	if !domain.CanTransition(complaint.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(complaint.Status), string(newStatus))
	}
	updated, err := s.complaints.UpdateStatus(ctx, complaint.ID, newStatus, complaint.Version)
	if err != nil {
		return nil, mapNoRows(err, "complaint")
	}
	return updated, nil
}

// AttachResponse sets the admin response text. Every new response is unread
// until the owner acknowledges it.
func (s *ComplaintService) AttachResponse(ctx context.Context, actor *domain.User, complaintID, text string) (*domain.Complaint, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only administrators respond to complaints")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("response text required", nil)
	}

	complaint, err := s.fetch(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	updated, err := s.complaints.SetResponse(ctx, complaint.ID, text, complaint.Version)
	if err != nil && apperrors.HasCode(err, apperrors.CodeConflict) {
		complaint, err = s.fetch(ctx, complaintID)
		if err != nil {
			return nil, err
		}
		updated, err = s.complaints.SetResponse(ctx, complaint.ID, text, complaint.Version)
	}
	if err != nil {
		return nil, mapNoRows(err, "complaint")
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintResponseAttached,
		ComplaintID: updated.ID,
		Actor:       actorOf(actor),
		Payload: events.ComplaintResponseAttachedPayload{
			OwnerID:         updated.OwnerID,
			ResponsePreview: stringPreview(text, 120),
		},
	})
	return updated, nil
}

// MarkResponseRead acknowledges the response. Owner only; requires a
// non-empty response; acknowledging twice is a no-op.
func (s *ComplaintService) MarkResponseRead(ctx context.Context, actor *domain.User, complaintID string) error {
	complaint, err := s.fetch(ctx, complaintID)
	if err != nil {
		return err
	}
	if complaint.OwnerID != actor.ID {
		return apperrors.NewForbidden("only the complaint owner acknowledges responses")
	}
	if !complaint.HasResponse() {
		return apperrors.NewInvalidState("complaint has no response")
	}
	if complaint.ResponseRead {
		return nil
	}
	if err := s.complaints.MarkResponseRead(ctx, complaint.ID); err != nil {
		return mapNoRows(err, "complaint")
	}
	return nil
}

// EditContent patches the supplied content fields. Owner only, and only
// while the complaint is still PENDING.
func (s *ComplaintService) EditContent(ctx context.Context, actor *domain.User, complaintID string, patch ComplaintContentPatch) (*domain.Complaint, error) {
	complaint, err := s.fetch(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.OwnerID != actor.ID {
		return nil, apperrors.NewForbidden("only the complaint owner edits content")
	}
	if complaint.Status != domain.ComplaintStatusPending {
		return nil, apperrors.NewInvalidState("complaint can only be edited while pending")
	}

	updated, err := s.applyEdit(ctx, complaint, patch)
	if err != nil && apperrors.HasCode(err, apperrors.CodeConflict) {
		complaint, err = s.fetch(ctx, complaintID)
		if err != nil {
			return nil, err
		}
		if complaint.Status != domain.ComplaintStatusPending {
			return nil, apperrors.NewInvalidState("complaint can only be edited while pending")
		}
		updated, err = s.applyEdit(ctx, complaint, patch)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *ComplaintService) applyEdit(ctx context.Context, complaint *domain.Complaint, patch ComplaintContentPatch) (*domain.Complaint, error) {
	edited := *complaint
	if patch.Title != nil {
		edited.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		edited.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		edited.Category = *patch.Category
	}
	if patch.Location != nil {
		edited.Location = strings.TrimSpace(*patch.Location)
	}
	if err := validateContent(edited.Title, edited.Description, edited.Category, edited.Location); err != nil {
		return nil, err
	}
	if err := s.complaints.UpdateContent(ctx, &edited); err != nil {
		return nil, mapNoRows(err, "complaint")
	}
	return &edited, nil
}

// Delete removes a complaint. Owner only, and only while the status is
// PENDING or IN_PROGRESS. Deleting an unknown id is NOT_FOUND, never a
// silent success.
func (s *ComplaintService) Delete(ctx context.Context, actor *domain.User, complaintID string) error {
	complaint, err := s.fetch(ctx, complaintID)
	if err != nil {
		return err
	}
	if complaint.OwnerID != actor.ID {
		return apperrors.NewForbidden("only the complaint owner deletes it")
	}
	if !complaint.Deletable() {
		return apperrors.NewInvalidState("complaint can no longer be deleted")
	}
	if err := s.complaints.Delete(ctx, complaint.ID); err != nil {
		return mapNoRows(err, "complaint")
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintDeleted,
		ComplaintID: complaint.ID,
		Actor:       actorOf(actor),
		Payload: events.ComplaintDeletedPayload{
			Reference: complaint.Reference,
		},
	})
	return nil
}

// GetForActor fetches a complaint, allowing the owner and any admin.
func (s *ComplaintService) GetForActor(ctx context.Context, actor *domain.User, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.fetch(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && complaint.OwnerID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return complaint, nil
}

// TrackByReference resolves a complaint by its public reference key, with
// the same owner-or-admin visibility as GetForActor.
func (s *ComplaintService) TrackByReference(ctx context.Context, actor *domain.User, reference string) (*domain.Complaint, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if reference == "" {
		return nil, apperrors.NewValidationError("reference required", nil)
	}
	complaint, err := s.complaints.GetByReference(ctx, reference)
	if err != nil {
		return nil, mapNoRows(err, "complaint")
	}
	if !actor.IsAdmin() && complaint.OwnerID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return complaint, nil
}

// ListForOwner returns the actor's own complaints.
func (s *ComplaintService) ListForOwner(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.Complaint, error) {
	complaints, err := s.complaints.ListByOwner(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return complaints, nil
}

// ListAll returns filtered complaints for administrators.
func (s *ComplaintService) ListAll(ctx context.Context, actor *domain.User, filter ComplaintListFilter) ([]domain.Complaint, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only administrators list all complaints")
	}
	repoFilter := repository.ComplaintFilter{
		Statuses:    filter.Statuses,
		Categories:  filter.Categories,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	complaints, err := s.complaints.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return complaints, nil
}

func (s *ComplaintService) fetch(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, mapNoRows(err, "complaint")
	}
	return complaint, nil
}

func (s *ComplaintService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validateContent(title, description string, category domain.ComplaintCategory, location string) error {
	details := map[string]any{}
	if title == "" {
		details["title"] = "required"
	}
	if description == "" {
		details["description"] = "required"
	} else if utf8.RuneCountInString(description) > domain.MaxDescriptionLength {
		details["description"] = "exceeds maximum length"
	}
	if category == "" {
		details["category"] = "required"
	} else if !category.Valid() {
		details["category"] = "unknown category"
	}
	if location == "" {
		details["location"] = "required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid complaint content", details)
	}
	return nil
}

func mapNoRows(err error, resource string) error {
	if err == pgx.ErrNoRows {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.MapError(err)
}

func actorOf(user *domain.User) events.Actor {
	if user == nil {
		return events.Actor{}
	}
	return events.Actor{UserID: user.ID, Role: user.Role}
}

func generateReference() string {
	return "CMP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
