package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// fakeComplaintRepo is an in-memory ComplaintRepository. Setting
// conflictsLeft makes the next N version-checked writes fail with CONFLICT,
// mimicking a concurrent update.
type fakeComplaintRepo struct {
	mu            sync.Mutex
	complaints    map[string]*domain.Complaint
	conflictsLeft int
}

func newFakeComplaintRepo() *fakeComplaintRepo {
	return &fakeComplaintRepo{complaints: make(map[string]*domain.Complaint)}
}

func (f *fakeComplaintRepo) Create(_ context.Context, complaint *domain.Complaint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	complaint.ID = uuid.NewString()
	complaint.Version = 1
	complaint.CreatedAt = time.Now()
	complaint.UpdatedAt = complaint.CreatedAt
	copied := *complaint
	f.complaints[complaint.ID] = &copied
	return nil
}

func (f *fakeComplaintRepo) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.complaints[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeComplaintRepo) GetByReference(_ context.Context, reference string) (*domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.complaints {
		if stored.Reference == reference {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeComplaintRepo) UpdateContent(_ context.Context, complaint *domain.Complaint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return apperrors.NewConflict("complaint was modified concurrently", nil)
	}
	stored, ok := f.complaints[complaint.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Title = complaint.Title
	stored.Description = complaint.Description
	stored.Category = complaint.Category
	stored.Location = complaint.Location
	stored.Version++
	stored.UpdatedAt = time.Now()
	complaint.Version = stored.Version
	return nil
}

func (f *fakeComplaintRepo) UpdateStatus(_ context.Context, id string, status domain.ComplaintStatus, expectedVersion int64) (*domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return nil, apperrors.NewConflict("complaint was modified concurrently", nil)
	}
	stored, ok := f.complaints[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if stored.Version != expectedVersion {
		return nil, apperrors.NewConflict("complaint was modified concurrently", nil)
	}
	stored.Status = status
	stored.Version++
	stored.UpdatedAt = time.Now()
	copied := *stored
	return &copied, nil
}

func (f *fakeComplaintRepo) SetResponse(_ context.Context, id, text string, expectedVersion int64) (*domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return nil, apperrors.NewConflict("complaint was modified concurrently", nil)
	}
	stored, ok := f.complaints[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if stored.Version != expectedVersion {
		return nil, apperrors.NewConflict("complaint was modified concurrently", nil)
	}
	stored.Response = &text
	stored.ResponseRead = false
	stored.Version++
	stored.UpdatedAt = time.Now()
	copied := *stored
	return &copied, nil
}

func (f *fakeComplaintRepo) MarkResponseRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.complaints[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.ResponseRead = true
	stored.Version++
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeComplaintRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.complaints[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.complaints, id)
	return nil
}

func (f *fakeComplaintRepo) ListByOwner(_ context.Context, ownerID string, _, _ int) ([]domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Complaint
	for _, stored := range f.complaints {
		if stored.OwnerID == ownerID {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (f *fakeComplaintRepo) ListWithFilter(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Complaint
	for _, stored := range f.complaints {
		if filter.UpdatedFrom != nil && stored.UpdatedAt.Before(*filter.UpdatedFrom) {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

func citizen(id string) *domain.User {
	return &domain.User{ID: id, Role: domain.RoleCitizen, Status: domain.UserStatusActive}
}

func admin() *domain.User {
	return &domain.User{ID: "admin-1", Role: domain.RoleAdmin, Status: domain.UserStatusActive}
}

func newTestService(repo *fakeComplaintRepo) (*ComplaintService, events.Dispatcher) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewComplaintService(ComplaintDependencies{ComplaintRepo: repo, Dispatcher: dispatcher})
	return svc, dispatcher
}

func submitComplaint(t *testing.T, svc *ComplaintService, owner *domain.User) *domain.Complaint {
	t.Helper()
	complaint, err := svc.Create(context.Background(), owner, ComplaintCreateInput{
		Title:       "Broken streetlight",
		Description: "The light on the corner has been out for a week.",
		Category:    domain.CategoryInfrastructure,
		Location:    "Main St",
	})
	require.NoError(t, err)
	return complaint
}

func TestComplaintCreate(t *testing.T) {
	repo := newFakeComplaintRepo()
	svc, dispatcher := newTestService(repo)

	var published []events.Event
	dispatcher.Subscribe(events.EventComplaintCreated, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})

	owner := citizen("user-1")
	complaint := submitComplaint(t, svc, owner)

	assert.NotEmpty(t, complaint.ID)
	assert.Equal(t, domain.ComplaintStatusPending, complaint.Status)
	assert.Equal(t, "user-1", complaint.OwnerID)
	assert.True(t, strings.HasPrefix(complaint.Reference, "CMP-"))
	assert.Len(t, complaint.Reference, 12)
	require.Len(t, published, 1)
	assert.Equal(t, complaint.ID, published[0].ComplaintID)
}

func TestComplaintCreateRejectsAdmin(t *testing.T) {
	svc, _ := newTestService(newFakeComplaintRepo())

	_, err := svc.Create(context.Background(), admin(), ComplaintCreateInput{
		Title:       "t",
		Description: "d",
		Category:    domain.CategoryOther,
		Location:    "l",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestComplaintCreateValidation(t *testing.T) {
	svc, _ := newTestService(newFakeComplaintRepo())
	owner := citizen("user-1")

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Create(context.Background(), owner, ComplaintCreateInput{})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := svc.Create(context.Background(), owner, ComplaintCreateInput{
			Title:       "t",
			Description: "d",
			Category:    domain.ComplaintCategory("plumbing"),
			Location:    "l",
		})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("description too long", func(t *testing.T) {
		_, err := svc.Create(context.Background(), owner, ComplaintCreateInput{
			Title:       "t",
			Description: strings.Repeat("x", domain.MaxDescriptionLength+1),
			Category:    domain.CategoryRoads,
			Location:    "l",
		})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("multibyte description is counted in runes", func(t *testing.T) {
		// 600 runes but well over 1000 bytes
		description := strings.Repeat("é", 600)
		require.Greater(t, len(description), domain.MaxDescriptionLength)

		_, err := svc.Create(context.Background(), owner, ComplaintCreateInput{
			Title:       "t",
			Description: description,
			Category:    domain.CategoryRoads,
			Location:    "l",
		})
		assert.NoError(t, err)
	})

	t.Run("whitespace-only title", func(t *testing.T) {
		_, err := svc.Create(context.Background(), owner, ComplaintCreateInput{
			Title:       "   ",
			Description: "d",
			Category:    domain.CategoryRoads,
			Location:    "l",
		})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})
}

func TestComplaintTransition(t *testing.T) {
	repo := newFakeComplaintRepo()
	svc, dispatcher := newTestService(repo)
	owner := citizen("user-1")

	var statusEvents []events.Event
	dispatcher.Subscribe(events.EventComplaintStatusChanged, func(_ context.Context, e events.Event) error {
		statusEvents = append(statusEvents, e)
		return nil
	})

	complaint := submitComplaint(t, svc, owner)

	t.Run("citizen cannot transition", func(t *testing.T) {
		_, err := svc.Transition(context.Background(), owner, complaint.ID, domain.ComplaintStatusResolved)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		_, err := svc.Transition(context.Background(), admin(), complaint.ID, domain.ComplaintStatus("ARCHIVED"))
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("admin resolves pending complaint", func(t *testing.T) {
		updated, err := svc.Transition(context.Background(), admin(), complaint.ID, domain.ComplaintStatusResolved)
		require.NoError(t, err)
		assert.Equal(t, domain.ComplaintStatusResolved, updated.Status)
		assert.Equal(t, int64(2), updated.Version)
		require.Len(t, statusEvents, 1)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		updated, err := svc.Transition(context.Background(), admin(), complaint.ID, domain.ComplaintStatusResolved)
		require.NoError(t, err)
		assert.Equal(t, domain.ComplaintStatusResolved, updated.Status)
		assert.Equal(t, int64(2), updated.Version)
		assert.Len(t, statusEvents, 1)
	})

	t.Run("terminal status rejects further edges", func(t *testing.T) {
		_, err := svc.Transition(context.Background(), admin(), complaint.ID, domain.ComplaintStatusInProgress)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	})

	t.Run("unknown complaint", func(t *testing.T) {
		_, err := svc.Transition(context.Background(), admin(), uuid.NewString(), domain.ComplaintStatusResolved)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}

func TestComplaintTransitionRetriesConflictOnce(t *testing.T) {
	repo := newFakeComplaintRepo()
	svc, _ := newTestService(repo)
	complaint := submitComplaint(t, svc, citizen("user-1"))

	t.Run("single conflict recovers", func(t *testing.T) {
		repo.conflictsLeft = 1
		updated, err := svc.Transition(context.Background(), admin(), complaint.ID, domain.ComplaintStatusInProgress)
		require.NoError(t, err)
		assert.Equal(t, domain.ComplaintStatusInProgress, updated.Status)
	})

	t.Run("persistent conflict surfaces", func(t *testing.T) {
		repo.conflictsLeft = 2
		_, err := svc.Transition(context.Background(), admin(), complaint.ID, domain.ComplaintStatusResolved)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	})
}

func TestAttachResponse(t *testing.T) {
	repo := newFakeComplaintRepo()
	svc, _ := newTestService(repo)
	owner := citizen("user-1")
	complaint := submitComplaint(t, svc, owner)

	t.Run("citizen cannot respond", func(t *testing.T) {
		_, err := svc.AttachResponse(context.Background(), owner, complaint.ID, "noted")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("empty text rejected", func(t *testing.T) {
		_, err := svc.AttachResponse(context.Background(), admin(), complaint.ID, "   ")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})

	t.Run("response starts unread", func(t *testing.T) {
		updated, err := svc.AttachResponse(context.Background(), admin(), complaint.ID, "crew dispatched")
		require.NoError(t, err)
		assert.True(t, updated.HasResponse())
		assert.False(t, updated.ResponseRead)
	})

	t.Run("new response resets the read flag", func(t *testing.T) {
		require.NoError(t, svc.MarkResponseRead(context.Background(), owner, complaint.ID))

		updated, err := svc.AttachResponse(context.Background(), admin(), complaint.ID, "work complete")
		require.NoError(t, err)
		assert.False(t, updated.ResponseRead)
	})
}

func TestMarkResponseRead(t *testing.T) {
	repo := newFakeComplaintRepo()
	svc, _ := newTestService(repo)
	owner := citizen("user-1")
	complaint := submitComplaint(t, svc, owner)

	t.Run("no response yet", func(t *testing.T) {
		err := svc.MarkResponseRead(context.Background(), owner, complaint.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
	})

	_, err := svc.AttachResponse(context.Background(), admin(), complaint.ID, "crew dispatched")
	require.NoError(t, err)

	t.Run("non-owner is rejected and flag unchanged", func(t *testing.T) {
		err := svc.MarkResponseRead(context.Background(), citizen("user-2"), complaint.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

		stored, err := repo.GetByID(context.Background(), complaint.ID)
		require.NoError(t, err)
		assert.False(t, stored.ResponseRead)
	})

	t.Run("owner acknowledges", func(t *testing.T) {
		before, err := repo.GetByID(context.Background(), complaint.ID)
		require.NoError(t, err)

		require.NoError(t, svc.MarkResponseRead(context.Background(), owner, complaint.ID))

		stored, err := repo.GetByID(context.Background(), complaint.ID)
		require.NoError(t, err)
		assert.True(t, stored.ResponseRead)
		// acknowledgement is a mutation like any other
		assert.Equal(t, before.Version+1, stored.Version)
	})

	t.Run("acknowledging twice is a no-op", func(t *testing.T) {
		assert.NoError(t, svc.MarkResponseRead(context.Background(), owner, complaint.ID))
	})
}

func TestEditContent(t *testing.T) {
	repo := newFakeComplaintRepo()
	svc, _ := newTestService(repo)
	owner := citizen("user-1")
	complaint := submitComplaint(t, svc, owner)

	newTitle := "Streetlight still broken"

	t.Run("non-owner rejected", func(t *testing.T) {
		_, err := svc.EditContent(context.Background(), citizen("user-2"), complaint.ID, ComplaintContentPatch{Title: &newTitle})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("owner edits while pending", func(t *testing.T) {
		updated, err := svc.EditContent(context.Background(), owner, complaint.ID, ComplaintContentPatch{Title: &newTitle})
		require.NoError(t, err)
		assert.Equal(t, newTitle, updated.Title)
		assert.Equal(t, "The light on the corner has been out for a week.", updated.Description)
	})

	t.Run("invalid patch leaves record unchanged", func(t *testing.T) {
		empty := ""
		_, err := svc.EditContent(context.Background(), owner, complaint.ID, ComplaintContentPatch{Title: &empty})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

		stored, err := repo.GetByID(context.Background(), complaint.ID)
		require.NoError(t, err)
		assert.Equal(t, newTitle, stored.Title)
	})

	t.Run("edit blocked once in progress", func(t *testing.T) {
		_, err := svc.Transition(context.Background(), admin(), complaint.ID, domain.ComplaintStatusInProgress)
		require.NoError(t, err)

		_, err = svc.EditContent(context.Background(), owner, complaint.ID, ComplaintContentPatch{Title: &newTitle})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
	})
}

func TestComplaintDelete(t *testing.T) {
	repo := newFakeComplaintRepo()
	svc, dispatcher := newTestService(repo)
	owner := citizen("user-1")

	var deleted []events.Event
	dispatcher.Subscribe(events.EventComplaintDeleted, func(_ context.Context, e events.Event) error {
		deleted = append(deleted, e)
		return nil
	})

	t.Run("non-owner rejected", func(t *testing.T) {
		complaint := submitComplaint(t, svc, owner)
		err := svc.Delete(context.Background(), citizen("user-2"), complaint.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("owner deletes pending complaint", func(t *testing.T) {
		complaint := submitComplaint(t, svc, owner)
		require.NoError(t, svc.Delete(context.Background(), owner, complaint.ID))

		_, err := repo.GetByID(context.Background(), complaint.ID)
		assert.ErrorIs(t, err, pgx.ErrNoRows)
		require.Len(t, deleted, 1)
	})

	t.Run("deleting again reports not found", func(t *testing.T) {
		complaint := submitComplaint(t, svc, owner)
		require.NoError(t, svc.Delete(context.Background(), owner, complaint.ID))

		err := svc.Delete(context.Background(), owner, complaint.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	})

	t.Run("resolved complaint cannot be deleted", func(t *testing.T) {
		complaint := submitComplaint(t, svc, owner)
		_, err := svc.Transition(context.Background(), admin(), complaint.ID, domain.ComplaintStatusResolved)
		require.NoError(t, err)

		err = svc.Delete(context.Background(), owner, complaint.ID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
	})
}

func TestGetForActor(t *testing.T) {
	repo := newFakeComplaintRepo()
	svc, _ := newTestService(repo)
	owner := citizen("user-1")
	complaint := submitComplaint(t, svc, owner)

	got, err := svc.GetForActor(context.Background(), owner, complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, complaint.ID, got.ID)

	got, err = svc.GetForActor(context.Background(), admin(), complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, complaint.ID, got.ID)

	_, err = svc.GetForActor(context.Background(), citizen("user-2"), complaint.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestTrackByReference(t *testing.T) {
	repo := newFakeComplaintRepo()
	svc, _ := newTestService(repo)
	owner := citizen("user-1")
	complaint := submitComplaint(t, svc, owner)

	t.Run("owner tracks by reference", func(t *testing.T) {
		got, err := svc.TrackByReference(context.Background(), owner, complaint.Reference)
		require.NoError(t, err)
		assert.Equal(t, complaint.ID, got.ID)
	})

	t.Run("reference lookup is case-insensitive", func(t *testing.T) {
		got, err := svc.TrackByReference(context.Background(), owner, strings.ToLower(complaint.Reference))
		require.NoError(t, err)
		assert.Equal(t, complaint.ID, got.ID)
	})

	t.Run("admin may track any complaint", func(t *testing.T) {
		got, err := svc.TrackByReference(context.Background(), admin(), complaint.Reference)
		require.NoError(t, err)
		assert.Equal(t, complaint.ID, got.ID)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		_, err := svc.TrackByReference(context.Background(), citizen("user-2"), complaint.Reference)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("unknown reference", func(t *testing.T) {
		_, err := svc.TrackByReference(context.Background(), owner, "CMP-FFFFFFFF")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	})

	t.Run("empty reference", func(t *testing.T) {
		_, err := svc.TrackByReference(context.Background(), owner, "  ")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	})
}

func TestListAllRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(newFakeComplaintRepo())

	_, err := svc.ListAll(context.Background(), citizen("user-1"), ComplaintListFilter{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}
