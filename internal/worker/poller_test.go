package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
)

type stubComplaintLister struct {
	mu         sync.Mutex
	complaints []domain.Complaint
	sweeps     int
}

func (s *stubComplaintLister) ListWithFilter(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeps++
	var out []domain.Complaint
	for _, c := range s.complaints {
		if filter.UpdatedFrom != nil && c.UpdatedAt.Before(*filter.UpdatedFrom) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *stubComplaintLister) sweepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweeps
}

func (s *stubComplaintLister) Create(context.Context, *domain.Complaint) error { return nil }
func (s *stubComplaintLister) GetByID(context.Context, string) (*domain.Complaint, error) {
	return nil, nil
}
func (s *stubComplaintLister) GetByReference(context.Context, string) (*domain.Complaint, error) {
	return nil, nil
}
func (s *stubComplaintLister) UpdateContent(context.Context, *domain.Complaint) error { return nil }
func (s *stubComplaintLister) UpdateStatus(context.Context, string, domain.ComplaintStatus, int64) (*domain.Complaint, error) {
	return nil, nil
}
func (s *stubComplaintLister) SetResponse(context.Context, string, string, int64) (*domain.Complaint, error) {
	return nil, nil
}
func (s *stubComplaintLister) MarkResponseRead(context.Context, string) error { return nil }
func (s *stubComplaintLister) Delete(context.Context, string) error           { return nil }
func (s *stubComplaintLister) ListByOwner(context.Context, string, int, int) ([]domain.Complaint, error) {
	return nil, nil
}

func TestPollerPublishesUpdates(t *testing.T) {
	repo := &stubComplaintLister{complaints: []domain.Complaint{
		{ID: "c-1", OwnerID: "u-1", Status: domain.ComplaintStatusInProgress, UpdatedAt: time.Now().Add(time.Minute)},
	}}
	dispatcher := events.NewInMemoryDispatcher()

	var mu sync.Mutex
	var got []events.Event
	dispatcher.Subscribe(events.EventComplaintUpdated, func(_ context.Context, e events.Event) error {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		return nil
	})

	poller := NewPoller(repo, dispatcher, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "c-1", got[0].ComplaintID)
	payload, ok := got[0].Payload.(events.ComplaintUpdatedPayload)
	require.True(t, ok)
	assert.Equal(t, "u-1", payload.OwnerID)
	assert.Equal(t, domain.ComplaintStatusInProgress, payload.Status)
}

func TestPollerStopsOnCancel(t *testing.T) {
	repo := &stubComplaintLister{}
	poller := NewPoller(repo, events.NewInMemoryDispatcher(), 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return repo.sweepCount() > 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}

func TestNewPollerDefaultInterval(t *testing.T) {
	poller := NewPoller(&stubComplaintLister{}, events.NewInMemoryDispatcher(), 0, zap.NewNop())
	assert.Equal(t, 30*time.Second, poller.interval)
}
