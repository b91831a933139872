package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
)

// Poller periodically scans for complaints updated since its previous sweep
// and republishes them as update events. It stands in for push delivery:
// fixed interval, cancelled through the context it runs under.
type Poller struct {
	complaints repository.ComplaintRepository
	dispatcher events.Dispatcher
	interval   time.Duration
	logger     *zap.Logger
}

// NewPoller constructs a poller.
func NewPoller(complaints repository.ComplaintRepository, dispatcher events.Dispatcher, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		complaints: complaints,
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger,
	}
}

// Run polls until ctx is cancelled. An in-flight sweep finishes before the
// loop exits; there is no mid-flight abort.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	lastSweep := time.Now()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			since := lastSweep
			lastSweep = time.Now()
			p.sweep(ctx, since)
		}
	}
}

func (p *Poller) sweep(ctx context.Context, since time.Time) {
	filter := repository.ComplaintFilter{
		UpdatedFrom: &since,
		Limit:       200,
	}
	complaints, err := p.complaints.ListWithFilter(ctx, filter)
	if err != nil {
		p.logger.Warn("poll sweep failed", zap.Error(err))
		return
	}
	for i := range complaints {
		c := &complaints[i]
		event := events.Event{
			ID:          uuid.NewString(),
			Type:        events.EventComplaintUpdated,
			ComplaintID: c.ID,
			Timestamp:   time.Now(),
			Payload: events.ComplaintUpdatedPayload{
				OwnerID:      c.OwnerID,
				Status:       c.Status,
				HasResponse:  c.HasResponse(),
				ResponseRead: c.ResponseRead,
			},
		}
		_ = p.dispatcher.Publish(ctx, event)
	}
	if len(complaints) > 0 {
		p.logger.Debug("poll sweep", zap.Int("updated", len(complaints)))
	}
}
