// Package scheduler runs periodic background jobs
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var staleLeadsFound = promauto.NewCounter(prometheus.CounterOpts{
	Name: "crm_stale_leads_notified_total",
	Help: "Leads reported as stale by the follow-up scheduler",
})

// LeadFinder is the slice of the lead repository the scheduler needs
type LeadFinder interface {
	ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error)
}

// Publisher delivers events to connected clients
type Publisher interface {
	Publish(ctx context.Context, event dto.Event)
}

// StaleLead is the payload of a LEAD_STALE event
type StaleLead struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Status      string     `json:"status"`
	LastContact *time.Time `json:"lastContact,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// StaleLeadScheduler periodically looks for open leads nobody contacted for a while
// and notifies their brokers. A lead is reported once per contact timestamp.
type StaleLeadScheduler struct {
	leads     LeadFinder
	publisher Publisher
	after     time.Duration
	interval  time.Duration
	batchSize int
	now       func() time.Time
	logger    *zap.Logger

	notified map[uuid.UUID]time.Time
}

func NewStaleLeadScheduler(leads LeadFinder, publisher Publisher, after, interval time.Duration, logger *zap.Logger) *StaleLeadScheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if after <= 0 {
		after = 72 * time.Hour
	}
	return &StaleLeadScheduler{
		leads:     leads,
		publisher: publisher,
		after:     after,
		interval:  interval,
		batchSize: 500,
		now:       utils.UTCNow,
		logger:    logger,
		notified:  make(map[uuid.UUID]time.Time),
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *StaleLeadScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (s *StaleLeadScheduler) runOnce(ctx context.Context) {
	cutoff := s.now().Add(-s.after)
	filter := models.LeadFilter{
		StatusIn:        models.OpenLeadStatuses,
		ContactedBefore: &cutoff,
	}

	seen := make(map[uuid.UUID]struct{})
	sent := 0
	for offset := 0; ; offset += s.batchSize {
		if ctx.Err() != nil {
			return
		}
		batch, err := s.leads.ByFilter(ctx, filter, "leads.created_at ASC", s.batchSize, offset)
		if err != nil {
			s.logger.Error("stale lead scan failed", zap.Error(err))
			return
		}

		for _, lead := range batch {
			seen[lead.ID] = struct{}{}
			stamp := lastTouch(lead)
			if prev, ok := s.notified[lead.ID]; ok && prev.Equal(stamp) {
				continue
			}
			s.notified[lead.ID] = stamp
			s.publisher.Publish(ctx, dto.Event{
				Type:       dto.EventLeadStale,
				BrokerID:   lead.BrokerID.String(),
				OccurredAt: s.now(),
				Data: StaleLead{
					ID:          lead.ID.String(),
					Name:        lead.Name,
					Phone:       utils.FormatPhone(lead.Phone),
					Status:      string(lead.Status),
					LastContact: lead.LastContact,
					CreatedAt:   lead.CreatedAt,
				},
			})
			sent++
		}

		if len(batch) < s.batchSize {
			break
		}
	}

	// leads that were contacted or closed leave the set and may be reported again later
	for id := range s.notified {
		if _, ok := seen[id]; !ok {
			delete(s.notified, id)
		}
	}

	if sent > 0 {
		staleLeadsFound.Add(float64(sent))
		s.logger.Info("stale leads notified", zap.Int("count", sent), zap.Time("cutoff", cutoff))
	}
}

func lastTouch(lead *models.Lead) time.Time {
	if lead.LastContact != nil {
		return *lead.LastContact
	}
	return lead.CreatedAt
}
