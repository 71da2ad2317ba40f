package scheduler

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLeadFinder struct {
	leads []*models.Lead
	err   error
	calls int
}

func (f *fakeLeadFinder) ByFilter(_ context.Context, filter models.LeadFilter, _ string, limit, offset int) ([]*models.Lead, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var matched []*models.Lead
	for _, l := range f.leads {
		if len(filter.StatusIn) > 0 && !slices.Contains(filter.StatusIn, l.Status) {
			continue
		}
		if filter.ContactedBefore != nil && !lastTouch(l).Before(*filter.ContactedBefore) {
			continue
		}
		matched = append(matched, l)
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event dto.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) snapshot() []dto.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

var schedulerNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestScheduler(finder LeadFinder, pub Publisher) *StaleLeadScheduler {
	s := NewStaleLeadScheduler(finder, pub, 72*time.Hour, time.Minute, zap.NewNop())
	s.now = func() time.Time { return schedulerNow }
	return s
}

func lead(status models.LeadStatus, created time.Time, lastContact *time.Time) *models.Lead {
	return &models.Lead{
		ID:          uuid.New(),
		Name:        "Marina Costa",
		Phone:       "11988887777",
		Status:      status,
		BrokerID:    uuid.New(),
		LastContact: lastContact,
		CreatedAt:   created,
	}
}

func TestRunOnce_PublishesStaleOpenLeads(t *testing.T) {
	old := schedulerNow.Add(-100 * time.Hour)
	recent := schedulerNow.Add(-2 * time.Hour)

	stale := lead(models.LeadStatusNew, old, nil)
	contacted := lead(models.LeadStatusCall, old, &recent)
	closed := lead(models.LeadStatusLost, old, nil)
	staleContact := lead(models.LeadStatusScheduled, old, &old)

	finder := &fakeLeadFinder{leads: []*models.Lead{stale, contacted, closed, staleContact}}
	pub := &recordingPublisher{}
	s := newTestScheduler(finder, pub)

	s.runOnce(context.Background())

	events := pub.snapshot()
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, dto.EventLeadStale, e.Type)
		assert.Equal(t, schedulerNow, e.OccurredAt)
	}
	assert.Equal(t, stale.BrokerID.String(), events[0].BrokerID)
	payload, ok := events[0].Data.(StaleLead)
	require.True(t, ok)
	assert.Equal(t, stale.ID.String(), payload.ID)
	assert.Equal(t, "(11) 98888-7777", payload.Phone)
	assert.Equal(t, "new", payload.Status)
	assert.Equal(t, staleContact.ID.String(), events[1].Data.(StaleLead).ID)
}

func TestRunOnce_ReportsEachLeadOncePerContact(t *testing.T) {
	old := schedulerNow.Add(-100 * time.Hour)
	l := lead(models.LeadStatusWhatsapp, old, nil)
	finder := &fakeLeadFinder{leads: []*models.Lead{l}}
	pub := &recordingPublisher{}
	s := newTestScheduler(finder, pub)

	s.runOnce(context.Background())
	s.runOnce(context.Background())
	assert.Len(t, pub.snapshot(), 1)

	// a contact takes it out of the stale set; going stale again reports it again
	touched := schedulerNow.Add(-time.Hour)
	l.LastContact = &touched
	s.runOnce(context.Background())
	assert.Empty(t, s.notified)

	later := schedulerNow.Add(-80 * time.Hour)
	l.LastContact = &later
	s.runOnce(context.Background())
	assert.Len(t, pub.snapshot(), 2)
}

func TestRunOnce_PagesThroughBatches(t *testing.T) {
	old := schedulerNow.Add(-100 * time.Hour)
	finder := &fakeLeadFinder{}
	for range 5 {
		finder.leads = append(finder.leads, lead(models.LeadStatusNew, old, nil))
	}
	pub := &recordingPublisher{}
	s := newTestScheduler(finder, pub)
	s.batchSize = 2

	s.runOnce(context.Background())

	assert.Len(t, pub.snapshot(), 5)
	assert.Equal(t, 3, finder.calls)
}

func TestRunOnce_RepositoryError(t *testing.T) {
	finder := &fakeLeadFinder{err: errors.New("connection refused")}
	pub := &recordingPublisher{}
	s := newTestScheduler(finder, pub)

	s.runOnce(context.Background())

	assert.Empty(t, pub.snapshot())
}

func TestStart_RunsImmediatelyAndStops(t *testing.T) {
	old := schedulerNow.Add(-100 * time.Hour)
	finder := &fakeLeadFinder{leads: []*models.Lead{lead(models.LeadStatusNew, old, nil)}}
	pub := &recordingPublisher{}
	s := newTestScheduler(finder, pub)
	s.interval = time.Hour

	stop := s.Start(context.Background())
	require.Eventually(t, func() bool { return len(pub.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	stop()
}
