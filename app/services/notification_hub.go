package services

import (
	"context"
	"sync"

	"github.com/imobflow/crm-api/app/dto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	notificationsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_notifications_published_total",
			Help: "Events fanned out by the notification hub",
		},
		[]string{"type"},
	)
	notificationsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_notifications_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		},
	)
	notificationSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crm_notification_subscribers",
			Help: "Currently connected event stream subscribers",
		},
	)
)

// NotificationHub fans events out to every connected subscriber.
// Delivery is best effort: a subscriber whose buffer is full misses the event.
type NotificationHub interface {
	Subscribe(buffer int) *Subscription
	Publish(ctx context.Context, event dto.Event)
	Close()
}

// Subscription is one consumer of the hub
type Subscription struct {
	id     uint64
	events chan dto.Event
	hub    *NotificationHubImpl
	once   sync.Once
}

// Events is closed when the subscription is cancelled or the hub shuts down
func (s *Subscription) Events() <-chan dto.Event {
	return s.events
}

// Cancel detaches the subscription; safe to call more than once
func (s *Subscription) Cancel() {
	s.hub.remove(s)
}

// NotificationHubImpl implements NotificationHub
type NotificationHubImpl struct {
	mu            sync.RWMutex
	subscribers   map[uint64]*Subscription
	nextID        uint64
	closed        bool
	defaultBuffer int
	logger        *zap.Logger
}

func NewNotificationHub(defaultBuffer int, logger *zap.Logger) *NotificationHubImpl {
	if defaultBuffer <= 0 {
		defaultBuffer = 16
	}
	return &NotificationHubImpl{
		subscribers:   make(map[uint64]*Subscription),
		defaultBuffer: defaultBuffer,
		logger:        logger,
	}
}

// Subscribe registers a new consumer. A non-positive buffer uses the hub default.
// Subscribing to a closed hub returns an already closed subscription.
func (h *NotificationHubImpl) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = h.defaultBuffer
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{events: make(chan dto.Event, buffer), hub: h}
	if h.closed {
		sub.once.Do(func() { close(sub.events) })
		return sub
	}

	h.nextID++
	sub.id = h.nextID
	h.subscribers[sub.id] = sub
	notificationSubscribers.Inc()
	return sub
}

// Publish never blocks on a slow subscriber
func (h *NotificationHubImpl) Publish(_ context.Context, event dto.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	notificationsPublishedTotal.WithLabelValues(string(event.Type)).Inc()
	for _, sub := range h.subscribers {
		select {
		case sub.events <- event:
		default:
			notificationsDroppedTotal.Inc()
			h.logger.Debug("notification dropped",
				zap.Uint64("subscriber", sub.id),
				zap.String("type", string(event.Type)),
			)
		}
	}
}

// Close ends every subscription. Later publishes are ignored.
func (h *NotificationHubImpl) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subscribers {
		delete(h.subscribers, id)
		notificationSubscribers.Dec()
		sub.once.Do(func() { close(sub.events) })
	}
}

// Len reports the number of live subscriptions
func (h *NotificationHubImpl) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *NotificationHubImpl) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub.id]; ok {
		delete(h.subscribers, sub.id)
		notificationSubscribers.Dec()
	}
	sub.once.Do(func() { close(sub.events) })
}
