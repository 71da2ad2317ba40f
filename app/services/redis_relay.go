package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	relayQueueSize      = 256
	relayPublishTimeout = 2 * time.Second
)

// relayEnvelope is the wire format on the redis channel
type relayEnvelope struct {
	Origin string    `json:"origin"`
	Event  dto.Event `json:"event"`
}

// RedisRelay shares hub events between API instances over a redis pub/sub channel.
// Publish delivers locally and queues the event for redis; Run feeds events from other
// instances into the local hub. The instance id keeps an instance from replaying its own events.
type RedisRelay struct {
	rc         *redis.Client
	hub        NotificationHub
	channel    string
	instanceID string
	outbox     chan string
	logger     *zap.Logger
}

func NewRedisRelay(rc *redis.Client, hub NotificationHub, channel string, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{
		rc:         rc,
		hub:        hub,
		channel:    channel,
		instanceID: uuid.NewString(),
		outbox:     make(chan string, relayQueueSize),
		logger:     logger,
	}
}

func (r *RedisRelay) InstanceID() string {
	return r.instanceID
}

// Publish never blocks the caller on redis. Local subscribers get the event at once;
// the remote copy is queued and dropped when the queue is full.
func (r *RedisRelay) Publish(ctx context.Context, event dto.Event) {
	r.hub.Publish(ctx, event)

	payload, err := r.encode(event)
	if err != nil {
		r.logger.Warn("relay encode failed", zap.Error(err))
		return
	}
	select {
	case r.outbox <- payload:
	default:
		notificationsDroppedTotal.Inc()
		r.logger.Warn("relay queue full, event not forwarded",
			zap.String("channel", r.channel),
			zap.String("type", string(event.Type)))
	}
}

// forward drains the outbox into redis until ctx is cancelled
func (r *RedisRelay) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-r.outbox:
			pubCtx, cancel := context.WithTimeout(ctx, relayPublishTimeout)
			err := r.rc.Publish(pubCtx, r.channel, payload).Err()
			cancel()
			if err != nil {
				r.logger.Warn("relay publish failed", zap.String("channel", r.channel), zap.Error(err))
			}
		}
	}
}

// Run blocks until ctx is cancelled or the subscription channel closes
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.rc.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.logger.Info("notification relay subscribed", zap.String("channel", r.channel), zap.String("instance", r.instanceID))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, msg.Payload)
		}
	}
}

// Start runs the relay in the background and returns a stop function
func (r *RedisRelay) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.forward(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := r.Run(ctx); err != nil {
			r.logger.Error("notification relay stopped", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func (r *RedisRelay) encode(event dto.Event) (string, error) {
	raw, err := json.Marshal(relayEnvelope{Origin: r.instanceID, Event: event})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// handle republishes a remote event locally; it reports whether the event was delivered
func (r *RedisRelay) handle(ctx context.Context, payload string) bool {
	var envelope relayEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		r.logger.Warn("relay dropped malformed message", zap.Error(err))
		return false
	}
	if envelope.Origin == r.instanceID {
		return false
	}
	r.hub.Publish(ctx, envelope.Event)
	return true
}
