package businessflow

import (
	"context"

	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/utils"
)

// EventPublisher delivers real-time notifications. Delivery is best-effort:
// implementations must not block the caller and may drop events.
type EventPublisher interface {
	Publish(ctx context.Context, event dto.Event)
}

// NoopPublisher discards every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, dto.Event) {}

func newEvent(eventType dto.EventType, brokerID string, data any) dto.Event {
	return dto.Event{
		Type:       eventType,
		Data:       data,
		BrokerID:   brokerID,
		OccurredAt: utils.UTCNow(),
	}
}
