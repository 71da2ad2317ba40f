package dto

import "time"

// EventType names a real-time notification
type EventType string

const (
	EventNewLead     EventType = "NEW_LEAD"
	EventNewBusiness EventType = "NEW_BUSINESS"
	EventLeadStale   EventType = "LEAD_STALE"
)

// Event is pushed to every connected client. BrokerID lets clients drop events they do not own.
type Event struct {
	Type       EventType `json:"type"`
	Data       any       `json:"data"`
	BrokerID   string    `json:"brokerId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
