package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CallModeSession records one work interval in which a user went through leads
// Table: call_mode_sessions
// Rows are history: written once, never updated
type CallModeSession struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_call_mode_sessions_user_id" json:"user_id"`
	StartTime   time.Time      `gorm:"not null" json:"start_time"`
	EndTime     time.Time      `gorm:"not null" json:"end_time"`
	LeadsViewed pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"leads_viewed"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CallModeSession) TableName() string { return "call_mode_sessions" }

func (s *CallModeSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.LeadsViewed == nil {
		s.LeadsViewed = pq.StringArray{}
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	return nil
}

// Duration of the session
func (s *CallModeSession) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

type CallModeSessionFilter struct {
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	StartedAfter  *time.Time `json:"started_after,omitempty"`
	StartedBefore *time.Time `json:"started_before,omitempty"`
}
