package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/utils"
	"gorm.io/gorm"
)

// Team groups brokers under one team leader
// Table: teams
// The leader must hold the teamLeader role; a database trigger backs this up
type Team struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name     string    `gorm:"size:255;not null" json:"name"`
	LeaderID uuid.UUID `gorm:"type:uuid;not null;index:idx_teams_leader_id" json:"leader_id"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Leader *User `gorm:"foreignKey:LeaderID;references:ID;constraint:OnDelete:RESTRICT" json:"leader,omitempty"`
}

func (Team) TableName() string { return "teams" }

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	return nil
}

type TeamFilter struct {
	Name     *string    `json:"name,omitempty"`
	LeaderID *uuid.UUID `json:"leader_id,omitempty"`
}
