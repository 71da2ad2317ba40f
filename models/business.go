package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/utils"
	"gorm.io/gorm"
)

// Business is an opportunity linking a lead to one development
// Table: business
// (lead_id, development_id) is unique; visibility follows the lead's broker
type Business struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	LeadID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_business_lead_development,priority:1" json:"lead_id"`
	DevelopmentID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_business_lead_development,priority:2" json:"development_id"`
	Source        LeadSource     `gorm:"type:varchar(20);not null" json:"source"`
	Status        BusinessStatus `gorm:"type:varchar(20);not null;default:'new'" json:"status"`
	ScheduledAt   *time.Time     `json:"scheduled_at,omitempty"`
	RecallAt      *time.Time     `json:"recall_at,omitempty"`
	Notes         *string        `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_business_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Lead *Lead `gorm:"foreignKey:LeadID;references:ID;constraint:OnDelete:CASCADE" json:"lead,omitempty"`
}

func (Business) TableName() string { return "business" }

func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = BusinessStatusNew
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = utils.UTCNow()
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}
	return nil
}

// BusinessView carries the joined display fields returned by reads
type BusinessView struct {
	Business
	LeadName        *string    `gorm:"column:lead_name" json:"lead_name,omitempty"`
	LeadPhone       *string    `gorm:"column:lead_phone" json:"lead_phone,omitempty"`
	BrokerID        *uuid.UUID `gorm:"column:broker_id" json:"broker_id,omitempty"`
	BrokerName      *string    `gorm:"column:broker_name" json:"broker_name,omitempty"`
	DevelopmentName *string    `gorm:"column:development_name" json:"development_name,omitempty"`
}

type BusinessFilter struct {
	Status        *BusinessStatus `json:"status,omitempty"`
	LeadID        *uuid.UUID      `json:"lead_id,omitempty"`
	DevelopmentID *uuid.UUID      `json:"development_id,omitempty"`
}
