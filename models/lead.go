package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/utils"
	"gorm.io/gorm"
)

type LeadSource string

const (
	LeadSourceIndication  LeadSource = "indication"
	LeadSourceOrganic     LeadSource = "organic"
	LeadSourceWebsite     LeadSource = "website"
	LeadSourcePaidTraffic LeadSource = "paidTraffic"
	LeadSourceOther       LeadSource = "other"
)

func (s LeadSource) Valid() bool {
	switch s {
	case LeadSourceIndication, LeadSourceOrganic, LeadSourceWebsite, LeadSourcePaidTraffic, LeadSourceOther:
		return true
	}
	return false
}

// Lead is a prospective customer owned by a broker
// Table: leads
// Phone is stored digits-only; BrokerID must reference a broker or team leader
type Lead struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string     `gorm:"size:255;not null;index:idx_leads_name" json:"name"`
	Phone       string     `gorm:"size:20;not null;index:idx_leads_phone" json:"phone"`
	Source      LeadSource `gorm:"type:varchar(20);not null" json:"source"`
	Status      LeadStatus `gorm:"type:varchar(20);not null;default:'new'" json:"status"`
	Notes       *string    `gorm:"type:text" json:"notes,omitempty"`
	BrokerID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_leads_broker_id" json:"broker_id"`
	LastContact *time.Time `json:"last_contact,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Lead) TableName() string { return "leads" }

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = LeadStatusNew
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = utils.UTCNow()
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = l.CreatedAt
	}
	return nil
}

// LeadView is a lead with its broker's display name
type LeadView struct {
	Lead
	BrokerName *string `gorm:"column:broker_name" json:"broker_name,omitempty"`
}

// LeadFilter represents filter criteria for lead queries
type LeadFilter struct {
	Status   *LeadStatus `json:"status,omitempty"`
	Source   *LeadSource `json:"source,omitempty"`
	BrokerID *uuid.UUID  `json:"broker_id,omitempty"`
	Phone    *string     `json:"phone,omitempty"`
	Search   *string     `json:"search,omitempty"`
	// ContactedBefore matches leads whose last contact (or creation, when never contacted) is older
	ContactedBefore *time.Time   `json:"contacted_before,omitempty"`
	StatusIn        []LeadStatus `json:"status_in,omitempty"`
}
