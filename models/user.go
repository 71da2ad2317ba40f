package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/utils"
	"gorm.io/gorm"
)

// User is a CRM operator: admin, team leader or broker
// Table: users
// Email is unique; password_hash never leaves the service
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Email        string     `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         Role       `gorm:"type:varchar(20);not null;index:idx_users_role" json:"role"`
	TeamID       *uuid.UUID `gorm:"type:uuid;index:idx_users_team_id" json:"team_id,omitempty"`
	Active       *bool      `gorm:"not null;default:true" json:"active"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Active == nil {
		u.Active = utils.ToPtr(true)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utils.UTCNow()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	return nil
}

func (u *User) IsActive() bool { return utils.IsTrue(u.Active) }

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	Role   *Role      `json:"role,omitempty"`
	TeamID *uuid.UUID `json:"team_id,omitempty"`
	Active *bool      `json:"active,omitempty"`
	Email  *string    `json:"email,omitempty"`
	Search *string    `json:"search,omitempty"`
}
