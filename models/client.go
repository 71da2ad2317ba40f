package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/utils"
	"gorm.io/gorm"
)

// Client is a buyer registered for sales
// Table: clients
// CPF and phone are stored digits-only
type Client struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name  string    `gorm:"size:255;not null;index:idx_clients_name" json:"name"`
	CPF   string    `gorm:"column:cpf;size:11;not null;uniqueIndex:uk_clients_cpf" json:"cpf"`
	Phone string    `gorm:"size:20;not null" json:"phone"`
	Email *string   `gorm:"size:255" json:"email,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	return nil
}

type ClientFilter struct {
	Search *string `json:"search,omitempty"`
	CPF    *string `json:"cpf,omitempty"`
}

// Sale is the external sales ledger entry; the CRM only counts sales per client
// Table: sales
type Sale struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID uuid.UUID `gorm:"type:uuid;not null;index:idx_sales_client_id" json:"client_id"`
}

func (Sale) TableName() string { return "sales" }
