package dto

import "time"

// CreateBusinessRequest links a visible lead to a development
type CreateBusinessRequest struct {
	LeadID        string     `json:"leadId" validate:"required,uuid"`
	DevelopmentID string     `json:"developmentId" validate:"required,uuid"`
	Source        *string    `json:"source,omitempty" validate:"omitempty,oneof=indication organic website paidTraffic other"`
	Status        *string    `json:"status,omitempty" validate:"omitempty"`
	ScheduledAt   *time.Time `json:"scheduledAt,omitempty"`
	RecallAt      *time.Time `json:"recallAt,omitempty"`
	Notes         *string    `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// UpdateBusinessRequest carries the fields to change; nil means unchanged
type UpdateBusinessRequest struct {
	DevelopmentID *string    `json:"developmentId,omitempty" validate:"omitempty,uuid"`
	Source        *string    `json:"source,omitempty" validate:"omitempty,oneof=indication organic website paidTraffic other"`
	Status        *string    `json:"status,omitempty" validate:"omitempty"`
	ScheduledAt   *time.Time `json:"scheduledAt,omitempty"`
	RecallAt      *time.Time `json:"recallAt,omitempty"`
	Notes         *string    `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// ListBusinessRequest holds the query string of the business listing
type ListBusinessRequest struct {
	Status        string `query:"status"`
	LeadID        string `query:"leadId" validate:"omitempty,uuid"`
	DevelopmentID string `query:"developmentId" validate:"omitempty,uuid"`
	Page          int    `query:"page" validate:"omitempty,min=1"`
	PageSize      int    `query:"pageSize" validate:"omitempty,min=1,max=500"`
}

// BusinessResponse is a business opportunity with the joined display fields
type BusinessResponse struct {
	ID              string     `json:"id"`
	LeadID          string     `json:"leadId"`
	DevelopmentID   string     `json:"developmentId"`
	Source          string     `json:"source"`
	Status          string     `json:"status"`
	ScheduledAt     *time.Time `json:"scheduledAt,omitempty"`
	RecallAt        *time.Time `json:"recallAt,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	LeadName        *string    `json:"leadName,omitempty"`
	LeadPhone       *string    `json:"leadPhone,omitempty"`
	BrokerID        *string    `json:"brokerId,omitempty"`
	BrokerName      *string    `json:"brokerName,omitempty"`
	DevelopmentName *string    `json:"developmentName,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}
