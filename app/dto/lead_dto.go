package dto

import "time"

// CreateLeadRequest registers a lead and one business per selected development.
// BrokerID is honoured only for admins; brokers and team leaders always own what they create.
type CreateLeadRequest struct {
	Name         string   `json:"name" validate:"required,min=2,max=255" example:"Maria Souza"`
	Phone        string   `json:"phone" validate:"required,max=30" example:"(11) 98765-4321"`
	Source       string   `json:"source" validate:"required,oneof=indication organic website paidTraffic other" example:"website"`
	Notes        *string  `json:"notes,omitempty" validate:"omitempty,max=5000"`
	BrokerID     *string  `json:"brokerId,omitempty" validate:"omitempty,uuid"`
	Developments []string `json:"developments" validate:"omitempty,dive,uuid"`
}

// UpdateLeadRequest carries the fields to change; nil means unchanged
type UpdateLeadRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Source   *string `json:"source,omitempty" validate:"omitempty,oneof=indication organic website paidTraffic other"`
	Status   *string `json:"status,omitempty" validate:"omitempty"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
	BrokerID *string `json:"brokerId,omitempty" validate:"omitempty,uuid"`
}

// UpdateStatusRequest is shared by lead and business status endpoints
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required" example:"call"`
}

// ListLeadsRequest holds the query string of the lead listing and export
type ListLeadsRequest struct {
	Status   string `query:"status"`
	Source   string `query:"source"`
	Search   string `query:"search"`
	BrokerID string `query:"brokerId" validate:"omitempty,uuid"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"pageSize" validate:"omitempty,min=1,max=500"`
}

// LeadResponse is a lead as returned by the API; Phone is formatted for display
type LeadResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone" example:"(11) 98765-4321"`
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	Notes       *string    `json:"notes,omitempty"`
	BrokerID    string     `json:"brokerId"`
	BrokerName  *string    `json:"brokerName,omitempty"`
	LastContact *time.Time `json:"lastContact,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateLeadResponse reports the lead the businesses were attached to.
// ExistingLead is true when the phone already belonged to a lead; Lead is then
// omitted if that lead is outside the caller's scope.
type CreateLeadResponse struct {
	Lead         *LeadResponse      `json:"lead,omitempty"`
	Businesses   []BusinessResponse `json:"businesses"`
	ExistingLead bool               `json:"existingLead"`
}
