package dto

import "time"

// CreateClientRequest accepts masked or unmasked CPF and phone
type CreateClientRequest struct {
	Name  string  `json:"name" validate:"required,min=2,max=255"`
	CPF   string  `json:"cpf" validate:"required,max=20" example:"123.456.789-01"`
	Phone string  `json:"phone" validate:"required,max=30" example:"(11) 98765-4321"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
}

type UpdateClientRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	CPF   *string `json:"cpf,omitempty" validate:"omitempty,max=20"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
}

type ListClientsRequest struct {
	Search string `query:"search"`
}

// ClientResponse formats CPF and phone for display
type ClientResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CPF       string    `json:"cpf" example:"123.456.789-01"`
	Phone     string    `json:"phone" example:"(11) 98765-4321"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
