package dto

import "time"

// CreateUserRequest is used by admins to register an operator
type CreateUserRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=255"`
	Email    string  `json:"email" validate:"required,email,max=255" example:"corretor@imobflow.com"`
	Password string  `json:"password" validate:"required,min=6,max=100"`
	Role     string  `json:"role" validate:"required,oneof=admin teamLeader broker"`
	TeamID   *string `json:"teamId,omitempty" validate:"omitempty,uuid"`
}

// UpdateUserRequest carries the fields to change. An empty TeamID removes the user from its team.
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6,max=100"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=admin teamLeader broker"`
	TeamID   *string `json:"teamId,omitempty" validate:"omitempty,uuid"`
	Active   *bool   `json:"active,omitempty"`
}

// ListUsersRequest holds the query string of the user listing
type ListUsersRequest struct {
	Role   string `query:"role" validate:"omitempty,oneof=admin teamLeader broker"`
	TeamID string `query:"teamId" validate:"omitempty,uuid"`
	Search string `query:"search"`
}

// UserResponse never carries the password hash
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	TeamID    *string   `json:"teamId,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
