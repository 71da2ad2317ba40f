package dto

import "time"

type CreateTeamRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	LeaderID string `json:"leaderId" validate:"required,uuid"`
}

type UpdateTeamRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	LeaderID *string `json:"leaderId,omitempty" validate:"omitempty,uuid"`
}

type TeamResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	LeaderID   string    `json:"leaderId"`
	LeaderName *string   `json:"leaderName,omitempty"`
	Members    int64     `json:"members"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
