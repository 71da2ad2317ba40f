package dto

import "time"

// CreateCallModeSessionRequest records a finished call-mode session of the caller
type CreateCallModeSessionRequest struct {
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required"`
	LeadsViewed []string  `json:"leadsViewed" validate:"omitempty,dive,uuid"`
}

type CallModeSessionResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationSeconds int64     `json:"durationSeconds"`
	LeadsViewed     []string  `json:"leadsViewed"`
	CreatedAt       time.Time `json:"createdAt"`
}
