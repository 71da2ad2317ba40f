package repository

import (
	"github.com/imobflow/crm-api/models"
	"gorm.io/gorm"
)

// CallModeSessionRepositoryImpl implements CallModeSessionRepository interface
type CallModeSessionRepositoryImpl struct {
	*BaseRepository[models.CallModeSession, models.CallModeSessionFilter]
}

// NewCallModeSessionRepository creates a new call-mode session repository
func NewCallModeSessionRepository(db *gorm.DB) CallModeSessionRepository {
	r := &CallModeSessionRepositoryImpl{}
	r.BaseRepository = NewBaseRepository[models.CallModeSession](db, r.applyFilter, "created_at DESC")
	return r
}

func (r *CallModeSessionRepositoryImpl) applyFilter(query *gorm.DB, filter models.CallModeSessionFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.StartedAfter != nil {
		query = query.Where("start_time >= ?", *filter.StartedAfter)
	}
	if filter.StartedBefore != nil {
		query = query.Where("start_time < ?", *filter.StartedBefore)
	}
	return query
}
