package repository

import (
	"github.com/imobflow/crm-api/models"
	"gorm.io/gorm"
)

// TeamRepositoryImpl implements TeamRepository interface
type TeamRepositoryImpl struct {
	*BaseRepository[models.Team, models.TeamFilter]
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *gorm.DB) TeamRepository {
	r := &TeamRepositoryImpl{}
	r.BaseRepository = NewBaseRepository[models.Team](db, r.applyFilter, "name ASC")
	return r
}

func (r *TeamRepositoryImpl) applyFilter(query *gorm.DB, filter models.TeamFilter) *gorm.DB {
	if filter.Name != nil && *filter.Name != "" {
		query = query.Where("teams.name ILIKE ?", "%"+*filter.Name+"%")
	}
	if filter.LeaderID != nil {
		query = query.Where("teams.leader_id = ?", *filter.LeaderID)
	}
	return query
}
