package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/utils"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements UserRepository interface
type UserRepositoryImpl struct {
	*BaseRepository[models.User, models.UserFilter]
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	r := &UserRepositoryImpl{}
	r.BaseRepository = NewBaseRepository[models.User](db, r.applyFilter, "name ASC")
	return r
}

// ByEmail retrieves a user by email, case-insensitively
func (r *UserRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	rows, err := r.ByFilter(ctx, models.UserFilter{Email: &normalized}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ToggleActive flips the active flag in place
func (r *UserRepositoryImpl) ToggleActive(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.UpdateByID(ctx, id, map[string]any{
		"active":     gorm.Expr("NOT active"),
		"updated_at": utils.UTCNow(),
	})
}

// applyFilter applies filter criteria to a GORM query
func (r *UserRepositoryImpl) applyFilter(query *gorm.DB, filter models.UserFilter) *gorm.DB {
	if filter.Role != nil {
		query = query.Where("users.role = ?", *filter.Role)
	}
	if filter.TeamID != nil {
		query = query.Where("users.team_id = ?", *filter.TeamID)
	}
	if filter.Active != nil {
		query = query.Where("users.active = ?", *filter.Active)
	}
	if filter.Email != nil {
		query = query.Where("LOWER(users.email) = ?", strings.ToLower(*filter.Email))
	}
	if filter.Search != nil && *filter.Search != "" {
		like := "%" + *filter.Search + "%"
		query = query.Where("(users.name ILIKE ? OR users.email ILIKE ?)", like, like)
	}
	return query
}
