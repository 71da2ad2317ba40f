package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/utils"
	"gorm.io/gorm"
)

const businessViewColumns = "business.*, " +
	"leads.name AS lead_name, leads.phone AS lead_phone, leads.broker_id AS broker_id, " +
	"users.name AS broker_name, developments.name AS development_name"

// BusinessRepositoryImpl implements BusinessRepository interface
type BusinessRepositoryImpl struct {
	*BaseRepository[models.Business, models.BusinessFilter]
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	r := &BusinessRepositoryImpl{}
	r.BaseRepository = NewBaseRepository[models.Business](db, r.applyFilter, "business.created_at DESC")
	return r
}

func (r *BusinessRepositoryImpl) viewQuery(ctx context.Context, actor models.Actor) *gorm.DB {
	return r.getDB(ctx).
		Table("business").
		Select(businessViewColumns).
		Joins("LEFT JOIN leads ON leads.id = business.lead_id").
		Joins("LEFT JOIN users ON users.id = leads.broker_id").
		Joins("LEFT JOIN developments ON developments.id = business.development_id").
		Scopes(BusinessVisibility(actor))
}

// ListVisible lists business rows whose lead the actor may see, newest first
func (r *BusinessRepositoryImpl) ListVisible(ctx context.Context, actor models.Actor, filter models.BusinessFilter, orderBy string, limit, offset int) ([]*models.BusinessView, error) {
	query := r.applyFilter(r.viewQuery(ctx, actor), filter)

	if orderBy == "" {
		orderBy = r.defaultOrder
	}
	query = query.Order(orderBy)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.BusinessView
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list visible business: %w", err)
	}
	return rows, nil
}

// VisibleByID returns the business with its display fields, or (nil, nil) when hidden or missing
func (r *BusinessRepositoryImpl) VisibleByID(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.BusinessView, error) {
	var row models.BusinessView
	err := r.viewQuery(ctx, actor).Where("business.id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find business %s: %w", id, err)
	}
	return &row, nil
}

// UpdateVisible updates one business row; the visibility check and the write are the same statement
func (r *BusinessRepositoryImpl) UpdateVisible(ctx context.Context, actor models.Actor, id uuid.UUID, fields map[string]any) (bool, error) {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = utils.UTCNow()
	}
	result := r.getDB(ctx).
		Model(&models.Business{}).
		Scopes(BusinessVisibility(actor)).
		Where("business.id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update business %s: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteVisible deletes one business row guarded by the actor's visibility
func (r *BusinessRepositoryImpl) DeleteVisible(ctx context.Context, actor models.Actor, id uuid.UUID) (bool, error) {
	result := r.getDB(ctx).
		Scopes(BusinessVisibility(actor)).
		Where("business.id = ?", id).
		Delete(&models.Business{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete business %s: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *BusinessRepositoryImpl) applyFilter(query *gorm.DB, filter models.BusinessFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("business.status = ?", *filter.Status)
	}
	if filter.LeadID != nil {
		query = query.Where("business.lead_id = ?", *filter.LeadID)
	}
	if filter.DevelopmentID != nil {
		query = query.Where("business.development_id = ?", *filter.DevelopmentID)
	}
	return query
}
