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

const leadViewColumns = "leads.*, users.name AS broker_name"

// LeadRepositoryImpl implements LeadRepository interface
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	r := &LeadRepositoryImpl{}
	r.BaseRepository = NewBaseRepository[models.Lead](db, r.applyFilter, "leads.name ASC")
	return r
}

// ByPhone finds the lead registered with a digits-only phone
func (r *LeadRepositoryImpl) ByPhone(ctx context.Context, phone string) (*models.Lead, error) {
	digits := utils.UnmaskValue(phone)
	rows, err := r.ByFilter(ctx, models.LeadFilter{Phone: &digits}, "leads.created_at ASC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// LockPhone takes a transaction-scoped advisory lock on the phone so concurrent
// creations for the same number serialize. It must run inside a transaction.
func (r *LeadRepositoryImpl) LockPhone(ctx context.Context, phone string) error {
	if err := r.getDB(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", utils.UnmaskValue(phone)).Error; err != nil {
		return fmt.Errorf("failed to lock phone: %w", err)
	}
	return nil
}

func (r *LeadRepositoryImpl) viewQuery(ctx context.Context, actor models.Actor) *gorm.DB {
	return r.getDB(ctx).
		Table("leads").
		Select(leadViewColumns).
		Joins("LEFT JOIN users ON users.id = leads.broker_id").
		Scopes(LeadVisibility(actor))
}

// ListVisible lists the leads the actor may see
func (r *LeadRepositoryImpl) ListVisible(ctx context.Context, actor models.Actor, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.LeadView, error) {
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

	var rows []*models.LeadView
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list visible leads: %w", err)
	}
	return rows, nil
}

// VisibleByID returns the lead when it exists and the actor may see it; otherwise (nil, nil)
func (r *LeadRepositoryImpl) VisibleByID(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.LeadView, error) {
	var row models.LeadView
	err := r.viewQuery(ctx, actor).Where("leads.id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find lead %s: %w", id, err)
	}
	return &row, nil
}

// UpdateVisible updates the lead in one statement guarded by the actor's visibility
func (r *LeadRepositoryImpl) UpdateVisible(ctx context.Context, actor models.Actor, id uuid.UUID, fields map[string]any) (bool, error) {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = utils.UTCNow()
	}
	result := r.getDB(ctx).
		Model(&models.Lead{}).
		Scopes(LeadVisibility(actor)).
		Where("leads.id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update lead %s: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteVisible deletes the lead in one statement guarded by the actor's visibility
func (r *LeadRepositoryImpl) DeleteVisible(ctx context.Context, actor models.Actor, id uuid.UUID) (bool, error) {
	result := r.getDB(ctx).
		Scopes(LeadVisibility(actor)).
		Where("leads.id = ?", id).
		Delete(&models.Lead{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete lead %s: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// applyFilter applies filter criteria to a GORM query; columns are qualified so joins stay unambiguous
func (r *LeadRepositoryImpl) applyFilter(query *gorm.DB, filter models.LeadFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("leads.status = ?", *filter.Status)
	}
	if len(filter.StatusIn) > 0 {
		query = query.Where("leads.status IN ?", filter.StatusIn)
	}
	if filter.Source != nil {
		query = query.Where("leads.source = ?", *filter.Source)
	}
	if filter.BrokerID != nil {
		query = query.Where("leads.broker_id = ?", *filter.BrokerID)
	}
	if filter.Phone != nil {
		query = query.Where("leads.phone = ?", *filter.Phone)
	}
	if filter.Search != nil && *filter.Search != "" {
		like := "%" + *filter.Search + "%"
		query = query.Where("(leads.name ILIKE ? OR leads.phone LIKE ?)", like, like)
	}
	if filter.ContactedBefore != nil {
		query = query.Where("COALESCE(leads.last_contact, leads.created_at) < ?", *filter.ContactedBefore)
	}
	return query
}
