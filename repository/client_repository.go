package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/utils"
	"gorm.io/gorm"
)

// ClientRepositoryImpl implements ClientRepository interface
type ClientRepositoryImpl struct {
	*BaseRepository[models.Client, models.ClientFilter]
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) ClientRepository {
	r := &ClientRepositoryImpl{}
	r.BaseRepository = NewBaseRepository[models.Client](db, r.applyFilter, "name ASC")
	return r
}

// ByCPF finds a client by digits-only CPF
func (r *ClientRepositoryImpl) ByCPF(ctx context.Context, cpf string) (*models.Client, error) {
	digits := utils.UnmaskValue(cpf)
	rows, err := r.ByFilter(ctx, models.ClientFilter{CPF: &digits}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// CountSales counts ledger entries referencing the client
func (r *ClientRepositoryImpl) CountSales(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var count int64
	if err := r.getDB(ctx).Model(&models.Sale{}).Where("client_id = ?", clientID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sales for client %s: %w", clientID, err)
	}
	return count, nil
}

func (r *ClientRepositoryImpl) applyFilter(query *gorm.DB, filter models.ClientFilter) *gorm.DB {
	if filter.CPF != nil {
		query = query.Where("clients.cpf = ?", *filter.CPF)
	}
	if filter.Search != nil && *filter.Search != "" {
		like := "%" + *filter.Search + "%"
		digits := utils.UnmaskValue(*filter.Search)
		if digits != "" {
			query = query.Where("(clients.name ILIKE ? OR clients.cpf LIKE ?)", like, "%"+digits+"%")
		} else {
			query = query.Where("clients.name ILIKE ?", like)
		}
	}
	return query
}
