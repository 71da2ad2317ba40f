// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uuid.UUID) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// Transactor runs fn so that every repository call made with the ctx it receives shares one transaction
type Transactor interface {
	WithinTx(ctx context.Context, fn func(context.Context) error) error
}

// UserRepository defines operations for users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateByID(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (bool, error)
}

// TeamRepository defines operations for teams
type TeamRepository interface {
	Repository[models.Team, models.TeamFilter]
	UpdateByID(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
}

// LeadRepository defines operations for leads. The *Visible methods apply the
// actor's visibility predicate inside the same statement.
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByPhone(ctx context.Context, phone string) (*models.Lead, error)
	LockPhone(ctx context.Context, phone string) error
	ListVisible(ctx context.Context, actor models.Actor, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.LeadView, error)
	VisibleByID(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.LeadView, error)
	UpdateVisible(ctx context.Context, actor models.Actor, id uuid.UUID, fields map[string]any) (bool, error)
	DeleteVisible(ctx context.Context, actor models.Actor, id uuid.UUID) (bool, error)
}

// BusinessRepository defines operations for business opportunities, scoped through their lead
type BusinessRepository interface {
	Repository[models.Business, models.BusinessFilter]
	ListVisible(ctx context.Context, actor models.Actor, filter models.BusinessFilter, orderBy string, limit, offset int) ([]*models.BusinessView, error)
	VisibleByID(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.BusinessView, error)
	UpdateVisible(ctx context.Context, actor models.Actor, id uuid.UUID, fields map[string]any) (bool, error)
	DeleteVisible(ctx context.Context, actor models.Actor, id uuid.UUID) (bool, error)
}

// ClientRepository defines operations for clients
type ClientRepository interface {
	Repository[models.Client, models.ClientFilter]
	ByCPF(ctx context.Context, cpf string) (*models.Client, error)
	UpdateByID(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	CountSales(ctx context.Context, clientID uuid.UUID) (int64, error)
}

// CallModeSessionRepository defines operations for call-mode sessions
type CallModeSessionRepository interface {
	Repository[models.CallModeSession, models.CallModeSessionFilter]
}
