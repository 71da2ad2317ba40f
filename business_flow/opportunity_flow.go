package businessflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/config"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/repository"
	"github.com/imobflow/crm-api/utils"
	"go.uber.org/zap"
)

// BusinessFlow defines the business opportunity use cases. A business is visible to
// whoever may see its lead.
type BusinessFlow interface {
	ListBusiness(ctx context.Context, actor models.Actor, req *dto.ListBusinessRequest) ([]dto.BusinessResponse, error)
	GetBusiness(ctx context.Context, actor models.Actor, id string) (*dto.BusinessResponse, error)
	CreateBusiness(ctx context.Context, actor models.Actor, req *dto.CreateBusinessRequest) (*dto.BusinessResponse, error)
	UpdateBusiness(ctx context.Context, actor models.Actor, id string, req *dto.UpdateBusinessRequest) (*dto.BusinessResponse, error)
	DeleteBusiness(ctx context.Context, actor models.Actor, id string) error
	UpdateBusinessStatus(ctx context.Context, actor models.Actor, id string, req *dto.UpdateStatusRequest) (*dto.BusinessResponse, error)
}

// BusinessFlowImpl implements BusinessFlow
type BusinessFlowImpl struct {
	businessRepo repository.BusinessRepository
	leadRepo     repository.LeadRepository
	tx           repository.Transactor
	publisher    EventPublisher
	rules        config.RulesConfig
	logger       *zap.Logger
}

func NewBusinessFlow(
	businessRepo repository.BusinessRepository,
	leadRepo repository.LeadRepository,
	tx repository.Transactor,
	publisher EventPublisher,
	rules config.RulesConfig,
	logger *zap.Logger,
) BusinessFlow {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &BusinessFlowImpl{
		businessRepo: businessRepo,
		leadRepo:     leadRepo,
		tx:           tx,
		publisher:    publisher,
		rules:        rules,
		logger:       logger,
	}
}

func businessNotFound() error {
	return NewBusinessError(CodeBusinessNotFound, MsgBusinessNotFound, ErrBusinessNotFound)
}

func businessDuplicated() error {
	return NewBusinessError(CodeBusinessDuplicated, MsgBusinessDuplicated, ErrBusinessDuplicated)
}

func developmentNotFound() error {
	return NewBusinessError(CodeDevelopmentNotFound, MsgDevelopmentNotFound, ErrDevelopmentNotFound)
}

// mapBusinessWriteError translates constraint failures of business inserts and updates
func mapBusinessWriteError(err error) error {
	switch {
	case repository.IsUniqueViolation(err, "uk_business_lead_development"):
		return businessDuplicated()
	case repository.IsForeignKeyViolation(err):
		return developmentNotFound()
	}
	return err
}

func (f *BusinessFlowImpl) ListBusiness(ctx context.Context, actor models.Actor, req *dto.ListBusinessRequest) ([]dto.BusinessResponse, error) {
	var filter models.BusinessFilter
	if req.Status != "" {
		status := models.BusinessStatus(req.Status)
		if !status.Valid() {
			return nil, invalidStatus()
		}
		filter.Status = &status
	}
	if req.LeadID != "" {
		leadID, ok := parseID(req.LeadID)
		if !ok {
			return []dto.BusinessResponse{}, nil
		}
		filter.LeadID = &leadID
	}
	if req.DevelopmentID != "" {
		developmentID, ok := parseID(req.DevelopmentID)
		if !ok {
			return []dto.BusinessResponse{}, nil
		}
		filter.DevelopmentID = &developmentID
	}

	limit, offset := pageBounds(req.Page, req.PageSize)
	rows, err := f.businessRepo.ListVisible(ctx, actor, filter, "", limit, offset)
	if err != nil {
		return nil, internalError(err)
	}

	items := make([]dto.BusinessResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toBusinessViewResponse(row))
	}
	return items, nil
}

func (f *BusinessFlowImpl) GetBusiness(ctx context.Context, actor models.Actor, id string) (*dto.BusinessResponse, error) {
	businessID, ok := parseID(id)
	if !ok {
		return nil, businessNotFound()
	}

	view, err := f.businessRepo.VisibleByID(ctx, actor, businessID)
	if err != nil {
		return nil, internalError(err)
	}
	if view == nil {
		return nil, businessNotFound()
	}

	resp := toBusinessViewResponse(view)
	return &resp, nil
}

// CreateBusiness attaches a development to a lead the actor can see
func (f *BusinessFlowImpl) CreateBusiness(ctx context.Context, actor models.Actor, req *dto.CreateBusinessRequest) (*dto.BusinessResponse, error) {
	leadID, ok := parseID(req.LeadID)
	if !ok {
		return nil, leadNotFound()
	}
	developmentID, ok := parseID(req.DevelopmentID)
	if !ok {
		return nil, developmentNotFound()
	}

	status := models.BusinessStatusNew
	if req.Status != nil {
		status = models.BusinessStatus(*req.Status)
		if !status.Valid() {
			return nil, invalidStatus()
		}
	}

	var (
		view  *models.BusinessView
		owner uuid.UUID
	)
	err := f.tx.WithinTx(ctx, func(txCtx context.Context) error {
		lead, err := f.leadRepo.VisibleByID(txCtx, actor, leadID)
		if err != nil {
			return err
		}
		if lead == nil {
			return leadNotFound()
		}
		owner = lead.BrokerID

		source := lead.Source
		if req.Source != nil {
			source = models.LeadSource(*req.Source)
			if !source.Valid() {
				return NewBusinessError(CodeValidation, MsgInvalidSource, nil)
			}
		}

		business := &models.Business{
			LeadID:        lead.ID,
			DevelopmentID: developmentID,
			Source:        source,
			Status:        status,
			ScheduledAt:   utils.TimeToUTCPtr(req.ScheduledAt),
			RecallAt:      utils.TimeToUTCPtr(req.RecallAt),
			Notes:         req.Notes,
		}
		if err := f.businessRepo.Save(txCtx, business); err != nil {
			return mapBusinessWriteError(err)
		}

		view, err = f.businessRepo.VisibleByID(txCtx, actor, business.ID)
		if err != nil {
			return err
		}
		if view == nil {
			return businessNotFound()
		}
		return nil
	})
	if err != nil {
		if _, ok := AsBusinessError(err); ok {
			return nil, err
		}
		return nil, internalError(err)
	}

	resp := toBusinessViewResponse(view)
	businessesCreatedTotal.WithLabelValues("direct").Inc()
	f.publisher.Publish(ctx, newEvent(dto.EventNewBusiness, owner.String(), resp))

	return &resp, nil
}

func (f *BusinessFlowImpl) UpdateBusiness(ctx context.Context, actor models.Actor, id string, req *dto.UpdateBusinessRequest) (*dto.BusinessResponse, error) {
	businessID, ok := parseID(id)
	if !ok {
		return nil, businessNotFound()
	}

	fields := map[string]any{}
	if req.DevelopmentID != nil {
		developmentID, ok := parseID(*req.DevelopmentID)
		if !ok {
			return nil, developmentNotFound()
		}
		fields["development_id"] = developmentID
	}
	if req.Source != nil {
		source := models.LeadSource(*req.Source)
		if !source.Valid() {
			return nil, NewBusinessError(CodeValidation, MsgInvalidSource, nil)
		}
		fields["source"] = source
	}
	var target *models.BusinessStatus
	if req.Status != nil {
		status := models.BusinessStatus(*req.Status)
		if !status.Valid() {
			return nil, invalidStatus()
		}
		target = &status
		fields["status"] = status
	}
	if req.ScheduledAt != nil {
		fields["scheduled_at"] = req.ScheduledAt.UTC()
	}
	if req.RecallAt != nil {
		fields["recall_at"] = req.RecallAt.UTC()
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}

	return f.applyUpdate(ctx, actor, businessID, target, fields)
}

func (f *BusinessFlowImpl) UpdateBusinessStatus(ctx context.Context, actor models.Actor, id string, req *dto.UpdateStatusRequest) (*dto.BusinessResponse, error) {
	businessID, ok := parseID(id)
	if !ok {
		return nil, businessNotFound()
	}

	status := models.BusinessStatus(req.Status)
	if !status.Valid() {
		return nil, invalidStatus()
	}

	resp, err := f.applyUpdate(ctx, actor, businessID, &status, map[string]any{"status": status})
	if err != nil {
		return nil, err
	}

	statusChangesTotal.WithLabelValues("business", string(status)).Inc()
	return resp, nil
}

func (f *BusinessFlowImpl) applyUpdate(ctx context.Context, actor models.Actor, businessID uuid.UUID, target *models.BusinessStatus, fields map[string]any) (*dto.BusinessResponse, error) {
	var view *models.BusinessView

	err := f.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if target != nil && f.rules.StrictStatusTransitions {
			current, err := f.businessRepo.VisibleByID(txCtx, actor, businessID)
			if err != nil {
				return err
			}
			if current == nil {
				return businessNotFound()
			}
			if !current.Status.CanTransitionTo(*target) {
				return invalidTransition()
			}
		}

		if len(fields) > 0 {
			updated, err := f.businessRepo.UpdateVisible(txCtx, actor, businessID, fields)
			if err != nil {
				return mapBusinessWriteError(err)
			}
			if !updated {
				return businessNotFound()
			}
		}

		var err error
		view, err = f.businessRepo.VisibleByID(txCtx, actor, businessID)
		if err != nil {
			return err
		}
		if view == nil {
			return businessNotFound()
		}
		return nil
	})
	if err != nil {
		if _, ok := AsBusinessError(err); ok {
			return nil, err
		}
		return nil, internalError(err)
	}

	resp := toBusinessViewResponse(view)
	return &resp, nil
}

func (f *BusinessFlowImpl) DeleteBusiness(ctx context.Context, actor models.Actor, id string) error {
	businessID, ok := parseID(id)
	if !ok {
		return businessNotFound()
	}

	deleted, err := f.businessRepo.DeleteVisible(ctx, actor, businessID)
	if err != nil {
		return internalError(err)
	}
	if !deleted {
		return businessNotFound()
	}

	f.logger.Info("business deleted", zap.String("business_id", businessID.String()), zap.String("actor_id", actor.ID.String()))
	return nil
}
