package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/config"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/repository"
	"github.com/imobflow/crm-api/utils"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// LeadFlow defines the lead use cases. Every operation is restricted to the leads the actor may see.
type LeadFlow interface {
	ListLeads(ctx context.Context, actor models.Actor, req *dto.ListLeadsRequest) ([]dto.LeadResponse, error)
	GetLead(ctx context.Context, actor models.Actor, id string) (*dto.LeadResponse, error)
	CreateLead(ctx context.Context, actor models.Actor, req *dto.CreateLeadRequest) (*dto.CreateLeadResponse, error)
	UpdateLead(ctx context.Context, actor models.Actor, id string, req *dto.UpdateLeadRequest) (*dto.LeadResponse, error)
	DeleteLead(ctx context.Context, actor models.Actor, id string) error
	UpdateLeadStatus(ctx context.Context, actor models.Actor, id string, req *dto.UpdateStatusRequest) (*dto.LeadResponse, error)
	ExportLeads(ctx context.Context, actor models.Actor, req *dto.ListLeadsRequest) (*bytes.Buffer, error)
}

// LeadFlowImpl implements LeadFlow
type LeadFlowImpl struct {
	leadRepo     repository.LeadRepository
	businessRepo repository.BusinessRepository
	userRepo     repository.UserRepository
	tx           repository.Transactor
	publisher    EventPublisher
	rules        config.RulesConfig
	logger       *zap.Logger
}

func NewLeadFlow(
	leadRepo repository.LeadRepository,
	businessRepo repository.BusinessRepository,
	userRepo repository.UserRepository,
	tx repository.Transactor,
	publisher EventPublisher,
	rules config.RulesConfig,
	logger *zap.Logger,
) LeadFlow {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &LeadFlowImpl{
		leadRepo:     leadRepo,
		businessRepo: businessRepo,
		userRepo:     userRepo,
		tx:           tx,
		publisher:    publisher,
		rules:        rules,
		logger:       logger,
	}
}

func leadNotFound() error {
	return NewBusinessError(CodeLeadNotFound, MsgLeadNotFound, ErrLeadNotFound)
}

func invalidBroker() error {
	return NewBusinessError(CodeLeadInvalidBroker, MsgLeadInvalidBroker, ErrLeadInvalidBroker)
}

func invalidStatus() error {
	return NewBusinessError(CodeInvalidStatus, MsgInvalidStatus, ErrInvalidStatus)
}

func invalidTransition() error {
	return NewBusinessError(CodeInvalidStatusTransition, MsgInvalidStatusTransition, ErrInvalidStatusTransition)
}

// normalizePhone strips the mask; an empty result is rejected
func normalizePhone(raw string) (string, error) {
	phone := utils.UnmaskValue(raw)
	if phone == "" {
		return "", NewBusinessError(CodeInvalidPhone, MsgInvalidPhone, ErrInvalidPhone)
	}
	return phone, nil
}

func (f *LeadFlowImpl) ListLeads(ctx context.Context, actor models.Actor, req *dto.ListLeadsRequest) ([]dto.LeadResponse, error) {
	filter, err := leadFilterFromRequest(req)
	if err != nil {
		return nil, err
	}

	limit, offset := pageBounds(req.Page, req.PageSize)
	rows, err := f.leadRepo.ListVisible(ctx, actor, filter, "", limit, offset)
	if err != nil {
		return nil, internalError(err)
	}

	leads := make([]dto.LeadResponse, 0, len(rows))
	for _, row := range rows {
		leads = append(leads, toLeadViewResponse(row))
	}
	return leads, nil
}

func (f *LeadFlowImpl) GetLead(ctx context.Context, actor models.Actor, id string) (*dto.LeadResponse, error) {
	leadID, ok := parseID(id)
	if !ok {
		return nil, leadNotFound()
	}

	view, err := f.leadRepo.VisibleByID(ctx, actor, leadID)
	if err != nil {
		return nil, internalError(err)
	}
	if view == nil {
		return nil, leadNotFound()
	}

	resp := toLeadViewResponse(view)
	return &resp, nil
}

// CreateLead registers a lead with one business per development. When the phone already
// belongs to a lead, the businesses are attached to it instead, unless any requested
// development is already linked, in which case nothing is written. An existing lead the
// actor cannot see is never echoed back.
func (f *LeadFlowImpl) CreateLead(ctx context.Context, actor models.Actor, req *dto.CreateLeadRequest) (*dto.CreateLeadResponse, error) {
	developments, err := uniqueDevelopments(req.Developments)
	if err != nil {
		return nil, err
	}
	if len(developments) == 0 {
		return nil, NewBusinessError(CodeLeadWithoutDevelopments, MsgLeadWithoutDevelopments, ErrLeadWithoutDevelopments)
	}

	source := models.LeadSource(req.Source)
	if !source.Valid() {
		return nil, NewBusinessError(CodeValidation, MsgInvalidSource, nil)
	}

	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	brokerID, err := f.resolveBroker(ctx, actor, req.BrokerID)
	if err != nil {
		return nil, err
	}

	var (
		lead        *models.Lead
		visible     *models.LeadView
		businesses  []*models.Business
		leadCreated bool
	)

	err = f.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if err := f.leadRepo.LockPhone(txCtx, phone); err != nil {
			return err
		}

		existing, err := f.leadRepo.ByPhone(txCtx, phone)
		if err != nil {
			return err
		}

		if existing != nil {
			linked, err := f.businessRepo.ByFilter(txCtx, models.BusinessFilter{LeadID: &existing.ID}, "", 0, 0)
			if err != nil {
				return err
			}
			for _, b := range linked {
				if _, dup := developments[b.DevelopmentID]; dup {
					return NewBusinessError(CodeLeadDuplicated, MsgLeadDuplicated, ErrLeadDuplicatedDevelopment)
				}
			}
			visible, err = f.leadRepo.VisibleByID(txCtx, actor, existing.ID)
			if err != nil {
				return err
			}
			lead = existing
		} else {
			lead = &models.Lead{
				Name:     strings.TrimSpace(req.Name),
				Phone:    phone,
				Source:   source,
				Status:   models.LeadStatusNew,
				Notes:    req.Notes,
				BrokerID: brokerID,
			}
			if err := f.leadRepo.Save(txCtx, lead); err != nil {
				if repository.IsRaisedException(err, repository.TriggerLeadBrokerRole) || repository.IsForeignKeyViolation(err) {
					return invalidBroker()
				}
				return err
			}
			leadCreated = true
		}

		businesses = make([]*models.Business, 0, len(developments))
		for _, developmentID := range orderedDevelopments(req.Developments, developments) {
			businesses = append(businesses, &models.Business{
				LeadID:        lead.ID,
				DevelopmentID: developmentID,
				Source:        source,
				Status:        models.BusinessStatusNew,
			})
		}
		if err := f.businessRepo.SaveBatch(txCtx, businesses); err != nil {
			switch {
			case repository.IsUniqueViolation(err, "uk_business_lead_development"):
				return NewBusinessError(CodeLeadDuplicated, MsgLeadDuplicated, ErrLeadDuplicatedDevelopment)
			case repository.IsForeignKeyViolation(err):
				return NewBusinessError(CodeDevelopmentNotFound, MsgDevelopmentNotFound, ErrDevelopmentNotFound)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if _, ok := AsBusinessError(err); ok {
			return nil, err
		}
		return nil, internalError(err)
	}

	resp := &dto.CreateLeadResponse{
		Businesses:   make([]dto.BusinessResponse, 0, len(businesses)),
		ExistingLead: !leadCreated,
	}
	switch {
	case leadCreated:
		created := toLeadResponse(lead, nil)
		resp.Lead = &created
	case visible != nil:
		shown := toLeadViewResponse(visible)
		resp.Lead = &shown
	}
	for _, b := range businesses {
		resp.Businesses = append(resp.Businesses, toBusinessResponse(b))
	}

	// Notifications go out only after the transaction committed
	owner := lead.BrokerID.String()
	if leadCreated {
		leadsCreatedTotal.WithLabelValues(string(source)).Inc()
		f.publisher.Publish(ctx, newEvent(dto.EventNewLead, owner, *resp.Lead))
	}
	for _, b := range resp.Businesses {
		businessesCreatedTotal.WithLabelValues("lead_form").Inc()
		f.publisher.Publish(ctx, newEvent(dto.EventNewBusiness, owner, b))
	}

	f.logger.Info("lead registered",
		zap.String("lead_id", lead.ID.String()),
		zap.Bool("existing_lead", !leadCreated),
		zap.Int("businesses", len(businesses)),
		zap.String("actor_id", actor.ID.String()),
	)

	return resp, nil
}

func (f *LeadFlowImpl) UpdateLead(ctx context.Context, actor models.Actor, id string, req *dto.UpdateLeadRequest) (*dto.LeadResponse, error) {
	leadID, ok := parseID(id)
	if !ok {
		return nil, leadNotFound()
	}

	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		phone, err := normalizePhone(*req.Phone)
		if err != nil {
			return nil, err
		}
		fields["phone"] = phone
	}
	if req.Source != nil {
		source := models.LeadSource(*req.Source)
		if !source.Valid() {
			return nil, NewBusinessError(CodeValidation, MsgInvalidSource, nil)
		}
		fields["source"] = source
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}

	var target *models.LeadStatus
	if req.Status != nil {
		status := models.LeadStatus(*req.Status)
		if !status.Valid() {
			return nil, invalidStatus()
		}
		target = &status
		fields["status"] = status
		fields["last_contact"] = utils.UTCNow()
	}

	// Only admins reassign leads
	if req.BrokerID != nil && actor.IsAdmin() {
		brokerID, err := f.resolveBroker(ctx, actor, req.BrokerID)
		if err != nil {
			return nil, err
		}
		fields["broker_id"] = brokerID
	}

	return f.applyUpdate(ctx, actor, leadID, target, fields)
}

func (f *LeadFlowImpl) UpdateLeadStatus(ctx context.Context, actor models.Actor, id string, req *dto.UpdateStatusRequest) (*dto.LeadResponse, error) {
	leadID, ok := parseID(id)
	if !ok {
		return nil, leadNotFound()
	}

	status := models.LeadStatus(req.Status)
	if !status.Valid() {
		return nil, invalidStatus()
	}

	now := utils.UTCNow()
	resp, err := f.applyUpdate(ctx, actor, leadID, &status, map[string]any{
		"status":       status,
		"last_contact": now,
		"updated_at":   now,
	})
	if err != nil {
		return nil, err
	}

	statusChangesTotal.WithLabelValues("lead", string(status)).Inc()
	return resp, nil
}

// applyUpdate writes fields under the actor's visibility and returns the fresh row.
// With strict transitions the current status is checked inside the same transaction.
func (f *LeadFlowImpl) applyUpdate(ctx context.Context, actor models.Actor, leadID uuid.UUID, target *models.LeadStatus, fields map[string]any) (*dto.LeadResponse, error) {
	var view *models.LeadView

	err := f.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if target != nil && f.rules.StrictStatusTransitions {
			current, err := f.leadRepo.VisibleByID(txCtx, actor, leadID)
			if err != nil {
				return err
			}
			if current == nil {
				return leadNotFound()
			}
			if !current.Status.CanTransitionTo(*target) {
				return invalidTransition()
			}
		}

		if len(fields) > 0 {
			updated, err := f.leadRepo.UpdateVisible(txCtx, actor, leadID, fields)
			if err != nil {
				if repository.IsRaisedException(err, repository.TriggerLeadBrokerRole) || repository.IsForeignKeyViolation(err) {
					return invalidBroker()
				}
				return err
			}
			if !updated {
				return leadNotFound()
			}
		}

		var err error
		view, err = f.leadRepo.VisibleByID(txCtx, actor, leadID)
		if err != nil {
			return err
		}
		if view == nil {
			// reassigned out of the actor's scope
			return leadNotFound()
		}
		return nil
	})
	if err != nil {
		if _, ok := AsBusinessError(err); ok {
			return nil, err
		}
		return nil, internalError(err)
	}

	resp := toLeadViewResponse(view)
	return &resp, nil
}

func (f *LeadFlowImpl) DeleteLead(ctx context.Context, actor models.Actor, id string) error {
	leadID, ok := parseID(id)
	if !ok {
		return leadNotFound()
	}

	deleted, err := f.leadRepo.DeleteVisible(ctx, actor, leadID)
	if err != nil {
		return internalError(err)
	}
	if !deleted {
		return leadNotFound()
	}

	f.logger.Info("lead deleted", zap.String("lead_id", leadID.String()), zap.String("actor_id", actor.ID.String()))
	return nil
}

var leadExportHeader = []any{"Nome", "Telefone", "Origem", "Status", "Corretor", "Último contato", "Criado em", "Observações"}

// ExportLeads renders the visible leads matching the filter as an xlsx workbook
func (f *LeadFlowImpl) ExportLeads(ctx context.Context, actor models.Actor, req *dto.ListLeadsRequest) (*bytes.Buffer, error) {
	filter, err := leadFilterFromRequest(req)
	if err != nil {
		return nil, err
	}

	rows, err := f.leadRepo.ListVisible(ctx, actor, filter, "", 0, 0)
	if err != nil {
		return nil, internalError(err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	const sheet = "Leads"
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return nil, internalError(err)
	}
	header := leadExportHeader
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, internalError(err)
	}

	for i, row := range rows {
		record := []any{
			row.Name,
			utils.FormatPhone(row.Phone),
			string(row.Source),
			string(row.Status),
			utils.Deref(row.BrokerName),
			"",
			row.CreatedAt.Format("02/01/2006 15:04"),
			utils.Deref(row.Notes),
		}
		if row.LastContact != nil {
			record[5] = row.LastContact.Format("02/01/2006 15:04")
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, internalError(err)
		}
		if err := xl.SetSheetRow(sheet, cell, &record); err != nil {
			return nil, internalError(err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, internalError(fmt.Errorf("failed to write workbook: %w", err))
	}
	return buf, nil
}

// resolveBroker decides who owns a lead written by actor. Brokers and team leaders always
// own their own leads; admins must name an active broker or team leader.
func (f *LeadFlowImpl) resolveBroker(ctx context.Context, actor models.Actor, requested *string) (uuid.UUID, error) {
	if actor.Role.CanOwnLeads() {
		return actor.ID, nil
	}
	if !actor.IsAdmin() || requested == nil {
		return uuid.Nil, invalidBroker()
	}

	brokerID, ok := parseID(*requested)
	if !ok {
		return uuid.Nil, invalidBroker()
	}
	broker, err := f.userRepo.ByID(ctx, brokerID)
	if err != nil {
		return uuid.Nil, internalError(err)
	}
	if broker == nil || !broker.Role.CanOwnLeads() || !broker.IsActive() {
		return uuid.Nil, invalidBroker()
	}
	return broker.ID, nil
}

func leadFilterFromRequest(req *dto.ListLeadsRequest) (models.LeadFilter, error) {
	var filter models.LeadFilter
	if req == nil {
		return filter, nil
	}
	if req.Status != "" {
		status := models.LeadStatus(req.Status)
		if !status.Valid() {
			return filter, invalidStatus()
		}
		filter.Status = &status
	}
	if req.Source != "" {
		source := models.LeadSource(req.Source)
		if !source.Valid() {
			return filter, NewBusinessError(CodeValidation, MsgInvalidSource, nil)
		}
		filter.Source = &source
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		filter.Search = &search
	}
	if req.BrokerID != "" {
		brokerID, ok := parseID(req.BrokerID)
		if !ok {
			return filter, NewBusinessError(CodeValidation, MsgInvalidBrokerFilter, nil)
		}
		filter.BrokerID = &brokerID
	}
	return filter, nil
}

// uniqueDevelopments parses the requested development ids into a set
func uniqueDevelopments(raw []string) (map[uuid.UUID]struct{}, error) {
	set := make(map[uuid.UUID]struct{}, len(raw))
	for _, r := range raw {
		id, ok := parseID(r)
		if !ok {
			return nil, NewBusinessError(CodeDevelopmentNotFound, MsgDevelopmentNotFound, ErrDevelopmentNotFound)
		}
		set[id] = struct{}{}
	}
	return set, nil
}

// orderedDevelopments keeps the request order while dropping repeats
func orderedDevelopments(raw []string, set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	seen := make(map[uuid.UUID]struct{}, len(set))
	for _, r := range raw {
		id, _ := uuid.Parse(r)
		if _, ok := set[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
