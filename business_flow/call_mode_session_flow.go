package businessflow

import (
	"context"

	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/repository"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// CallModeSessionFlow records the work intervals users spend in call mode
type CallModeSessionFlow interface {
	CreateSession(ctx context.Context, actor models.Actor, req *dto.CreateCallModeSessionRequest) (*dto.CallModeSessionResponse, error)
	ListSessions(ctx context.Context, actor models.Actor) ([]dto.CallModeSessionResponse, error)
}

// CallModeSessionFlowImpl implements CallModeSessionFlow
type CallModeSessionFlowImpl struct {
	sessionRepo repository.CallModeSessionRepository
	logger      *zap.Logger
}

func NewCallModeSessionFlow(sessionRepo repository.CallModeSessionRepository, logger *zap.Logger) CallModeSessionFlow {
	return &CallModeSessionFlowImpl{sessionRepo: sessionRepo, logger: logger}
}

// CreateSession stores a finished session for the caller. Viewed lead ids are kept as given, deduplicated.
func (f *CallModeSessionFlowImpl) CreateSession(ctx context.Context, actor models.Actor, req *dto.CreateCallModeSessionRequest) (*dto.CallModeSessionResponse, error) {
	if req.EndTime.Before(req.StartTime) {
		return nil, NewBusinessError(CodeInvalidSessionInterval, MsgInvalidSessionInterval, ErrInvalidSessionInterval)
	}

	viewed := make(pq.StringArray, 0, len(req.LeadsViewed))
	seen := make(map[string]struct{}, len(req.LeadsViewed))
	for _, raw := range req.LeadsViewed {
		id, ok := parseID(raw)
		if !ok {
			continue
		}
		key := id.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		viewed = append(viewed, key)
	}

	session := &models.CallModeSession{
		UserID:      actor.ID,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		LeadsViewed: viewed,
	}
	if err := f.sessionRepo.Save(ctx, session); err != nil {
		return nil, internalError(err)
	}

	f.logger.Debug("call mode session recorded",
		zap.String("user_id", actor.ID.String()),
		zap.Duration("duration", session.Duration()),
		zap.Int("leads_viewed", len(viewed)),
	)

	resp := toCallModeSessionResponse(session)
	return &resp, nil
}

// ListSessions returns the caller's own sessions, newest first
func (f *CallModeSessionFlowImpl) ListSessions(ctx context.Context, actor models.Actor) ([]dto.CallModeSessionResponse, error) {
	sessions, err := f.sessionRepo.ByFilter(ctx, models.CallModeSessionFilter{UserID: &actor.ID}, "", 0, 0)
	if err != nil {
		return nil, internalError(err)
	}

	items := make([]dto.CallModeSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, toCallModeSessionResponse(s))
	}
	return items, nil
}
