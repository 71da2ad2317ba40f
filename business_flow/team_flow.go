package businessflow

import (
	"context"
	"strings"

	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/repository"
	"go.uber.org/zap"
)

// TeamFlow manages teams. Access is restricted to admins by the router.
type TeamFlow interface {
	ListTeams(ctx context.Context) ([]dto.TeamResponse, error)
	GetTeam(ctx context.Context, id string) (*dto.TeamResponse, error)
	CreateTeam(ctx context.Context, req *dto.CreateTeamRequest) (*dto.TeamResponse, error)
	UpdateTeam(ctx context.Context, id string, req *dto.UpdateTeamRequest) (*dto.TeamResponse, error)
	DeleteTeam(ctx context.Context, id string) error
}

// TeamFlowImpl implements TeamFlow
type TeamFlowImpl struct {
	teamRepo repository.TeamRepository
	userRepo repository.UserRepository
	tx       repository.Transactor
	logger   *zap.Logger
}

func NewTeamFlow(teamRepo repository.TeamRepository, userRepo repository.UserRepository, tx repository.Transactor, logger *zap.Logger) TeamFlow {
	return &TeamFlowImpl{teamRepo: teamRepo, userRepo: userRepo, tx: tx, logger: logger}
}

func teamNotFound() error {
	return NewBusinessError(CodeTeamNotFound, MsgTeamNotFound, ErrTeamNotFound)
}

func invalidLeader() error {
	return NewBusinessError(CodeTeamLeaderInvalidRole, MsgTeamLeaderInvalidRole, ErrTeamLeaderInvalidRole)
}

func mapTeamWriteError(err error) error {
	if repository.IsRaisedException(err, repository.TriggerTeamLeaderRole) || repository.IsForeignKeyViolation(err) {
		return invalidLeader()
	}
	return err
}

func (f *TeamFlowImpl) ListTeams(ctx context.Context) ([]dto.TeamResponse, error) {
	teams, err := f.teamRepo.ByFilter(ctx, models.TeamFilter{}, "", 0, 0)
	if err != nil {
		return nil, internalError(err)
	}

	items := make([]dto.TeamResponse, 0, len(teams))
	for _, team := range teams {
		resp, err := f.describe(ctx, team)
		if err != nil {
			return nil, internalError(err)
		}
		items = append(items, resp)
	}
	return items, nil
}

func (f *TeamFlowImpl) GetTeam(ctx context.Context, id string) (*dto.TeamResponse, error) {
	teamID, ok := parseID(id)
	if !ok {
		return nil, teamNotFound()
	}
	team, err := f.teamRepo.ByID(ctx, teamID)
	if err != nil {
		return nil, internalError(err)
	}
	if team == nil {
		return nil, teamNotFound()
	}

	resp, err := f.describe(ctx, team)
	if err != nil {
		return nil, internalError(err)
	}
	return &resp, nil
}

// CreateTeam stores the team and moves its leader into it
func (f *TeamFlowImpl) CreateTeam(ctx context.Context, req *dto.CreateTeamRequest) (*dto.TeamResponse, error) {
	leader, err := f.findLeader(ctx, req.LeaderID)
	if err != nil {
		return nil, err
	}

	team := &models.Team{
		Name:     strings.TrimSpace(req.Name),
		LeaderID: leader.ID,
	}
	err = f.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if err := f.teamRepo.Save(txCtx, team); err != nil {
			return mapTeamWriteError(err)
		}
		_, err := f.userRepo.UpdateByID(txCtx, leader.ID, map[string]any{"team_id": team.ID})
		return err
	})
	if err != nil {
		if _, ok := AsBusinessError(err); ok {
			return nil, err
		}
		return nil, internalError(err)
	}

	f.logger.Info("team created", zap.String("team_id", team.ID.String()), zap.String("leader_id", leader.ID.String()))
	return f.GetTeam(ctx, team.ID.String())
}

func (f *TeamFlowImpl) UpdateTeam(ctx context.Context, id string, req *dto.UpdateTeamRequest) (*dto.TeamResponse, error) {
	teamID, ok := parseID(id)
	if !ok {
		return nil, teamNotFound()
	}

	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	var leader *models.User
	if req.LeaderID != nil {
		var err error
		leader, err = f.findLeader(ctx, *req.LeaderID)
		if err != nil {
			return nil, err
		}
		fields["leader_id"] = leader.ID
	}

	if len(fields) > 0 {
		err := f.tx.WithinTx(ctx, func(txCtx context.Context) error {
			updated, err := f.teamRepo.UpdateByID(txCtx, teamID, fields)
			if err != nil {
				return mapTeamWriteError(err)
			}
			if !updated {
				return teamNotFound()
			}
			if leader != nil {
				_, err = f.userRepo.UpdateByID(txCtx, leader.ID, map[string]any{"team_id": teamID})
			}
			return err
		})
		if err != nil {
			if _, ok := AsBusinessError(err); ok {
				return nil, err
			}
			return nil, internalError(err)
		}
	}

	return f.GetTeam(ctx, id)
}

// DeleteTeam removes the team; members keep their accounts without a team
func (f *TeamFlowImpl) DeleteTeam(ctx context.Context, id string) error {
	teamID, ok := parseID(id)
	if !ok {
		return teamNotFound()
	}

	deleted, err := f.teamRepo.DeleteByID(ctx, teamID)
	if err != nil {
		return internalError(err)
	}
	if !deleted {
		return teamNotFound()
	}

	f.logger.Info("team deleted", zap.String("team_id", teamID.String()))
	return nil
}

func (f *TeamFlowImpl) findLeader(ctx context.Context, raw string) (*models.User, error) {
	leaderID, ok := parseID(raw)
	if !ok {
		return nil, invalidLeader()
	}
	leader, err := f.userRepo.ByID(ctx, leaderID)
	if err != nil {
		return nil, internalError(err)
	}
	if leader == nil || leader.Role != models.RoleTeamLeader {
		return nil, invalidLeader()
	}
	return leader, nil
}

func (f *TeamFlowImpl) describe(ctx context.Context, team *models.Team) (dto.TeamResponse, error) {
	if team.Leader == nil {
		leader, err := f.userRepo.ByID(ctx, team.LeaderID)
		if err != nil {
			return dto.TeamResponse{}, err
		}
		team.Leader = leader
	}
	members, err := f.userRepo.Count(ctx, models.UserFilter{TeamID: &team.ID})
	if err != nil {
		return dto.TeamResponse{}, err
	}
	return toTeamResponse(team, members), nil
}
