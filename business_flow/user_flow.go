package businessflow

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/config"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/repository"
	"github.com/imobflow/crm-api/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserFlow manages CRM operators. Access is restricted to admins by the router.
type UserFlow interface {
	ListUsers(ctx context.Context, req *dto.ListUsersRequest) ([]dto.UserResponse, error)
	GetUser(ctx context.Context, id string) (*dto.UserResponse, error)
	CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	UpdateUser(ctx context.Context, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	DeleteUser(ctx context.Context, id string) error
	ToggleUserStatus(ctx context.Context, id string) (*dto.UserResponse, error)
}

// UserFlowImpl implements UserFlow
type UserFlowImpl struct {
	userRepo repository.UserRepository
	teamRepo repository.TeamRepository
	leadRepo repository.LeadRepository
	security config.SecurityConfig
	logger   *zap.Logger
}

func NewUserFlow(
	userRepo repository.UserRepository,
	teamRepo repository.TeamRepository,
	leadRepo repository.LeadRepository,
	security config.SecurityConfig,
	logger *zap.Logger,
) UserFlow {
	return &UserFlowImpl{
		userRepo: userRepo,
		teamRepo: teamRepo,
		leadRepo: leadRepo,
		security: security,
		logger:   logger,
	}
}

func userNotFound() error {
	return NewBusinessError(CodeUserNotFound, MsgUserNotFound, ErrUserNotFound)
}

func emailExists() error {
	return NewBusinessError(CodeUserEmailExists, MsgUserEmailExists, ErrUserEmailExists)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (f *UserFlowImpl) ListUsers(ctx context.Context, req *dto.ListUsersRequest) ([]dto.UserResponse, error) {
	var filter models.UserFilter
	if req.Role != "" {
		role := models.Role(req.Role)
		filter.Role = &role
	}
	if req.TeamID != "" {
		teamID, ok := parseID(req.TeamID)
		if !ok {
			return []dto.UserResponse{}, nil
		}
		filter.TeamID = &teamID
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		filter.Search = &search
	}

	users, err := f.userRepo.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, internalError(err)
	}

	items := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUserResponse(u))
	}
	return items, nil
}

func (f *UserFlowImpl) GetUser(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := f.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (f *UserFlowImpl) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	role := models.Role(req.Role)
	if !role.Valid() {
		return nil, NewBusinessError(CodeValidation, MsgInvalidRole, nil)
	}

	email := normalizeEmail(req.Email)
	existing, err := f.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, internalError(err)
	}
	if existing != nil {
		return nil, emailExists()
	}

	hash, err := f.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       utils.ToPtr(true),
	}
	if req.TeamID != nil && *req.TeamID != "" {
		teamID, err := f.ensureTeam(ctx, *req.TeamID)
		if err != nil {
			return nil, err
		}
		user.TeamID = &teamID
	}

	if err := f.userRepo.Save(ctx, user); err != nil {
		if repository.IsUniqueViolation(err, "uk_users_email") {
			return nil, emailExists()
		}
		return nil, internalError(err)
	}

	f.logger.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))

	resp := toUserResponse(user)
	return &resp, nil
}

func (f *UserFlowImpl) UpdateUser(ctx context.Context, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := f.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != user.Email {
			other, err := f.userRepo.ByEmail(ctx, email)
			if err != nil {
				return nil, internalError(err)
			}
			if other != nil && other.ID != user.ID {
				return nil, emailExists()
			}
		}
		fields["email"] = email
	}
	if req.Password != nil {
		hash, err := f.hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = hash
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		if !role.Valid() {
			return nil, NewBusinessError(CodeValidation, MsgInvalidRole, nil)
		}
		if role != user.Role {
			if err := f.guardRoleChange(ctx, user.ID, role); err != nil {
				return nil, err
			}
		}
		fields["role"] = role
	}
	if req.TeamID != nil {
		if *req.TeamID == "" {
			fields["team_id"] = nil
		} else {
			teamID, err := f.ensureTeam(ctx, *req.TeamID)
			if err != nil {
				return nil, err
			}
			fields["team_id"] = teamID
		}
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}

	if len(fields) > 0 {
		updated, err := f.userRepo.UpdateByID(ctx, user.ID, fields)
		if err != nil {
			if repository.IsUniqueViolation(err, "uk_users_email") {
				return nil, emailExists()
			}
			return nil, internalError(err)
		}
		if !updated {
			return nil, userNotFound()
		}
	}

	return f.GetUser(ctx, user.ID.String())
}

// DeleteUser refuses to orphan leads or teams
func (f *UserFlowImpl) DeleteUser(ctx context.Context, id string) error {
	userID, ok := parseID(id)
	if !ok {
		return userNotFound()
	}

	if err := f.ensureOwnsNoLeads(ctx, userID); err != nil {
		return err
	}
	if err := f.ensureLeadsNoTeam(ctx, userID); err != nil {
		return err
	}

	deleted, err := f.userRepo.DeleteByID(ctx, userID)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return NewBusinessError(CodeUserHasLeads, MsgUserHasLeads, ErrUserHasLeads)
		}
		return internalError(err)
	}
	if !deleted {
		return userNotFound()
	}

	f.logger.Info("user deleted", zap.String("user_id", userID.String()))
	return nil
}

// guardRoleChange keeps a team's leader a team leader and a lead owner a role that can own leads
func (f *UserFlowImpl) guardRoleChange(ctx context.Context, userID uuid.UUID, role models.Role) error {
	if role != models.RoleTeamLeader {
		if err := f.ensureLeadsNoTeam(ctx, userID); err != nil {
			return err
		}
	}
	if !role.CanOwnLeads() {
		return f.ensureOwnsNoLeads(ctx, userID)
	}
	return nil
}

func (f *UserFlowImpl) ensureOwnsNoLeads(ctx context.Context, userID uuid.UUID) error {
	owned, err := f.leadRepo.Count(ctx, models.LeadFilter{BrokerID: &userID})
	if err != nil {
		return internalError(err)
	}
	if owned > 0 {
		return NewBusinessError(CodeUserHasLeads, MsgUserHasLeads, ErrUserHasLeads)
	}
	return nil
}

func (f *UserFlowImpl) ensureLeadsNoTeam(ctx context.Context, userID uuid.UUID) error {
	leading, err := f.teamRepo.Exists(ctx, models.TeamFilter{LeaderID: &userID})
	if err != nil {
		return internalError(err)
	}
	if leading {
		return NewBusinessError(CodeUserLeadsTeam, MsgUserLeadsTeam, ErrUserLeadsTeam)
	}
	return nil
}

func (f *UserFlowImpl) ToggleUserStatus(ctx context.Context, id string) (*dto.UserResponse, error) {
	userID, ok := parseID(id)
	if !ok {
		return nil, userNotFound()
	}

	toggled, err := f.userRepo.ToggleActive(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}
	if !toggled {
		return nil, userNotFound()
	}

	return f.GetUser(ctx, id)
}

func (f *UserFlowImpl) findUser(ctx context.Context, id string) (*models.User, error) {
	userID, ok := parseID(id)
	if !ok {
		return nil, userNotFound()
	}
	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}
	if user == nil {
		return nil, userNotFound()
	}
	return user, nil
}

func (f *UserFlowImpl) ensureTeam(ctx context.Context, raw string) (uuid.UUID, error) {
	teamID, ok := parseID(raw)
	if !ok {
		return uuid.Nil, NewBusinessError(CodeInvalidTeam, MsgTeamNotFound, ErrTeamNotFound)
	}
	team, err := f.teamRepo.ByID(ctx, teamID)
	if err != nil {
		return uuid.Nil, internalError(err)
	}
	if team == nil {
		return uuid.Nil, NewBusinessError(CodeInvalidTeam, MsgTeamNotFound, ErrTeamNotFound)
	}
	return team.ID, nil
}

func (f *UserFlowImpl) hashPassword(password string) (string, error) {
	if len(password) < f.security.PasswordMinLength {
		return "", NewBusinessErrorf(CodeValidation, MsgPasswordTooShort, ErrPasswordTooShort, f.security.PasswordMinLength)
	}
	cost := f.security.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", NewBusinessError(CodeValidation, MsgPasswordTooLong, err)
		}
		return "", internalError(err)
	}
	return string(hash), nil
}
