package businessflow

import (
	"context"

	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/app/services"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthFlow authenticates operators and resolves the current user
type AuthFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Me(ctx context.Context, actor models.Actor) (*dto.UserResponse, error)
}

// AuthFlowImpl implements AuthFlow
type AuthFlowImpl struct {
	userRepo     repository.UserRepository
	tokenService services.TokenService
	logger       *zap.Logger
}

func NewAuthFlow(userRepo repository.UserRepository, tokenService services.TokenService, logger *zap.Logger) AuthFlow {
	return &AuthFlowImpl{userRepo: userRepo, tokenService: tokenService, logger: logger}
}

func invalidCredentials() error {
	return NewBusinessError(CodeInvalidCredentials, MsgInvalidCredentials, ErrInvalidCredentials)
}

// Login checks the password and issues an access token carrying the user's role and team
func (f *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := f.userRepo.ByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, internalError(err)
	}
	if user == nil {
		return nil, invalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		f.logger.Info("login rejected", zap.String("user_id", user.ID.String()))
		return nil, invalidCredentials()
	}

	if !user.IsActive() {
		return nil, NewBusinessError(CodeAccountInactive, MsgAccountInactive, ErrAccountInactive)
	}

	token, expiresAt, err := f.tokenService.GenerateAccessToken(services.TokenSubject{
		UserID: user.ID,
		Role:   string(user.Role),
		TeamID: user.TeamID,
	})
	if err != nil {
		return nil, internalError(err)
	}

	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(f.tokenService.AccessTokenTTL().Seconds()),
		ExpiresAt:   expiresAt,
		User:        toUserResponse(user),
	}, nil
}

func (f *AuthFlowImpl) Me(ctx context.Context, actor models.Actor) (*dto.UserResponse, error) {
	user, err := f.userRepo.ByID(ctx, actor.ID)
	if err != nil {
		return nil, internalError(err)
	}
	if user == nil {
		return nil, userNotFound()
	}
	resp := toUserResponse(user)
	return &resp, nil
}
