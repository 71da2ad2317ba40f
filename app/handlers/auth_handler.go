package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/imobflow/crm-api/app/dto"
	businessflow "github.com/imobflow/crm-api/business_flow"
	"go.uber.org/zap"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Login(c fiber.Ctx) error
	Me(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	baseHandler
	flow businessflow.AuthFlow
}

func NewAuthHandler(flow businessflow.AuthFlow, timeout time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{baseHandler: newBaseHandler(timeout, logger), flow: flow}
}

// Login
// @Summary User login
// @Description Authenticate with e-mail and password and receive a bearer token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 403 {object} dto.APIResponse "Account inactive"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/login")
	defer cancel()

	result, err := h.flow.Login(ctx, &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Login realizado com sucesso", result)
}

// Me
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 401 {object} dto.APIResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/me")
	defer cancel()

	user, err := h.flow.Me(ctx, actor)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Usuário autenticado", user)
}
