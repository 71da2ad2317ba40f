package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/imobflow/crm-api/app/dto"
	businessflow "github.com/imobflow/crm-api/business_flow"
	"go.uber.org/zap"
)

// UserHandler serves user administration. Routes are admin only.
type UserHandler struct {
	baseHandler
	flow businessflow.UserFlow
}

func NewUserHandler(flow businessflow.UserFlow, timeout time.Duration, logger *zap.Logger) *UserHandler {
	return &UserHandler{baseHandler: newBaseHandler(timeout, logger), flow: flow}
}

// List Users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param role query string false "admin, teamLeader or broker"
// @Param teamId query string false "Team id"
// @Param search query string false "Name or e-mail fragment"
// @Success 200 {object} dto.APIResponse{data=[]dto.UserResponse}
// @Failure 403 {object} dto.APIResponse
// @Router /api/v1/users [get]
func (h *UserHandler) List(c fiber.Ctx) error {
	var req dto.ListUsersRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/users")
	defer cancel()

	users, err := h.flow.ListUsers(ctx, &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Usuários encontrados", users)
}

// Get User
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) Get(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/users/:id")
	defer cancel()

	user, err := h.flow.GetUser(ctx, c.Params("id"))
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Usuário encontrado", user)
}

// Create User
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateUserRequest true "User"
// @Success 201 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse "E-mail already registered"
// @Router /api/v1/users [post]
func (h *UserHandler) Create(c fiber.Ctx) error {
	var req dto.CreateUserRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/users")
	defer cancel()

	user, err := h.flow.CreateUser(ctx, &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Usuário criado com sucesso", user)
}

// Update User
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Param request body dto.UpdateUserRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/users/{id} [put]
func (h *UserHandler) Update(c fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/users/:id")
	defer cancel()

	user, err := h.flow.UpdateUser(ctx, c.Params("id"), &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Usuário atualizado com sucesso", user)
}

// Delete User
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse "User still owns leads or leads a team"
// @Router /api/v1/users/{id} [delete]
func (h *UserHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/users/:id")
	defer cancel()

	if err := h.flow.DeleteUser(ctx, c.Params("id")); err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, businessflow.MsgUserDeleted, nil)
}

// ToggleStatus User
// @Description Flip the active flag; inactive users cannot log in
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/users/{id}/toggle-status [patch]
func (h *UserHandler) ToggleStatus(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/users/:id/toggle-status")
	defer cancel()

	user, err := h.flow.ToggleUserStatus(ctx, c.Params("id"))
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Status do usuário atualizado", user)
}
