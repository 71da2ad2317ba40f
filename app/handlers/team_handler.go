package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/imobflow/crm-api/app/dto"
	businessflow "github.com/imobflow/crm-api/business_flow"
	"go.uber.org/zap"
)

// TeamHandler serves team administration (admin only)
type TeamHandler struct {
	baseHandler
	flow businessflow.TeamFlow
}

func NewTeamHandler(flow businessflow.TeamFlow, timeout time.Duration, logger *zap.Logger) *TeamHandler {
	return &TeamHandler{baseHandler: newBaseHandler(timeout, logger), flow: flow}
}

// List Teams
// @Tags Teams
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.TeamResponse}
// @Router /api/v1/teams [get]
func (h *TeamHandler) List(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/teams")
	defer cancel()

	teams, err := h.flow.ListTeams(ctx)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Equipes encontradas", teams)
}

// Get Team
// @Tags Teams
// @Produce json
// @Security BearerAuth
// @Param id path string true "Team id"
// @Success 200 {object} dto.APIResponse{data=dto.TeamResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/teams/{id} [get]
func (h *TeamHandler) Get(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/teams/:id")
	defer cancel()

	team, err := h.flow.GetTeam(ctx, c.Params("id"))
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Equipe encontrada", team)
}

// Create Team
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateTeamRequest true "Team"
// @Success 201 {object} dto.APIResponse{data=dto.TeamResponse}
// @Failure 400 {object} dto.APIResponse "Leader is not a team leader"
// @Router /api/v1/teams [post]
func (h *TeamHandler) Create(c fiber.Ctx) error {
	var req dto.CreateTeamRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/teams")
	defer cancel()

	team, err := h.flow.CreateTeam(ctx, &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Equipe criada com sucesso", team)
}

// Update Team
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Team id"
// @Param request body dto.UpdateTeamRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.TeamResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/teams/{id} [put]
func (h *TeamHandler) Update(c fiber.Ctx) error {
	var req dto.UpdateTeamRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/teams/:id")
	defer cancel()

	team, err := h.flow.UpdateTeam(ctx, c.Params("id"), &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Equipe atualizada com sucesso", team)
}

// Delete Team
// @Tags Teams
// @Produce json
// @Security BearerAuth
// @Param id path string true "Team id"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/teams/{id} [delete]
func (h *TeamHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/teams/:id")
	defer cancel()

	if err := h.flow.DeleteTeam(ctx, c.Params("id")); err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, businessflow.MsgTeamDeleted, nil)
}
