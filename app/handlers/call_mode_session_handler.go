package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/imobflow/crm-api/app/dto"
	businessflow "github.com/imobflow/crm-api/business_flow"
	"go.uber.org/zap"
)

// CallModeSessionHandler records the caller's call-mode work sessions
type CallModeSessionHandler struct {
	baseHandler
	flow businessflow.CallModeSessionFlow
}

func NewCallModeSessionHandler(flow businessflow.CallModeSessionFlow, timeout time.Duration, logger *zap.Logger) *CallModeSessionHandler {
	return &CallModeSessionHandler{baseHandler: newBaseHandler(timeout, logger), flow: flow}
}

// Create CallModeSession
// @Tags CallMode
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCallModeSessionRequest true "Session"
// @Success 201 {object} dto.APIResponse{data=dto.CallModeSessionResponse}
// @Failure 400 {object} dto.APIResponse "End time before start time"
// @Router /api/v1/call-mode-sessions [post]
func (h *CallModeSessionHandler) Create(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}
	var req dto.CreateCallModeSessionRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/call-mode-sessions")
	defer cancel()

	session, err := h.flow.CreateSession(ctx, actor, &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Sessão registrada", session)
}

// List CallModeSessions
// @Tags CallMode
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.CallModeSessionResponse}
// @Router /api/v1/call-mode-sessions [get]
func (h *CallModeSessionHandler) List(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/call-mode-sessions")
	defer cancel()

	sessions, err := h.flow.ListSessions(ctx, actor)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Sessões encontradas", sessions)
}
