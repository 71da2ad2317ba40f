package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/imobflow/crm-api/app/dto"
	businessflow "github.com/imobflow/crm-api/business_flow"
	"go.uber.org/zap"
)

// BusinessHandlerInterface defines the contract for business handlers
type BusinessHandlerInterface interface {
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	UpdateStatus(c fiber.Ctx) error
}

// BusinessHandler serves the business ("negócio") resource. Visibility follows the parent lead.
type BusinessHandler struct {
	baseHandler
	flow businessflow.BusinessFlow
}

func NewBusinessHandler(flow businessflow.BusinessFlow, timeout time.Duration, logger *zap.Logger) *BusinessHandler {
	return &BusinessHandler{baseHandler: newBaseHandler(timeout, logger), flow: flow}
}

// List Business
// @Tags Business
// @Produce json
// @Security BearerAuth
// @Param status query string false "Business status"
// @Param leadId query string false "Lead id"
// @Param developmentId query string false "Development id"
// @Param page query integer false "Page number"
// @Param pageSize query integer false "Items per page"
// @Success 200 {object} dto.APIResponse{data=[]dto.BusinessResponse}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/business [get]
func (h *BusinessHandler) List(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}
	var req dto.ListBusinessRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/business")
	defer cancel()

	items, err := h.flow.ListBusiness(ctx, actor, &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Negócios encontrados", items)
}

// Get Business
// @Tags Business
// @Produce json
// @Security BearerAuth
// @Param id path string true "Business id"
// @Success 200 {object} dto.APIResponse{data=dto.BusinessResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/business/{id} [get]
func (h *BusinessHandler) Get(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/business/:id")
	defer cancel()

	business, err := h.flow.GetBusiness(ctx, actor, c.Params("id"))
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Negócio encontrado", business)
}

// Create Business
// @Tags Business
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateBusinessRequest true "Business"
// @Success 201 {object} dto.APIResponse{data=dto.BusinessResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Lead missing or outside the caller's scope"
// @Failure 409 {object} dto.APIResponse "Lead already has this development"
// @Router /api/v1/business [post]
func (h *BusinessHandler) Create(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}
	var req dto.CreateBusinessRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/business")
	defer cancel()

	business, err := h.flow.CreateBusiness(ctx, actor, &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Negócio criado com sucesso", business)
}

// Update Business
// @Tags Business
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Business id"
// @Param request body dto.UpdateBusinessRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.BusinessResponse}
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/business/{id} [put]
func (h *BusinessHandler) Update(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}
	var req dto.UpdateBusinessRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/business/:id")
	defer cancel()

	business, err := h.flow.UpdateBusiness(ctx, actor, c.Params("id"), &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Negócio atualizado com sucesso", business)
}

// Delete Business
// @Tags Business
// @Produce json
// @Security BearerAuth
// @Param id path string true "Business id"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/business/{id} [delete]
func (h *BusinessHandler) Delete(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/business/:id")
	defer cancel()

	if err := h.flow.DeleteBusiness(ctx, actor, c.Params("id")); err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, businessflow.MsgBusinessDeleted, nil)
}

// UpdateStatus Business
// @Tags Business
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Business id"
// @Param request body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=dto.BusinessResponse}
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse "Transition not allowed"
// @Router /api/v1/business/{id}/status [patch]
func (h *BusinessHandler) UpdateStatus(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}
	var req dto.UpdateStatusRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/business/:id/status")
	defer cancel()

	business, err := h.flow.UpdateBusinessStatus(ctx, actor, c.Params("id"), &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Status atualizado com sucesso", business)
}
