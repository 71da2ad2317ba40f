package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/imobflow/crm-api/app/dto"
	businessflow "github.com/imobflow/crm-api/business_flow"
	"github.com/imobflow/crm-api/utils"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LeadHandlerInterface defines the contract for lead handlers
type LeadHandlerInterface interface {
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	UpdateStatus(c fiber.Ctx) error
	Export(c fiber.Ctx) error
}

// LeadHandler handles lead-related HTTP requests
type LeadHandler struct {
	baseHandler
	flow businessflow.LeadFlow
}

func NewLeadHandler(flow businessflow.LeadFlow, timeout time.Duration, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{baseHandler: newBaseHandler(timeout, logger), flow: flow}
}

// List Leads
// @Description List the leads visible to the caller. Admins see every lead, team leaders their own and their team's, brokers their own.
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param status query string false "Lead status"
// @Param source query string false "Lead source"
// @Param search query string false "Name or phone fragment"
// @Param brokerId query string false "Owner broker id"
// @Param page query integer false "Page number"
// @Param pageSize query integer false "Items per page"
// @Success 200 {object} dto.APIResponse{data=[]dto.LeadResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/leads [get]
func (h *LeadHandler) List(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}
	var req dto.ListLeadsRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads")
	defer cancel()

	items, err := h.flow.ListLeads(ctx, actor, &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Leads encontrados", items)
}

// Get Lead
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lead id"
// @Success 200 {object} dto.APIResponse{data=dto.LeadResponse}
// @Failure 404 {object} dto.APIResponse "Missing or outside the caller's scope"
// @Router /api/v1/leads/{id} [get]
func (h *LeadHandler) Get(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/:id")
	defer cancel()

	lead, err := h.flow.GetLead(ctx, actor, c.Params("id"))
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Lead encontrado", lead)
}

// Create Lead
// @Description Create a lead with one business per selected development. A phone that already belongs to a lead reuses that lead.
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateLeadRequest true "Lead"
// @Success 201 {object} dto.APIResponse{data=dto.CreateLeadResponse}
// @Failure 400 {object} dto.APIResponse "No development selected or invalid broker"
// @Failure 409 {object} dto.APIResponse "Lead already has one of the developments"
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/leads [post]
func (h *LeadHandler) Create(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}
	var req dto.CreateLeadRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads")
	defer cancel()

	result, err := h.flow.CreateLead(ctx, actor, &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Lead criado com sucesso", result)
}

// Update Lead
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lead id"
// @Param request body dto.UpdateLeadRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.LeadResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/leads/{id} [put]
func (h *LeadHandler) Update(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}
	var req dto.UpdateLeadRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/:id")
	defer cancel()

	lead, err := h.flow.UpdateLead(ctx, actor, c.Params("id"), &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Lead atualizado com sucesso", lead)
}

// Delete Lead
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lead id"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/leads/{id} [delete]
func (h *LeadHandler) Delete(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/:id")
	defer cancel()

	if err := h.flow.DeleteLead(ctx, actor, c.Params("id")); err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, businessflow.MsgLeadDeleted, nil)
}

// UpdateStatus Lead
// @Description Change a lead's status and record the contact time
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Lead id"
// @Param request body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=dto.LeadResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse "Transition not allowed"
// @Router /api/v1/leads/{id}/status [patch]
func (h *LeadHandler) UpdateStatus(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}
	var req dto.UpdateStatusRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/:id/status")
	defer cancel()

	lead, err := h.flow.UpdateLeadStatus(ctx, actor, c.Params("id"), &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Status atualizado com sucesso", lead)
}

// Export Leads
// @Description Download the visible leads matching the filters as an xlsx sheet
// @Tags Leads
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "Lead status"
// @Param source query string false "Lead source"
// @Param search query string false "Name or phone fragment"
// @Param brokerId query string false "Owner broker id"
// @Success 200 {file} file
// @Failure 500 {object} dto.APIResponse
// @Router /api/v1/leads/export [get]
func (h *LeadHandler) Export(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}
	var req dto.ListLeadsRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/leads/export")
	defer cancel()

	buf, err := h.flow.ExportLeads(ctx, actor, &req)
	if err != nil {
		return h.flowError(c, err)
	}

	filename := fmt.Sprintf("leads-%s.xlsx", utils.UTCNow().Format("20060102-150405"))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}
