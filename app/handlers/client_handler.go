package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/imobflow/crm-api/app/dto"
	businessflow "github.com/imobflow/crm-api/business_flow"
	"go.uber.org/zap"
)

// ClientHandler serves buyers
type ClientHandler struct {
	baseHandler
	flow businessflow.ClientFlow
}

func NewClientHandler(flow businessflow.ClientFlow, timeout time.Duration, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{baseHandler: newBaseHandler(timeout, logger), flow: flow}
}

// List Clients
// @Tags Clients
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or CPF fragment"
// @Success 200 {object} dto.APIResponse{data=[]dto.ClientResponse}
// @Router /api/v1/clients [get]
func (h *ClientHandler) List(c fiber.Ctx) error {
	var req dto.ListClientsRequest
	if ok, err := h.bindQuery(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients")
	defer cancel()

	clients, err := h.flow.ListClients(ctx, &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Clientes encontrados", clients)
}

// Get Client
// @Tags Clients
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client id"
// @Success 200 {object} dto.APIResponse{data=dto.ClientResponse}
// @Failure 404 {object} dto.APIResponse
// @Router /api/v1/clients/{id} [get]
func (h *ClientHandler) Get(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:id")
	defer cancel()

	client, err := h.flow.GetClient(ctx, c.Params("id"))
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Cliente encontrado", client)
}

// Create Client
// @Tags Clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateClientRequest true "Client"
// @Success 201 {object} dto.APIResponse{data=dto.ClientResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse "CPF already registered"
// @Router /api/v1/clients [post]
func (h *ClientHandler) Create(c fiber.Ctx) error {
	var req dto.CreateClientRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients")
	defer cancel()

	client, err := h.flow.CreateClient(ctx, &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Cliente criado com sucesso", client)
}

// Update Client
// @Tags Clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client id"
// @Param request body dto.UpdateClientRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.ClientResponse}
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse
// @Router /api/v1/clients/{id} [put]
func (h *ClientHandler) Update(c fiber.Ctx) error {
	var req dto.UpdateClientRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:id")
	defer cancel()

	client, err := h.flow.UpdateClient(ctx, c.Params("id"), &req)
	if err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Cliente atualizado com sucesso", client)
}

// Delete Client
// @Tags Clients
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client id"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 409 {object} dto.APIResponse "Client has sales"
// @Router /api/v1/clients/{id} [delete]
func (h *ClientHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/clients/:id")
	defer cancel()

	if err := h.flow.DeleteClient(ctx, c.Params("id")); err != nil {
		return h.flowError(c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, businessflow.MsgClientDeleted, nil)
}
