// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/app/middleware"
	businessflow "github.com/imobflow/crm-api/business_flow"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/utils"
	"go.uber.org/zap"
)

// statusByCode maps business error codes to HTTP statuses; unknown codes are answered with 400
var statusByCode = map[string]int{
	businessflow.CodeInternal: fiber.StatusInternalServerError,

	businessflow.CodeLeadNotFound:     fiber.StatusNotFound,
	businessflow.CodeBusinessNotFound: fiber.StatusNotFound,
	businessflow.CodeClientNotFound:   fiber.StatusNotFound,
	businessflow.CodeUserNotFound:     fiber.StatusNotFound,
	businessflow.CodeTeamNotFound:     fiber.StatusNotFound,

	businessflow.CodeLeadDuplicated:          fiber.StatusConflict,
	businessflow.CodeBusinessDuplicated:      fiber.StatusConflict,
	businessflow.CodeClientCPFExists:         fiber.StatusConflict,
	businessflow.CodeClientHasSales:          fiber.StatusConflict,
	businessflow.CodeUserEmailExists:         fiber.StatusConflict,
	businessflow.CodeUserHasLeads:            fiber.StatusConflict,
	businessflow.CodeUserLeadsTeam:           fiber.StatusConflict,
	businessflow.CodeInvalidStatusTransition: fiber.StatusConflict,

	businessflow.CodeInvalidCredentials: fiber.StatusUnauthorized,
	businessflow.CodeAccountInactive:    fiber.StatusForbidden,
}

// baseHandler carries what every resource handler shares
type baseHandler struct {
	validator *validator.Validate
	timeout   time.Duration
	logger    *zap.Logger
}

func newBaseHandler(timeout time.Duration, logger *zap.Logger) baseHandler {
	if timeout <= 0 {
		timeout = utils.DefaultRequestTimeout
	}
	return baseHandler{
		validator: validator.New(),
		timeout:   timeout,
		logger:    logger,
	}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// createRequestContext derives the flow context from the request. The caller must call cancel.
func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get(fiber.HeaderUserAgent))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	return ctx, cancel
}

func requestID(c fiber.Ctx) string {
	if id, ok := c.Locals(utils.LocalsRequestID).(string); ok && id != "" {
		return id
	}
	return c.Get(utils.RequestIDHeader)
}

// actor returns the authenticated caller set by the auth middleware
func (h *baseHandler) actor(c fiber.Ctx) (models.Actor, bool) {
	return middleware.GetActorFromContext(c)
}

func (h *baseHandler) authenticationRequired(c fiber.Ctx) error {
	return h.ErrorResponse(c, fiber.StatusUnauthorized, "Autenticação necessária", "AUTHENTICATION_REQUIRED", nil)
}

// validate runs struct validation. On failure a 400 listing every failed field is written
// and ok is false; err is only the write error.
func (h *baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	err := h.validator.Struct(req)
	if err == nil {
		return true, nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Dados inválidos", businessflow.CodeValidation, err.Error())
	}
	details := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		details = append(details, getValidationErrorMessage(fe))
	}
	return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Dados inválidos", businessflow.CodeValidation, details)
}

// bindJSON decodes and validates the body. When ok is false the error response has
// already been written and the handler must return err as is.
func (h *baseHandler) bindJSON(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Corpo da requisição inválido", "INVALID_REQUEST", err.Error())
	}
	return h.validate(c, req)
}

// bindQuery is bindJSON for the query string
func (h *baseHandler) bindQuery(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().Query(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Parâmetros inválidos", "INVALID_QUERY", err.Error())
	}
	return h.validate(c, req)
}

// flowError writes the response for an error returned by a flow.
// Unclassified errors become a generic 500 and are logged with their cause.
func (h *baseHandler) flowError(c fiber.Ctx, err error) error {
	be, ok := businessflow.AsBusinessError(err)
	if !ok || be.Code == businessflow.CodeInternal {
		h.logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("request_id", requestID(c)),
			zap.Error(err),
		)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, businessflow.MsgInternal, businessflow.CodeInternal, nil)
	}

	status, known := statusByCode[be.Code]
	if !known {
		status = fiber.StatusBadRequest
	}
	return h.ErrorResponse(c, status, be.Message, be.Code, nil)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " é obrigatório"
	case "email":
		return "E-mail inválido"
	case "min":
		return err.Field() + " deve ter ao menos " + err.Param()
	case "max":
		return err.Field() + " deve ter no máximo " + err.Param()
	case "len":
		return err.Field() + " deve ter exatamente " + err.Param() + " caracteres"
	case "oneof":
		return err.Field() + " deve ser um de: " + err.Param()
	case "uuid":
		return err.Field() + " deve ser um identificador válido"
	case "gtefield":
		return fmt.Sprintf("%s deve ser posterior a %s", err.Field(), err.Param())
	default:
		return err.Field() + " é inválido"
	}
}
