// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/app/services"
	"github.com/imobflow/crm-api/models"
	"github.com/imobflow/crm-api/utils"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// bearerToken reads the Authorization header. Browsers cannot set headers on an
// EventSource, so the access_token query parameter is accepted when allowQuery is set.
func bearerToken(c fiber.Ctx, allowQuery bool) (string, string) {
	authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if authHeader == "" {
		if allowQuery {
			if token := c.Query("access_token"); token != "" {
				return token, ""
			}
		}
		return "", "MISSING_AUTHORIZATION_HEADER"
	}
	// header values reach us trimmed, so "Bearer " arrives as the bare scheme
	if authHeader == "Bearer" {
		return "", "MISSING_ACCESS_TOKEN"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "INVALID_AUTHORIZATION_FORMAT"
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "MISSING_ACCESS_TOKEN"
	}
	return token, ""
}

// Authenticate validates the bearer token and stores the caller as a models.Actor
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return m.authenticate(false)
}

// AuthenticateStream is Authenticate for event streams
func (m *AuthMiddleware) AuthenticateStream() fiber.Handler {
	return m.authenticate(true)
}

func (m *AuthMiddleware) authenticate(allowQuery bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, code := bearerToken(c, allowQuery)
		if code != "" {
			return unauthorized(c, "Token não fornecido", code)
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			if errors.Is(err, services.ErrTokenExpired) {
				return unauthorized(c, "Token expirado", "TOKEN_EXPIRED")
			}
			return unauthorized(c, "Token inválido", "TOKEN_INVALID")
		}

		role := models.Role(claims.Role)
		if !role.Valid() {
			return unauthorized(c, "Token inválido", "TOKEN_INVALID")
		}

		c.Locals(utils.LocalsActor, models.Actor{
			ID:     claims.UserID,
			Role:   role,
			TeamID: claims.TeamID,
		})
		c.Locals(utils.LocalsUserID, claims.UserID)

		return c.Next()
	}
}

// RequireAdmin must run after Authenticate
func RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		actor, ok := GetActorFromContext(c)
		if !ok {
			return unauthorized(c, "Autenticação necessária", "AUTHENTICATION_REQUIRED")
		}
		if !actor.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Acesso negado",
				Error:   dto.ErrorDetail{Code: "FORBIDDEN"},
			})
		}
		return c.Next()
	}
}

// GetActorFromContext extracts the authenticated caller from the request context
func GetActorFromContext(c fiber.Ctx) (models.Actor, bool) {
	actor, ok := c.Locals(utils.LocalsActor).(models.Actor)
	return actor, ok
}
