package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/app/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, services.TokenService) {
	t.Helper()
	tokens, err := services.NewTokenService(time.Hour, "crm-test", "", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)

	auth := NewAuthMiddleware(tokens)
	whoami := func(c fiber.Ctx) error {
		actor, ok := GetActorFromContext(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"id": actor.ID.String(), "role": string(actor.Role)})
	}

	app := fiber.New()
	app.Use(Metrics())
	app.Get("/me", auth.Authenticate(), whoami)
	app.Get("/admin", auth.Authenticate(), RequireAdmin(), whoami)
	app.Get("/stream", auth.AuthenticateStream(), whoami)
	return app, tokens
}

func issue(t *testing.T, tokens services.TokenService, role string) (string, uuid.UUID) {
	t.Helper()
	id := uuid.New()
	token, _, err := tokens.GenerateAccessToken(services.TokenSubject{UserID: id, Role: role})
	require.NoError(t, err)
	return token, id
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Success bool            `json:"success"`
		Error   dto.ErrorDetail `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	return body.Error.Code
}

func TestAuthenticate(t *testing.T) {
	app, tokens := newTestApp(t)
	brokerToken, brokerID := issue(t, tokens, "broker")
	unknownRole, _ := issue(t, tokens, "guest")

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+brokerToken)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, brokerID.String(), body["id"])
		assert.Equal(t, "broker", body["role"])
	})

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{name: "missing header", wantCode: "MISSING_AUTHORIZATION_HEADER"},
		{name: "wrong scheme", header: "Basic abc", wantCode: "INVALID_AUTHORIZATION_FORMAT"},
		{name: "empty token", header: "Bearer ", wantCode: "MISSING_ACCESS_TOKEN"},
		{name: "scheme only", header: "Bearer", wantCode: "MISSING_ACCESS_TOKEN"},
		{name: "scheme without separator", header: "Bearerabc", wantCode: "INVALID_AUTHORIZATION_FORMAT"},
		{name: "garbage token", header: "Bearer nope", wantCode: "TOKEN_INVALID"},
		{name: "unknown role", header: "Bearer " + unknownRole, wantCode: "TOKEN_INVALID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, tt.wantCode, errorCode(t, resp))
		})
	}

	t.Run("query token only on streams", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me?access_token="+brokerToken, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/stream?access_token="+brokerToken, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRequireAdmin(t *testing.T) {
	app, tokens := newTestApp(t)
	brokerToken, _ := issue(t, tokens, "broker")
	adminToken, _ := issue(t, tokens, "admin")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+brokerToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, resp))

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
