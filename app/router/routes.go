// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/app/handlers"
	"github.com/imobflow/crm-api/app/middleware"
	"github.com/imobflow/crm-api/config"
	"github.com/imobflow/crm-api/docs"
	"github.com/imobflow/crm-api/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthPath = "/api/v1/health"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(ctx context.Context) error
	GetApp() *fiber.App
}

// Handlers groups every resource handler the router mounts
type Handlers struct {
	Auth            *handlers.AuthHandler
	Lead            *handlers.LeadHandler
	Business        *handlers.BusinessHandler
	User            *handlers.UserHandler
	Team            *handlers.TeamHandler
	Client          *handlers.ClientHandler
	CallModeSession *handlers.CallModeSessionHandler
	Event           *handlers.EventHandler
}

// Pinger reports whether a dependency is reachable; *sql.DB satisfies it
type Pinger interface {
	PingContext(ctx context.Context) error
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      *config.AppConfig
	handlers Handlers
	auth     *middleware.AuthMiddleware
	db       Pinger
	logger   *zap.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.AppConfig, h Handlers, auth *middleware.AuthMiddleware, db Pinger, logger *zap.Logger) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Imobflow CRM API",
		ServerHeader: "imobflow-crm",
		ErrorHandler: errorHandler(logger),
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ProxyHeader:  cfg.Server.ProxyHeader,
		TrustProxy:   len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		},
	})

	return &FiberRouter{
		app:      app,
		cfg:      cfg,
		handlers: h,
		auth:     auth,
		db:       db,
		logger:   logger,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")
	api.Get("/health", r.healthCheck)
	api.Get("/swagger.json", r.serveSwaggerJSON)

	api.Use(r.rateLimiter(r.cfg.Security.GlobalRateLimit, func(c fiber.Ctx) bool {
		return c.Path() == healthPath
	}))

	auth := api.Group("/auth")
	auth.Post("/login", r.rateLimiter(r.cfg.Security.AuthRateLimit, nil), r.handlers.Auth.Login)
	auth.Get("/me", r.auth.Authenticate(), r.handlers.Auth.Me)

	// the event stream accepts the token as a query parameter, so it is mounted before the header-only group
	api.Get("/events", r.auth.AuthenticateStream(), r.handlers.Event.Stream)

	protected := api.Group("", r.auth.Authenticate())

	leads := protected.Group("/leads")
	leads.Get("/", r.handlers.Lead.List)
	leads.Post("/", r.handlers.Lead.Create)
	leads.Get("/export", r.handlers.Lead.Export)
	leads.Get("/:id", r.handlers.Lead.Get)
	leads.Put("/:id", r.handlers.Lead.Update)
	leads.Delete("/:id", r.handlers.Lead.Delete)
	leads.Patch("/:id/status", r.handlers.Lead.UpdateStatus)

	business := protected.Group("/business")
	business.Get("/", r.handlers.Business.List)
	business.Post("/", r.handlers.Business.Create)
	business.Get("/:id", r.handlers.Business.Get)
	business.Put("/:id", r.handlers.Business.Update)
	business.Delete("/:id", r.handlers.Business.Delete)
	business.Patch("/:id/status", r.handlers.Business.UpdateStatus)

	clients := protected.Group("/clients")
	clients.Get("/", r.handlers.Client.List)
	clients.Post("/", r.handlers.Client.Create)
	clients.Get("/:id", r.handlers.Client.Get)
	clients.Put("/:id", r.handlers.Client.Update)
	clients.Delete("/:id", r.handlers.Client.Delete)

	sessions := protected.Group("/call-mode-sessions")
	sessions.Get("/", r.handlers.CallModeSession.List)
	sessions.Post("/", r.handlers.CallModeSession.Create)

	users := protected.Group("/users", middleware.RequireAdmin())
	users.Get("/", r.handlers.User.List)
	users.Post("/", r.handlers.User.Create)
	users.Get("/:id", r.handlers.User.Get)
	users.Put("/:id", r.handlers.User.Update)
	users.Delete("/:id", r.handlers.User.Delete)
	users.Patch("/:id/toggle-status", r.handlers.User.ToggleStatus)

	teams := protected.Group("/teams", middleware.RequireAdmin())
	teams.Get("/", r.handlers.Team.List)
	teams.Post("/", r.handlers.Team.Create)
	teams.Get("/:id", r.handlers.Team.Get)
	teams.Put("/:id", r.handlers.Team.Update)
	teams.Delete("/:id", r.handlers.Team.Delete)

	r.app.Use(r.notFoundHandler)

	r.logger.Info("routes configured", zap.Int("handlers", int(r.app.HandlersCount())))
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    utils.RequestIDHeader,
		Generator: generateRequestID,
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("panic recovered",
				zap.Any("error", e),
				zap.String("request_id", requestid.FromContext(c)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
			)
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginResourcePolicy: "cross-origin",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{utils.RequestIDHeader, fiber.HeaderContentDisposition},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				// compressing an event stream buffers it
				return strings.HasSuffix(c.Path(), "/events")
			},
		}))
	}

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics(r.cfg.Metrics.Path, healthPath))
	}

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath || c.Path() == r.cfg.Metrics.Path
		},
	}))
}

func (r *FiberRouter) rateLimiter(limit int, next func(c fiber.Ctx) bool) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Muitas requisições. Tente novamente mais tarde.",
				Error:   dto.ErrorDetail{Code: "RATE_LIMIT_EXCEEDED"},
			})
		},
		Next: next,
	})
}

func (r *FiberRouter) Start(address string) error {
	r.logger.Info("starting server", zap.String("address", address))
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

func (r *FiberRouter) Shutdown(ctx context.Context) error {
	return r.app.ShutdownWithContext(ctx)
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	database := "ok"
	health := "healthy"
	status := fiber.StatusOK
	if r.db != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		if err := r.db.PingContext(ctx); err != nil {
			database = "unreachable"
			health = "degraded"
			status = fiber.StatusServiceUnavailable
			r.logger.Warn("health check failed", zap.Error(err))
		}
	}

	return c.Status(status).JSON(dto.APIResponse{
		Success: status == fiber.StatusOK,
		Message: "Service health",
		Data: fiber.Map{
			"status":    health,
			"database":  database,
			"timestamp": utils.UTCNow().Unix(),
			"service":   "imobflow-crm-api",
		},
	})
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(docs.SwaggerInfo.ReadDoc())
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "Rota não encontrada",
		Error: dto.ErrorDetail{
			Code:    "ROUTE_NOT_FOUND",
			Details: fiber.Map{"path": c.Path(), "method": c.Method()},
		},
	})
}

// errorHandler answers errors that escaped the handlers, mostly fiber's own (405, body too large)
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Erro interno do servidor"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			log.Error("unhandled error",
				zap.String("request_id", requestid.FromContext(c)),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		return c.Status(code).JSON(dto.APIResponse{
			Success: false,
			Message: message,
			Error:   dto.ErrorDetail{Code: "HTTP_" + strconv.Itoa(code)},
		})
	}
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
