package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/portfolio-bff/backend/internal/api/handlers"
	"github.com/portfolio-bff/backend/internal/metrics"
	"github.com/portfolio-bff/backend/internal/middleware/ratelimit"
	"github.com/portfolio-bff/backend/internal/middleware/security"
	"github.com/portfolio-bff/backend/internal/middleware/validation"
)

type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	BodyLimit      int
	AllowedOrigins []string
	IsDevelopment  bool
	// ProxyHeader names the header carrying the client address when the
	// server runs behind a proxy. Empty uses the socket peer address.
	ProxyHeader string
	// TrustedProxies restricts ProxyHeader to requests from these addresses.
	TrustedProxies []string
	// RequestLog enables the per-request access log.
	RequestLog  bool
	ChatLimiter *ratelimit.RateLimiter
}

type Handlers struct {
	System      *handlers.SystemHandler
	Chat        *handlers.ChatHandler
	WebSocket   *handlers.WebSocketHandler
	Reviews     *handlers.ReviewHandler
	Submissions *handlers.SubmissionHandler
	Auth        *handlers.AuthHandler
	Projects    *handlers.ProjectHandler
	Weather     *handlers.WeatherHandler
}

func NewApp(opts Options, h Handlers) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		BodyLimit:    opts.BodyLimit,

		ProxyHeader:             opts.ProxyHeader,
		EnableIPValidation:      opts.ProxyHeader != "",
		EnableTrustedProxyCheck: len(opts.TrustedProxies) > 0,
		TrustedProxies:          opts.TrustedProxies,
	})

	app.Use(recover.New())
	if opts.RequestLog {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(opts.AllowedOrigins, ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: !containsWildcard(opts.AllowedOrigins),
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: opts.AllowedOrigins,
		IsDevelopment:  opts.IsDevelopment,
	}))
	app.Use(validation.Middleware(validation.Config{}))

	app.Get("/", h.System.Root)
	app.Get("/db-status", h.System.DBStatus)
	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api")
	api.Get("/health", h.System.Health)

	chat := []fiber.Handler{h.Chat.Chat}
	chatWS := []fiber.Handler{websocket.New(h.WebSocket.HandleConnection)}
	if opts.ChatLimiter != nil {
		chat = append([]fiber.Handler{opts.ChatLimiter.Middleware()}, chat...)
		chatWS = append([]fiber.Handler{opts.ChatLimiter.Middleware()}, chatWS...)
	}
	api.Post("/chat", chat...)

	api.Use("/chat/ws", h.WebSocket.Upgrade)
	api.Get("/chat/ws", chatWS...)

	reviews := api.Group("/reviews")
	reviews.Get("/", h.Reviews.List)
	reviews.Get("/stats", h.Reviews.Stats)
	reviews.Get("/category/:category", h.Reviews.ByCategory)
	reviews.Post("/", h.Reviews.Create)
	reviews.Put("/:id", h.Reviews.Update)
	reviews.Delete("/:id", h.Reviews.Delete)

	api.Post("/guests", h.Submissions.CreateGuest)
	api.Post("/contact", h.Submissions.Contact)

	references := api.Group("/references")
	references.Post("/", h.Submissions.CreateReference)
	references.Get("/", h.Submissions.ListReferences)
	references.Get("/:id", h.Submissions.GetReference)
	references.Put("/:id", h.Submissions.UpdateReference)
	references.Delete("/:id", h.Submissions.DeleteReference)

	api.Post("/register", h.Auth.Register)
	api.Post("/login", h.Auth.Login)
	api.Get("/profile", h.Auth.RequireToken, h.Auth.Profile)

	api.Post("/projects/:id/like", h.Projects.Like)
	api.Post("/projects/:id/comment", h.Projects.Comment)
	api.Get("/uk-cities", h.Projects.UKCities)

	api.Get("/weather/current", h.Weather.Current)
	api.Get("/weather/forecast", h.Weather.Forecast)

	return app
}

func containsWildcard(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
