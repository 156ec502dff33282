package http

import (
	"context"
	"log/slog"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// UserStore is everything the API needs from user persistence.
type UserStore interface {
	handlers.UsersStore
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type Deps struct {
	Users  UserStore
	Tokens *auth.Manager
	// Prom is optional; without it /metrics is not served.
	Prom   *observability.Prom
	Checks []handlers.ReadinessCheck
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.CustomRecovery(func(ctx *gin.Context, rec any) {
		log.ErrorContext(ctx.Request.Context(), "panic recovered", "panic", rec, "path", ctx.Request.URL.Path)
		handlers.RespondInternal(ctx, nil, "Internal server error")
		ctx.Abort()
	}))
	r.Use(otelgin.Middleware(cfg.OTelServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.ErrorLogger(log))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	if cfg.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	}

	// health
	h := handlers.NewHealthHandler(deps.Checks...)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	var loginObs handlers.LoginObserver
	if deps.Prom != nil {
		r.GET("/metrics", deps.Prom.Handler())
		loginObs = deps.Prom
	}

	// Wire up handlers
	verifier := auth.NewCredentialVerifier(deps.Users)
	authHandler := handlers.NewAuthHandler(verifier, deps.Tokens, loginObs, log)
	usersHandler := handlers.NewUsersHandler(deps.Users, log)

	r.POST("/auth/login", middlewares.RequireJSON(), authHandler.Login)

	// everything below needs a bearer token; the token check runs before the body check
	authMW := middlewares.NewAuthMiddleware(deps.Tokens)
	protected := r.Group("/")
	protected.Use(authMW.RequireAuth(), middlewares.RequireJSON())
	{
		protected.GET("/users", usersHandler.ListUsers)
		protected.POST("/users", usersHandler.CreateUser)
		protected.GET("/user/:id", usersHandler.GetUser)
		protected.PUT("/user/:id", usersHandler.UpdateUser)
		protected.DELETE("/user/:id", usersHandler.DeleteUser)
	}

	return r
}
