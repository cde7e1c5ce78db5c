package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mtsatou/mte-core/internal/core/port"
	"github.com/mtsatou/mte-core/internal/infra/config"
	"github.com/mtsatou/mte-core/internal/transport/http/handlers"
	"github.com/mtsatou/mte-core/internal/transport/http/middleware"
	"github.com/mtsatou/mte-core/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Verification *usecase.VerificationService
	Cache        *usecase.CacheService
	RateLimiter  *usecase.RateLimiter
	Users        port.UserRepository
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Services ServiceSet
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)

	healthHandler := handlers.NewHealthHandler(deps.Services.Cache)
	r.GET("/healthz", healthHandler.Status)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		usersGroup := api.Group("/users")

		authHandler := handlers.NewAuthHandler(deps.Services.Auth)
		authHandler.RegisterRoutes(usersGroup, buildRateLimit(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts)...)

		userHandler := handlers.NewUserHandler(deps.Services.Users)
		profileGroup := usersGroup.Group("")
		profileGroup.Use(authMiddleware)
		userHandler.RegisterRoutes(profileGroup,
			buildProfileCache(deps),
			buildProfileInvalidation(deps),
		)

		verificationGroup := api.Group("/verification")
		verificationHandler := handlers.NewVerificationHandler(deps.Services.Verification)
		verificationHandler.RegisterRoutes(verificationGroup,
			buildRateLimit(deps, "verification_send_ip", deps.Config.RateLimit.VerificationMaxRequests)...)
	}

	return r
}

func buildRateLimit(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.Services.RateLimiter == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{middleware.RateLimit(deps.Services.RateLimiter, deps.Logger, rule)}
}

func buildProfileCache(deps Dependencies) []gin.HandlerFunc {
	if deps.Services.Cache == nil {
		return nil
	}

	ttl := deps.Config.Redis.DefaultTTL
	return []gin.HandlerFunc{
		middleware.CacheResponse(deps.Services.Cache, deps.Logger, ttl, middleware.UserScopedCacheKey()),
	}
}

func buildProfileInvalidation(deps Dependencies) []gin.HandlerFunc {
	if deps.Services.Cache == nil {
		return nil
	}

	return []gin.HandlerFunc{
		middleware.InvalidateUserCache(deps.Services.Cache, deps.Logger),
	}
}
