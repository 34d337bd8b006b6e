package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/snapkart/storefront/internal/app"
	iauth "github.com/snapkart/storefront/internal/auth"
	"github.com/snapkart/storefront/internal/handlers"
	"github.com/snapkart/storefront/internal/middleware"
	"github.com/snapkart/storefront/internal/services"
)

// Services bundles the domain services the router exposes over HTTP.
type Services struct {
	Users   *services.UserService
	Admin   *services.AdminAuthService
	Phones  *services.PhoneVerificationService
	Resets  *services.PasswordResetService
	Returns *services.ReturnService
	Orders  *services.OrderService
}

func (s Services) validate() error {
	switch {
	case s.Users == nil:
		return fmt.Errorf("user service must be provided")
	case s.Admin == nil:
		return fmt.Errorf("admin auth service must be provided")
	case s.Phones == nil:
		return fmt.Errorf("phone verification service must be provided")
	case s.Resets == nil:
		return fmt.Errorf("password reset service must be provided")
	case s.Returns == nil:
		return fmt.Errorf("return service must be provided")
	case s.Orders == nil:
		return fmt.Errorf("order service must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, svcs Services, rateStore middleware.RateStore) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if err := svcs.validate(); err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	if cfg.Server.RateLimit.Enabled {
		if rateStore == nil {
			// Process-lifetime fallback; its sweeper stops with the server.
			rateStore = middleware.NewMemoryRateStore()
		}
		r.Use(middleware.RateLimit(rateStore, cfg.Server.RateLimit.MaxRequests, cfg.Server.RateLimit.Window))
	}

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(svcs.Users, jwt)
	adminHandler := handlers.NewAdminAuthHandler(svcs.Admin)
	resetHandler := handlers.NewPasswordResetHandler(svcs.Resets)
	phoneHandler := handlers.NewPhoneVerificationHandler(svcs.Phones)
	returnHandler := handlers.NewReturnHandler(svcs.Returns)
	ordersHandler := handlers.NewOrdersHandler(svcs.Orders)

	// Public auth routes. The admin and password reset endpoints multiplex
	// their whole code flow behind a single action-dispatched POST.
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/admin", adminHandler.Handle)
		auth.POST("/password-reset", resetHandler.Handle)
	}

	requireAuth := middleware.Auth(jwt)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/profile", authHandler.Profile)
	api.POST("/profile/phone", phoneHandler.Handle)

	orders := api.Group("/orders")
	{
		orders.GET("", ordersHandler.List)
		orders.GET("/:id", ordersHandler.Get)
		orders.POST("/:id/return", returnHandler.Handle)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/return-requests", returnHandler.ListPending)
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
