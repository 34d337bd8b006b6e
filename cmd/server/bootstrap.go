package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/snapkart/storefront/internal/api"
	"github.com/snapkart/storefront/internal/app"
	"github.com/snapkart/storefront/internal/app/maintenance"
	iauth "github.com/snapkart/storefront/internal/auth"
	"github.com/snapkart/storefront/internal/cache"
	"github.com/snapkart/storefront/internal/database"
	"github.com/snapkart/storefront/internal/middleware"
	"github.com/snapkart/storefront/internal/otp"
	"github.com/snapkart/storefront/internal/services"
	"github.com/snapkart/storefront/pkg/logger"
	"github.com/snapkart/storefront/pkg/mail"
	"github.com/snapkart/storefront/pkg/sms"
)

// runtimeStack bundles long-lived resources used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     cache.Store
	Cleaner   *maintenance.Cleaner
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises the database, cache, delivery channels,
// services and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; emailed codes will not be delivered")
	}

	smsSender, err := sms.NewGatewaySender(cfg.SMS.GatewaySettings())
	if err != nil {
		return nil, fmt.Errorf("initialise sms gateway: %w", err)
	}
	if !cfg.SMS.Enabled {
		log.Warn("sms gateway disabled; texted codes will not be delivered")
	}

	engine, err := otp.NewEngine(stack.DB, cfg.Security.OTPPepper)
	if err != nil {
		return nil, fmt.Errorf("initialise otp engine: %w", err)
	}

	svcs, err := buildServices(stack.DB, engine, jwtSvc, mailer, smsSender, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Maintenance.Enabled {
		stack.Cleaner = maintenance.NewCleaner(stack.DB, engine.Store(),
			maintenance.WithSchedule(cfg.Maintenance.Schedule),
			maintenance.WithRetentionDays(cfg.Maintenance.RetentionDays),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	switch {
	case stack.Redis != nil:
		stack.RateStore = middleware.NewRedisRateStore(stack.Redis)
	case dbStore != nil:
		stack.RateStore = middleware.NewDatabaseRateStore(dbStore)
	}

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, cfg, svcs, stack.RateStore)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// buildServices wires the domain services with their per-flow code policies.
func buildServices(db *gorm.DB, engine *otp.Engine, jwtSvc *iauth.JWTService, mailer mail.Mailer, smsSender sms.Sender, cfg *app.Config) (api.Services, error) {
	users, err := services.NewUserService(db)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise user service: %w", err)
	}

	adminCfg, err := cfg.Auth.AdminServiceConfig()
	if err != nil {
		return api.Services{}, err
	}
	admin, err := services.NewAdminAuthService(engine, mailer, jwtSvc, adminCfg,
		services.WithAdminLoginPolicy(cfg.OTP.AdminLogin.Apply(services.DefaultAdminLoginPolicy())),
	)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise admin auth service: %w", err)
	}

	phones, err := services.NewPhoneVerificationService(engine, users, smsSender,
		services.WithPhoneVerifyPolicy(cfg.OTP.PhoneVerify.Apply(services.DefaultPhoneVerifyPolicy())),
	)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise phone verification service: %w", err)
	}

	resetOpts := []services.PasswordResetOption{
		services.WithPasswordResetPolicy(cfg.OTP.PasswordReset.Apply(services.DefaultPasswordResetPolicy())),
	}
	if cfg.OTP.ResetTokenTTL > 0 {
		resetOpts = append(resetOpts, services.WithResetTokenTTL(cfg.OTP.ResetTokenTTL))
	}
	resets, err := services.NewPasswordResetService(engine, users, mailer, resetOpts...)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise password reset service: %w", err)
	}

	returnOpts := []services.ReturnOption{
		services.WithReturnPolicy(cfg.OTP.OrderReturn.Apply(services.DefaultOrderReturnPolicy())),
	}
	if inbox := strings.TrimSpace(cfg.Email.SupportInbox); inbox != "" {
		returnOpts = append(returnOpts, services.WithSupportEmail(inbox))
	}
	returns, err := services.NewReturnService(db, engine, mailer, returnOpts...)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise return service: %w", err)
	}

	orders, err := services.NewOrderService(db)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise order service: %w", err)
	}

	return api.Services{
		Users:   users,
		Admin:   admin,
		Phones:  phones,
		Resets:  resets,
		Returns: returns,
		Orders:  orders,
	}, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if err := s.Cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if rc, ok := s.Redis.(*cache.RedisClient); ok && rc != nil {
		if err := rc.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseOptions()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
