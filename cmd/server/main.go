package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/barberbook/barbershop-api/internal/auth"
	"github.com/barberbook/barbershop-api/internal/config"
	"github.com/barberbook/barbershop-api/internal/database"
	"github.com/barberbook/barbershop-api/internal/handler"
	"github.com/barberbook/barbershop-api/internal/middleware"
	"github.com/barberbook/barbershop-api/internal/queue"
	"github.com/barberbook/barbershop-api/internal/repository"
	"github.com/barberbook/barbershop-api/internal/router"
	queue_publisher "github.com/barberbook/barbershop-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}

	rdb, err := config.NewRedisClient()
	if err != nil {
		// The blacklist is a security control, not a cache: refuse to start
		// without it.
		log.Fatalf("redis: %v", err)
	}

	users := repository.NewUserRepo(db)
	shops := repository.NewBarbershopRepo(db)
	services := repository.NewServiceRepo(db)
	appts := repository.NewAppointmentRepo(db)
	blacklist := repository.NewBlacklistRepo(rdb)

	tokenCfg := auth.Config{
		Secret:     cfg.JWTSecret,
		AccessTTL:  time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTL: time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
	}
	issuer := auth.NewIssuer(tokenCfg)
	validator := auth.NewValidator(tokenCfg, blacklist)
	verifier := auth.NewCredentialVerifier(users)

	authHandler := handler.NewAuthHandler(verifier, issuer, validator, blacklist, users)
	userHandler := handler.NewUserHandler(users, cfg.BcryptCost)
	shopHandler := handler.NewBarbershopHandler(shops, services)
	apptHandler := handler.NewAppointmentHandler(appts, shops, services, users, queue_publisher.PublishAppointmentBooked)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(middleware.UsageTracker(logger, queue_publisher.PublishAPIUsage))

	router.RegisterRoutes(e)
	router.RegisterAPI(e, authHandler, userHandler, shopHandler, apptHandler, validator,
		middleware.RateLimit(config.LoadRateLimitConfig(), rdb),
		middleware.ResponseCache(config.LoadCacheConfig(), rdb))

	// Drain usage events to logs/api_usage.log in the background.
	go func() {
		if err := queue.StartUsageConsumer(); err != nil {
			logger.Error("usage consumer stopped", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// newLogger builds a production logger, or a human-friendly development one
// outside prod.
func newLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("zap: %v", err)
	}
	return logger
}
