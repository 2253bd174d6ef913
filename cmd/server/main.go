package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/ambulance-fleet-api/internal/config"
	"github.com/iliyamo/ambulance-fleet-api/internal/database"
	"github.com/iliyamo/ambulance-fleet-api/internal/handler"
	"github.com/iliyamo/ambulance-fleet-api/internal/logger"
	"github.com/iliyamo/ambulance-fleet-api/internal/mailer"
	"github.com/iliyamo/ambulance-fleet-api/internal/middleware"
	"github.com/iliyamo/ambulance-fleet-api/internal/queue"
	"github.com/iliyamo/ambulance-fleet-api/internal/repository"
	"github.com/iliyamo/ambulance-fleet-api/internal/router"
	"github.com/iliyamo/ambulance-fleet-api/internal/service"
	"github.com/iliyamo/ambulance-fleet-api/internal/utils"
	"github.com/iliyamo/ambulance-fleet-api/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", true)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.IsDev())

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("connect mysql")
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(migrateCtx, db)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Fatal().Str("addr", cfg.Redis.Address()).Msg("redis unreachable; sessions cannot be stored")
	}
	defer rdb.Close()

	codec, err := utils.NewTokenCodec(cfg.JWTSecret, cfg.JWTAlgorithm)
	if err != nil {
		log.Fatal().Err(err).Msg("token codec")
	}

	userRepo := repository.NewUserRepo(db)
	driverRepo := repository.NewDriverRepo(db)
	tokenRepo := repository.NewUpgradeTokenRepo(db, driverRepo)
	ambulanceRepo := repository.NewAmbulanceRepo(db)
	codeRepo := repository.NewRestoreCodeRepo(db)
	sessionRepo := repository.NewSessionRepo(rdb, "sess")

	events := queue.NewPublisher(cfg.RabbitMQURL, log)

	sessions, err := service.NewSessionService(userRepo, sessionRepo, codec, service.SessionConfig{
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		BcryptCost: cfg.BcryptCost,
	}, events, log)
	if err != nil {
		log.Fatal().Err(err).Msg("session service")
	}
	validate := validation.New()
	users := service.NewUserService(userRepo, driverRepo, ambulanceRepo, sessions, validate, cfg.BcryptCost, events, log)
	passwords := service.NewPasswordService(userRepo, codeRepo, sessions, events, cfg.RestoreCodeTTL, cfg.BcryptCost, log)
	upgrades := service.NewUpgradeService(tokenRepo, ambulanceRepo, validate, events, log)
	ambulances := service.NewAmbulanceService(ambulanceRepo)

	e := router.New(router.Deps{
		Cfg:        cfg,
		Log:        log,
		DB:         db,
		Redis:      rdb,
		Guard:      middleware.NewGuard(sessions),
		Auth:       handler.NewAuthHandler(sessions, passwords, cfg.IsDev()),
		Users:      handler.NewUserHandler(users, cfg.IsDev()),
		Upgrades:   handler.NewUpgradeHandler(upgrades),
		Ambulances: handler.NewAmbulanceHandler(ambulances),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runConsumer(ctx, cfg, log)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

// runConsumer handles auth events until ctx ends. Without SMTP settings the
// consumer still audits events but restore emails are rejected.
func runConsumer(ctx context.Context, cfg config.Config, log *zerolog.Logger) {
	h := &queue.EventHandler{RestoreURL: cfg.RestorePasswordURL, Log: log}
	if m, err := mailer.NewMailer(log); err != nil {
		log.Warn().Err(err).Msg("mailer disabled")
	} else {
		h.Mail = m
	}
	if err := queue.StartAuthEventConsumer(ctx, cfg.RabbitMQURL, h); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("auth event consumer stopped")
	}
}
