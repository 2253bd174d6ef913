// Command tokengen makes sure a number of unused MANAGER upgrade tokens
// exist and prints them, one per line. Run it once on a fresh install to
// promote the first manager.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/iliyamo/ambulance-fleet-api/internal/config"
	"github.com/iliyamo/ambulance-fleet-api/internal/database"
	"github.com/iliyamo/ambulance-fleet-api/internal/logger"
	"github.com/iliyamo/ambulance-fleet-api/internal/repository"
	"github.com/iliyamo/ambulance-fleet-api/internal/service"
	"github.com/iliyamo/ambulance-fleet-api/internal/validation"
)

func main() {
	n := flag.Int("n", 5, "number of unused manager tokens to keep")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New("info", true).Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.IsDev())

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("connect mysql")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate schema")
	}

	tokens := repository.NewUpgradeTokenRepo(db, repository.NewDriverRepo(db))
	upgrades := service.NewUpgradeService(tokens, repository.NewAmbulanceRepo(db), validation.New(), nil, log)
	list, err := upgrades.EnsureBootstrapTokens(ctx, *n)
	if err != nil {
		log.Fatal().Err(err).Msg("ensure manager tokens")
	}
	for _, t := range list {
		fmt.Println(t.ID)
	}
}
