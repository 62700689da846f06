package main

import (
	"innkeeper/config"
	"innkeeper/di"
	"innkeeper/helper"
	"innkeeper/shared/logger"

	"github.com/rs/zerolog/log"
)

// @title innkeeper API
// @version 1.0
// @description Room inventory and reservations for a single hotel.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	if closer := logger.SetFileOutput(cfg); closer != nil {
		defer closer.Close()
	}

	if cfg.DB.Postgres.AutoMigrate {
		if err := helper.Up(cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply database migrations")
		}
	}

	http := di.InitializeService()
	http.Serve()
}
