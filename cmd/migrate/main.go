package main

import (
	"os"

	"innkeeper/config"
	"innkeeper/helper"
	"innkeeper/shared/logger"

	"github.com/rs/zerolog/log"
)

const argLength = 2

func main() {
	logger.InitLogger()

	if len(os.Args) < argLength {
		log.Fatal().Msgf("usage: migrate <%s|%s|%s|%s>", helper.ActionUp, helper.ActionStepUp, helper.ActionDown, helper.ActionDrop)
	}

	cfg := config.Get()

	logger.SetLogLevel(cfg)

	if err := helper.Runner(cfg, os.Args[1]); err != nil {
		log.Fatal().Err(err).Str("action", os.Args[1]).Msg("Migration failed")
	}
}
