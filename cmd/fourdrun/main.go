package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

const (
	appName = "fourdrun"
	version = "v1.0.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
