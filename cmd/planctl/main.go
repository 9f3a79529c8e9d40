package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"planscore/internal/cli"
)

func main() {
	level := zerolog.WarnLevel
	if os.Getenv("PLANCTL_DEBUG") != "" {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if err := cli.NewRootCmd(cli.NewApp(log)).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
