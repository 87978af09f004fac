// Package main is the entry point for the codebox execution server.
//
// Usage:
//
//	codebox serve [flags]
//
// Flags:
//
//	-p, --port string     HTTP server port (default: 3000)
//	    --socket string    container engine Unix socket (default: /var/run/docker.sock)
//	    --languages string path to the language config file (default: languages.yaml)
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/akshayaggarwal99/codebox/internal/cli"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if os.Getenv("CODEBOX_ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		})
	}

	log.Info().
		Str("version", Version).
		Str("commit", GitCommit).
		Str("built", BuildDate).
		Msg("codebox starting")

	cli.Execute()
}
