package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/akshayaggarwal99/codebox/internal/api"
	"github.com/akshayaggarwal99/codebox/internal/config"
	"github.com/akshayaggarwal99/codebox/internal/engine"
	"github.com/akshayaggarwal99/codebox/internal/pack"
	"github.com/akshayaggarwal99/codebox/internal/pipeline"
)

var (
	port         string
	socketPath   string
	languagesCfg string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the codebox execution server",
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "3000", "HTTP server port")
	serveCmd.Flags().StringVar(&socketPath, "socket", "/var/run/docker.sock", "container engine Unix socket")
	serveCmd.Flags().StringVar(&languagesCfg, "languages", "languages.yaml", "path to the language config file")
	RootCmd.AddCommand(serveCmd)
}

func runServer() {
	log.Info().Str("port", port).Str("socket", socketPath).Msg("starting codebox server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	langs, err := config.Load(languagesCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load language config")
	}

	client, err := engine.NewClient(socketPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure container engine client")
	}

	packer := pack.NewPacker()
	defer packer.Close()

	p := pipeline.New(client, packer, langs)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.NewHandler(p, langs).RegisterRoutes(e)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", port).Msg("server listening")
		serverErr <- e.Start(":" + port)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("server startup failed")
	}
}
