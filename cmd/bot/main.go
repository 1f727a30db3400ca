package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pboyer84/IOGRDiscord/internal/config"
	"github.com/pboyer84/IOGRDiscord/internal/core"
	"github.com/pboyer84/IOGRDiscord/pkg/logx"
	"github.com/pboyer84/IOGRDiscord/pkg/sdnotify"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (json or yaml)")
	flag.Parse()

	// Optional .env for DISCORD_TOKEN and friends; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	log, logCloser, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.ConsoleLogging(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := core.New(cfgPath, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("fatal start")
		os.Exit(1)
	}
	sdnotify.Ready()

	select {
	case <-ctx.Done():
		log.Info().Msg("signal received")
	case <-app.StopRequested():
		log.Info().Msg("sleep requested")
	case <-app.Done():
		if err := app.Err(); err != nil {
			log.Error().Err(err).Msg("fatal runtime error")
		}
	}

	sdnotify.Stopping()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown finished with errors")
	}
}
