// Package main is the entry point for the RoomStudio viewer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/roomstudio/internal/config"
	"github.com/Faultbox/roomstudio/internal/logger"
	"github.com/Faultbox/roomstudio/internal/viewer"
	"github.com/Faultbox/roomstudio/pkg/math"
	"github.com/Faultbox/roomstudio/pkg/mesh"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== RoomStudio ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

func run(cfg *config.Config) error {
	app, err := viewer.NewApp(cfg, logger.Log)
	if err != nil {
		return err
	}
	defer app.Close()

	session := app.Session()
	if cfg.Data.Model != "" {
		if err := session.LoadModel(cfg.Data.Model); err != nil {
			return fmt.Errorf("open model: %w", err)
		}
	} else {
		// An empty room until a model is opened or dropped.
		box, err := mesh.NewBox(math.Vec3{}, math.Vec3{X: 1, Y: 1, Z: 1})
		if err != nil {
			return err
		}
		session.LoadMesh(box, "")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}
