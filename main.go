// @title NSI Gamification API
// @version 1.0
// @description XP, levels, streaks, badges and achievements for the NSI learning platform.

// @BasePath /api

package main

import (
	"context"
	"flag"
	"log"

	"nsi_edu_backend/internal/app"
	"nsi_edu_backend/internal/config"
	"nsi_edu_backend/pkg/logger"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding config.yaml")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and seed the award catalog, then exit")
	migrate := flag.Bool("migrate", false, "run migrations on startup even in release mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer logger.Log.Sync()

	if *migrateOnly {
		logger.Log.Info("Migration finished, exiting")
		application.Close(context.Background())
		return
	}

	application.Run()
}
