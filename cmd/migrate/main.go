// Command migrate applies the embedded SQL migrations.
//
//	migrate [up|down|status|redo|reset|version]
package main

import (
	"context"
	"fmt"
	"os"

	"rubi-trail/config"
	pgStorage "rubi-trail/internal/adapter/storage/postgres"
	"rubi-trail/pkg/logger"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load(os.Getenv("RT_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if err := pgStorage.RunMigrations(context.Background(), cfg.Database.DSN(), command, log); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	log.Info().Str("command", command).Msg("Migrations finished")
}
