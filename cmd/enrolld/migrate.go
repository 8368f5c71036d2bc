package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/seatwise/course-enrollment/internal/config"
	"github.com/seatwise/course-enrollment/internal/database"
	"github.com/seatwise/course-enrollment/internal/store/mysql"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			if err := mysql.New(db).Migrate(ctx); err != nil {
				return err
			}
			log.Printf("%s: schema is up to date", programName)
			return nil
		},
	}
}
