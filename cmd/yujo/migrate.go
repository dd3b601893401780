package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joacominatel/yujo/internal/infrastructure/config"
	"github.com/joacominatel/yujo/internal/infrastructure/database"
)

func newMigrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			dbConfig, err := config.LoadDatabase()
			if err != nil {
				return fmt.Errorf("database config: %w", err)
			}

			conn, err := database.New(dbConfig, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			migrator := database.NewMigrator(conn, logger)
			if !status {
				if err := migrator.Run(ctx); err != nil {
					return err
				}
			}

			applied, err := migrator.GetAppliedMigrations(ctx)
			if err != nil {
				return err
			}
			for _, version := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "only list applied migrations")
	return cmd
}
