package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/iota-uz/portal/internal/server"
	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/modules/logging/infrastructure/persistence"
	"github.com/iota-uz/portal/modules/logging/presentation/mappers"
	"github.com/iota-uz/portal/modules/logging/presentation/viewmodels"
	"github.com/iota-uz/portal/modules/logging/services"
	"github.com/iota-uz/portal/pkg/backend"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect persisted event log records",
	}
	cmd.AddCommand(newLogsListCmd())
	return cmd
}

func newLogsListCmd() *cobra.Command {
	var (
		category    string
		level       string
		userID      string
		limit       int
		offset      int
		accessToken string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List log records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := &logrecord.FindParams{
				Category: category,
				UserID:   userID,
				Limit:    limit,
				Offset:   offset,
			}
			if level != "" {
				lvl, err := logrecord.ParseLevel(level)
				if err != nil {
					return err
				}
				params.Level = &lvl
			}

			conf, err := loadConfig()
			if err != nil {
				return err
			}
			defer conf.Unload()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			be, err := server.NewBackend(ctx, conf, conf.Logger())
			if err != nil {
				return err
			}
			defer be.Close()
			if accessToken != "" {
				ctx = backend.WithAccessToken(ctx, accessToken)
			}

			logsService := services.NewLogsService(persistence.NewLogRepository(be.Client.Tables, conf.EventLog.Table), conf.MaxPageSize)
			records, err := logsService.List(ctx, params)
			if err != nil {
				return err
			}
			return writeJSON(&viewmodels.LogsPage{
				Logs:   mappers.LogRecordsToViewModels(records),
				Limit:  logsService.EffectiveLimit(params.Limit),
				Offset: params.Offset,
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&level, "level", "", "Filter by level (DEBUG, INFO, WARN, ERROR)")
	cmd.Flags().StringVar(&userID, "user", "", "Filter by user id")
	cmd.Flags().IntVar(&limit, "limit", services.DefaultListLimit, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Records to skip")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "User access token for row level security in remote mode")
	return cmd
}
