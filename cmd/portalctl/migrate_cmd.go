package main

import (
	"database/sql"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/iota-uz/portal/migrations"
)

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the logs and profiles tables of the postgres tables mode",
	}

	run := func(action func(db *sql.DB) error) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			defer conf.Unload()
			db, err := openDB(conf.Database.Opts)
			if err != nil {
				return err
			}
			defer db.Close()
			return action(db)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: run(func(db *sql.DB) error {
				return goose.Up(db, ".")
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: run(func(db *sql.DB) error {
				return goose.Down(db, ".")
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the migration status",
			RunE: run(func(db *sql.DB) error {
				return goose.Status(db, ".")
			}),
		},
	)
	return cmd
}
