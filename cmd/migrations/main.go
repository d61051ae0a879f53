package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/peterbourgon/ff"
	"github.com/peterbourgon/ff/ffcli"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/slotpoll/internal/config"
	"github.com/vncsmyrnk/slotpoll/internal/logging"
)

var (
	appFlagSet = flag.NewFlagSet("migrations", flag.ExitOnError)
	dbConfig   postgres.Config
	logConfig  config.Log
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	config.RegisterDatabase(appFlagSet, &dbConfig)
	config.RegisterLog(appFlagSet, &logConfig)

	app := &ffcli.Command{
		Usage:   "migrations [flags] <subcommand> [args]",
		FlagSet: appFlagSet,
		Options: []ff.Option{ff.WithEnvVarNoPrefix()},
		Subcommands: []*ffcli.Command{
			{
				Name:      "up",
				Usage:     "migrations up",
				ShortHelp: "Apply every up migration in order",
				Exec:      up,
			},
			{
				Name:      "run",
				Usage:     "migrations run <name>",
				ShortHelp: "Execute one migration file, e.g. create_votes.down",
				Exec:      run,
			},
			{
				Name:      "list",
				Usage:     "migrations list",
				ShortHelp: "List the embedded migration files",
				Exec:      list,
			},
		},
		Exec: func([]string) error {
			return errors.New("a subcommand is required")
		},
	}

	if err := app.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func up(args []string) error {
	return withDB(func(ctx context.Context, db *sql.DB, log *logrus.Entry) error {
		applied, err := postgres.ApplyMigrations(ctx, db)
		for _, name := range applied {
			log.WithField("file", name).Info("migration applied")
		}
		return err
	})
}

func run(args []string) error {
	if len(args) < 1 {
		return errors.New("a migration name is required")
	}
	return withDB(func(ctx context.Context, db *sql.DB, log *logrus.Entry) error {
		name, err := postgres.RunMigration(ctx, db, args[0])
		if err != nil {
			return err
		}
		log.WithField("file", name).Info("migration file executed successfully")
		return nil
	})
}

func list(args []string) error {
	names, err := postgres.MigrationNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func withDB(fn func(ctx context.Context, db *sql.DB, log *logrus.Entry) error) error {
	logger, err := logging.New(logConfig.Level, logConfig.Format)
	if err != nil {
		return err
	}
	log := logger.WithField("module", "migrations")

	ctx := context.Background()
	db, err := postgres.Open(ctx, dbConfig.ConnString())
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, db, log)
}
