package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/slotpoll/internal/config"
	"github.com/vncsmyrnk/slotpoll/internal/core/services"
	"github.com/vncsmyrnk/slotpoll/internal/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	var (
		db      postgres.Config
		logCfg  config.Log
		timeout time.Duration
	)
	flags := flag.NewFlagSet("votesummarizing", flag.ExitOnError)
	config.RegisterDatabase(flags, &db)
	config.RegisterLog(flags, &logCfg)
	flags.DurationVar(&timeout, "timeout", 5*time.Minute, "job timeout")
	if err := config.Parse(flags, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(logCfg.Level, logCfg.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	entry := logrus.NewEntry(logger)
	log := entry.WithField("module", "votesummarizing")

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := postgres.Open(ctx, db.ConnString())
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer conn.Close()

	pollRepo := postgres.NewPollRepository(conn)
	resultRepo := postgres.NewPollResultRepository(conn)
	votes := services.NewVoteService(postgres.NewVoteRepository(conn), postgres.NewUserRepository(conn), entry)
	summaryService := services.NewSummaryService(pollRepo, votes, resultRepo, entry)

	log.Info("starting vote summarization job")
	start := time.Now()

	if err := summaryService.SummarizeAllVotes(ctx); err != nil {
		log.WithError(err).Fatal("error summarizing votes")
	}

	log.WithField("duration", time.Since(start)).Info("vote summarization completed")
}
