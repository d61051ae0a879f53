package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/oauth/google"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/slotpoll/internal/config"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
	"github.com/vncsmyrnk/slotpoll/internal/core/services"
	"github.com/vncsmyrnk/slotpoll/internal/logging"
)

type repositories struct {
	users   ports.UserRepository
	auth    ports.AuthRepository
	polls   ports.PollRepository
	members ports.MembershipRepository
	votes   ports.VoteRepository
}

func main() {
	cfg, err := config.LoadServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logger.WithField("module", "server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer closeStore()

	entry := logrus.NewEntry(logger)
	votes := services.NewVoteService(repos.votes, repos.users, entry)
	sessions := services.NewSessionManager(repos.polls, votes, entry)
	polls := services.NewPollService(repos.polls, repos.members, repos.users, sessions, entry)
	users := services.NewUserService(repos.users)
	auth := services.NewAuthService(repos.users, repos.auth, google.NewVerifier(cfg.GoogleHostedDomain), services.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		GoogleClientID: cfg.GoogleClientID,
	}, entry)

	handler := http.NewHandler(http.Handlers{
		Auth:  http.NewAuthHandler(auth, cfg.RedirectURL, cfg.CookieDomain, cfg.CookieSameSite, entry),
		Users: http.NewUserHandler(users, entry),
		Polls: http.NewPollHandler(polls, votes, entry),
		Votes: http.NewVoteHandler(sessions, entry),
	}, http.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Tokens:         auth,
		Log:            entry,
	})
	server := &stdhttp.Server{Addr: cfg.Addr, Handler: handler}

	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.Addr, "store": cfg.Store}).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}

func openStore(ctx context.Context, cfg *config.Server, log *logrus.Entry) (repositories, func(), error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using the in-memory store, data is lost on exit")
		store := memory.NewStore()
		return repositories{
			users:   store.Users(),
			auth:    store.Auth(),
			polls:   store.Polls(),
			members: store.Members(),
			votes:   store.Votes(),
		}, func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database.ConnString())
	if err != nil {
		return repositories{}, nil, err
	}
	return postgresRepositories(db), func() { db.Close() }, nil
}

func postgresRepositories(db *sql.DB) repositories {
	return repositories{
		users:   postgres.NewUserRepository(db),
		auth:    postgres.NewAuthRepository(db),
		polls:   postgres.NewPollRepository(db),
		members: postgres.NewMembershipRepository(db),
		votes:   postgres.NewVoteRepository(db),
	}
}
