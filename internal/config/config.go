// Package config reads process settings from flags, falling back to
// environment variables (optionally loaded from a .env file). A flag named
// postgres-host is read from POSTGRES_HOST.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff"
	"github.com/vncsmyrnk/slotpoll/internal/adapters/repository/postgres"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Log struct {
	Level  string
	Format string
}

type Server struct {
	Addr               string
	Store              string
	JWTSecret          string
	GoogleClientID     string
	GoogleHostedDomain string
	AllowedOrigins     []string
	RedirectURL        string
	CookieDomain       string
	CookieSameSite     http.SameSite
	ShutdownTimeout    time.Duration

	Database postgres.Config
	Log      Log
}

// LoadDotEnv loads .env from the working directory if present.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

// RegisterDatabase adds the PostgreSQL connection flags.
func RegisterDatabase(flags *flag.FlagSet, cfg *postgres.Config) {
	flags.StringVar(&cfg.Host, "postgres-host", "localhost", "database host")
	flags.StringVar(&cfg.Port, "postgres-port", "5432", "database port")
	flags.StringVar(&cfg.User, "postgres-user", "postgres", "database user")
	flags.StringVar(&cfg.Password, "postgres-password", "", "database password")
	flags.StringVar(&cfg.Name, "postgres-db", "slotpoll", "database name")
	flags.StringVar(&cfg.SSLMode, "postgres-sslmode", "disable", "database sslmode")
}

// RegisterLog adds the logging flags.
func RegisterLog(flags *flag.FlagSet, cfg *Log) {
	flags.StringVar(&cfg.Level, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.Format, "log-format", "text", "log format (text or json)")
}

// Parse applies args and the environment to flags.
func Parse(flags *flag.FlagSet, args []string) error {
	return ff.Parse(flags, args, ff.WithEnvVarNoPrefix())
}

func LoadServer(args []string) (*Server, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	var (
		cfg      Server
		origins  string
		sameSite string
	)
	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	flags.StringVar(&cfg.Addr, "http-addr", "0.0.0.0:8080", "listen address")
	flags.StringVar(&cfg.Store, "store", StorePostgres, "vote store backend (postgres or memory)")
	flags.StringVar(&cfg.JWTSecret, "jwt-secret", "", "HS256 secret for access tokens")
	flags.StringVar(&cfg.GoogleClientID, "google-client-id", "", "Google OAuth client id")
	flags.StringVar(&cfg.GoogleHostedDomain, "google-hosted-domain", "", "only accept Google accounts of this domain")
	flags.StringVar(&origins, "allowed-origins", "http://localhost:5173", "comma separated CORS origins")
	flags.StringVar(&cfg.RedirectURL, "redirect-url", "http://localhost:5173/", "where to send the browser after sign-in")
	flags.StringVar(&cfg.CookieDomain, "cookie-domain", "", "domain attribute of the auth cookies")
	flags.StringVar(&sameSite, "cookie-samesite", "lax", "SameSite attribute of the auth cookies (lax, strict, none)")
	flags.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 30*time.Second, "graceful shutdown timeout")
	RegisterDatabase(flags, &cfg.Database)
	RegisterLog(flags, &cfg.Log)

	if err := Parse(flags, args); err != nil {
		return nil, err
	}

	cfg.AllowedOrigins = splitList(origins)
	mode, err := parseSameSite(sameSite)
	if err != nil {
		return nil, err
	}
	cfg.CookieSameSite = mode

	switch cfg.Store {
	case StorePostgres, StoreMemory:
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if cfg.JWTSecret == "" && cfg.Store == StorePostgres {
		return nil, errors.New("jwt-secret (JWT_SECRET) is required")
	}
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lax", "":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("unknown cookie-samesite %q", s)
}
