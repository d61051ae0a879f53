package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
)

type contextKey string

// UserIDKey holds the acting user's uuid.UUID on authenticated requests.
const UserIDKey contextKey = "user_id"

const accessTokenCookie = "access_token"

// TokenParser resolves an access token into a user id.
type TokenParser interface {
	ParseAccessToken(token string) (uuid.UUID, error)
}

// Authenticate rejects requests without a valid access token, taken from the
// access_token cookie or a Bearer authorization header.
func Authenticate(parser TokenParser, log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if c, err := r.Cookie(accessTokenCookie); err == nil {
					token = c.Value
				}
			}
			if token == "" {
				respondError(w, r, log, domain.ErrAuthenticationRequired)
				return
			}

			userID, err := parser.ParseAccessToken(token)
			if err != nil {
				respondError(w, r, log, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// viewerFrom returns the acting user placed on the context by Authenticate,
// or nil for anonymous requests.
func viewerFrom(r *http.Request) *uuid.UUID {
	id, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return nil
	}
	return &id
}

func userIDFrom(r *http.Request) uuid.UUID {
	if v := viewerFrom(r); v != nil {
		return *v
	}
	return uuid.Nil
}

// RequestLogger logs one line per request through logrus.
func RequestLogger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.WithFields(logrus.Fields{
					"request_id": middleware.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     ww.Status(),
					"bytes":      ww.BytesWritten(),
					"duration":   time.Since(start),
				}).Info("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
