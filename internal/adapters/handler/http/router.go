package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	Auth  *AuthHandler
	Users *UserHandler
	Polls *PollHandler
	Votes *VoteHandler
}

type RouterConfig struct {
	AllowedOrigins []string
	Tokens         TokenParser
	Log            *logrus.Entry
}

func NewHandler(h Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Log.WithField("module", "http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/oauth", func(r chi.Router) {
		r.Post("/callback", h.Auth.GoogleCallback)
		r.Post("/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(Authenticate(cfg.Tokens, cfg.Log.WithField("module", "http")))

		r.Get("/me", h.Users.GetMe)

		r.Route("/polls", func(r chi.Router) {
			r.Get("/", h.Polls.ListPolls)
			r.Post("/", h.Polls.CreatePoll)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Polls.GetPoll)
				r.Patch("/", h.Polls.UpdatePoll)
				r.Delete("/", h.Polls.DeletePoll)
				r.Get("/tally", h.Polls.GetTally)
				r.Get("/members", h.Polls.ListMembers)
				r.Post("/members", h.Polls.AddMember)
				r.Delete("/members/{memberID}", h.Polls.RemoveMember)
			})
		})

		r.Route("/session", func(r chi.Router) {
			r.Put("/", h.Votes.ActivateSession)
			r.Get("/", h.Votes.GetSession)
			r.Delete("/", h.Votes.EndSession)
			r.Post("/refresh", h.Votes.RefreshSession)
			r.Post("/slots/{key}/toggle", h.Votes.ToggleVote)
		})
	})

	return r
}
