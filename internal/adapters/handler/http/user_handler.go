package http

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
	log     *logrus.Entry
}

func NewUserHandler(service ports.UserService, log *logrus.Entry) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log.WithField("module", "http"),
	}
}

// GetMe godoc
// @Summary      Returns the authenticated user
// @Tags         users
// @Produce      json
// @Success      200
// @Failure      401
// @Router       /api/me [get]
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetByID(r.Context(), userIDFrom(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
