package http

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/services"
)

// VoteHandler exposes the caller's poll session: the poll they have open and
// the vote toggles made against it.
type VoteHandler struct {
	sessions *services.SessionManager
	log      *logrus.Entry
}

func NewVoteHandler(sessions *services.SessionManager, log *logrus.Entry) *VoteHandler {
	return &VoteHandler{
		sessions: sessions,
		log:      log.WithField("module", "http"),
	}
}

type activateRequest struct {
	PollID string `json:"poll_id"`
}

type toggleResponse struct {
	Direction domain.VoteDirection `json:"direction"`
	Tally     *services.TallyView  `json:"tally"`
}

// ActivateSession godoc
// @Summary      Opens a poll in the caller's session
// @Description  Loads the poll and its votes, replacing whatever poll the session showed before.
// @Tags         session
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      404
// @Failure      409
// @Router       /api/session [put]
func (h *VoteHandler) ActivateSession(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r)
	if viewer == nil {
		respondError(w, r, h.log, domain.ErrAuthenticationRequired)
		return
	}

	var req activateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pollID, err := uuid.Parse(req.PollID)
	if err != nil {
		respondError(w, r, h.log, domain.ErrInvalidPollID)
		return
	}

	view, err := h.sessions.Session(*viewer).Activate(r.Context(), viewer, pollID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *VoteHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, viewer, ok := h.lookup(w, r)
	if !ok {
		return
	}
	view, err := session.Snapshot(*viewer)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RefreshSession re-reads the open poll's metadata.
func (h *VoteHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	session, viewer, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := session.RefreshPoll(r.Context()); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	view, err := session.Snapshot(*viewer)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *VoteHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r)
	if viewer == nil {
		respondError(w, r, h.log, domain.ErrAuthenticationRequired)
		return
	}
	h.sessions.End(*viewer)
	w.WriteHeader(http.StatusNoContent)
}

// ToggleVote godoc
// @Summary      Toggles the caller's vote on one slot
// @Description  Removes the vote if the caller already voted on the slot, adds it otherwise. Returns the updated tally.
// @Tags         session
// @Produce      json
// @Param        key  path  string  true  "Slot key, e.g. Mon-07:00:00 or 2024-05-01"
// @Success      200
// @Failure      400
// @Failure      409
// @Failure      503
// @Router       /api/session/slots/{key}/toggle [post]
func (h *VoteHandler) ToggleVote(w http.ResponseWriter, r *http.Request) {
	session, viewer, ok := h.lookup(w, r)
	if !ok {
		return
	}

	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		respondError(w, r, h.log, domain.ErrInvalidSlot)
		return
	}

	direction, view, err := session.Toggle(r.Context(), viewer, domain.SlotKey(key))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Direction: direction, Tally: view})
}

func (h *VoteHandler) lookup(w http.ResponseWriter, r *http.Request) (*services.PollSession, *uuid.UUID, bool) {
	viewer := viewerFrom(r)
	if viewer == nil {
		respondError(w, r, h.log, domain.ErrAuthenticationRequired)
		return nil, nil, false
	}
	session, ok := h.sessions.Lookup(*viewer)
	if !ok {
		respondError(w, r, h.log, domain.ErrNoActivePoll)
		return nil, nil, false
	}
	return session, viewer, true
}
