package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
	"github.com/vncsmyrnk/slotpoll/internal/core/services"
)

type PollHandler struct {
	service ports.PollService
	votes   ports.VoteService
	log     *logrus.Entry
}

func NewPollHandler(service ports.PollService, votes ports.VoteService, log *logrus.Entry) *PollHandler {
	return &PollHandler{
		service: service,
		votes:   votes,
		log:     log.WithField("module", "http"),
	}
}

type createPollRequest struct {
	Kind        domain.PollKind `json:"kind"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Days        []string        `json:"days"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
}

func (req createPollRequest) input() (ports.CreatePollInput, error) {
	input := ports.CreatePollInput{
		Kind:        req.Kind,
		Name:        req.Name,
		Description: req.Description,
		Days:        req.Days,
	}
	var err error
	if input.StartDate, err = parseDate(req.StartDate); err != nil {
		return input, err
	}
	if input.EndDate, err = parseDate(req.EndDate); err != nil {
		return input, err
	}
	return input, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return nil, domain.ErrInvalidPoll
	}
	return &t, nil
}

// CreatePoll godoc
// @Summary      Creates a poll
// @Description  Creates a weekly schedule or calendar poll owned by the authenticated user.
// @Tags         polls
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Failure      401
// @Router       /api/polls [post]
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := req.input()
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	poll, err := h.service.Create(r.Context(), userIDFrom(r), input)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, poll)
}

// ListPolls godoc
// @Summary      Lists the user's polls
// @Description  Polls owned by or shared with the authenticated user, sorted by name.
// @Tags         polls
// @Produce      json
// @Success      200
// @Router       /api/polls [get]
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.service.ListPolls(r.Context(), userIDFrom(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if polls == nil {
		polls = []*domain.Poll{}
	}
	writeJSON(w, http.StatusOK, polls)
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.service.GetPoll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}

type updatePollRequest struct {
	Status domain.PollStatus `json:"status"`
}

// UpdatePoll godoc
// @Summary      Changes a poll's status
// @Tags         polls
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      403
// @Router       /api/polls/{id} [patch]
func (h *PollHandler) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	var req updatePollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	poll, err := h.service.UpdateStatus(r.Context(), userIDFrom(r), pollID, req.Status)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}

func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if err := h.service.Delete(r.Context(), userIDFrom(r), pollID); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTally godoc
// @Summary      Returns the poll's tally
// @Description  Builds the per-slot counts and tiers from the stored votes without touching the caller's session.
// @Tags         polls
// @Produce      json
// @Success      200
// @Failure      404
// @Router       /api/polls/{id}/tally [get]
func (h *PollHandler) GetTally(w http.ResponseWriter, r *http.Request) {
	poll, err := h.service.GetPoll(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	agg, err := h.votes.Tally(r.Context(), poll)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	emails := h.votes.ResolveVoters(r.Context(), agg)
	writeJSON(w, http.StatusOK, services.NewTallyView(poll, agg, agg.Ranks(), userIDFrom(r), emails))
}

func (h *PollHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	members, err := h.service.ListMembers(r.Context(), userIDFrom(r), pollID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if members == nil {
		members = []*domain.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

type addMemberRequest struct {
	Email string `json:"email"`
}

// AddMember godoc
// @Summary      Invites a user to the poll
// @Tags         members
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      404
// @Failure      409
// @Router       /api/polls/{id}/members [post]
func (h *PollHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "an email is required")
		return
	}

	member, err := h.service.AddMember(r.Context(), userIDFrom(r), pollID, req.Email)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *PollHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	memberID, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		respondError(w, r, h.log, domain.ErrMemberNotFound)
		return
	}

	if err := h.service.RemoveMember(r.Context(), userIDFrom(r), pollID, memberID); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pollIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.ErrInvalidPollID
	}
	return id, nil
}
