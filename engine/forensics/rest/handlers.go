package rest

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onflow/hotstuff-forensics/consensus/forensics/certstore"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/model"
	"github.com/onflow/hotstuff-forensics/consensus/forensics/session"
	"github.com/onflow/hotstuff-forensics/storage"
)

// Session is the view of a forensic session served by the API.
type Session interface {
	ID() uuid.UUID
	Config() session.Config
	State() session.State
	Event() *model.ConflictEvent
	Recent() []model.RoundSummary
	Inconclusive() bool
	Store() *certstore.Store
}

type handler struct {
	log     zerolog.Logger
	session Session
	events  storage.ConflictEvents
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	cfg := h.session.Config()
	store := h.session.Store()
	h.respond(w, http.StatusOK, StatusResponse{
		SessionID:    h.session.ID().String(),
		State:        h.session.State().String(),
		Mode:         cfg.Mode.String(),
		Quorum:       cfg.Quorum,
		Epoch:        cfg.Epoch,
		VantageA:     string(cfg.VantageA),
		VantageB:     string(cfg.VantageB),
		HighestRound: store.HighestRound(),
		Certificates: store.Size(),
		Observations: store.Observations(),
		Inconclusive: h.session.Inconclusive(),
	})
}

func (h *handler) rounds(w http.ResponseWriter, _ *http.Request) {
	recent := h.session.Recent()
	rounds := make([]RoundResponse, 0, len(recent))
	for _, summary := range recent {
		rounds = append(rounds, NewRoundResponse(summary))
	}
	h.respond(w, http.StatusOK, rounds)
}

func (h *handler) conflict(w http.ResponseWriter, _ *http.Request) {
	event := h.session.Event()
	if event == nil {
		h.respondError(w, http.StatusNotFound, "no conflict detected")
		return
	}
	h.respond(w, http.StatusOK, NewConflictResponse(event))
}

func (h *handler) conflicts(w http.ResponseWriter, _ *http.Request) {
	events, err := h.events.All()
	if err != nil {
		h.log.Error().Err(err).Msg("could not read persisted conflict events")
		h.respondError(w, http.StatusInternalServerError, "could not read conflict events")
		return
	}
	responses := make([]ConflictResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, NewConflictResponse(event))
	}
	h.respond(w, http.StatusOK, responses)
}

func (h *handler) respond(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to write response")
	}
}

func (h *handler) respondError(w http.ResponseWriter, code int, message string) {
	h.respond(w, code, ErrorResponse{Code: code, Message: message})
}
