package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-peer/transport/peer"
)

const maxRequestBody = 1 << 10

type matchRunner interface {
	Do(ctx context.Context, fn func(manager *usecase.MatchManager)) error
}

type sessionState interface {
	State() peer.State
}

type matchResponse struct {
	MatchID string      `json:"match_id"`
	Role    entity.Role `json:"role"`
	Mark    entity.Mark `json:"mark"`
	Session peer.State  `json:"session"`
	entity.Snapshot
}

type moveRequest struct {
	Col *int `json:"col"`
	Row *int `json:"row"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handlers struct {
	logger  *slog.Logger
	matches matchRunner
	session sessionState
}

// NewHandler - routes of the local collaborator API. Match state is only reached through matches.Do.
func NewHandler(logger *slog.Logger, matches matchRunner, session sessionState) http.Handler {
	h := &handlers{
		logger:  logger.With("component", "rest"),
		matches: matches,
		session: session,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", h.ping)
	mux.HandleFunc("GET /match", h.getMatch)
	mux.HandleFunc("POST /match/moves", h.postMove)
	mux.HandleFunc("POST /match/restart", h.postRestart)

	return mux
}

func (that *handlers) ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("pong")); err != nil {
		that.logger.Error("failed to write pong", "error", err)
	}
}

func (that *handlers) getMatch(w http.ResponseWriter, r *http.Request) {
	var response matchResponse
	if err := that.matches.Do(r.Context(), func(manager *usecase.MatchManager) {
		response = that.describe(manager)
	}); err != nil {
		that.unavailable(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, response)
}

func (that *handlers) postMove(w http.ResponseWriter, r *http.Request) {
	var request moveRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid move body: " + err.Error()})
		return
	}

	if request.Col == nil || request.Row == nil {
		that.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "col and row are required"})
		return
	}

	var (
		response matchResponse
		moveErr  error
	)
	if err := that.matches.Do(r.Context(), func(manager *usecase.MatchManager) {
		moveErr = manager.ApplyLocalMove(*request.Col, *request.Row)
		response = that.describe(manager)
	}); err != nil {
		that.unavailable(w, err)
		return
	}

	switch {
	case moveErr == nil:
		that.writeJSON(w, http.StatusOK, response)
	case errors.Is(moveErr, apperror.ErrValidation):
		that.writeJSON(w, http.StatusConflict, errorResponse{Error: moveErr.Error()})
	default:
		that.logger.Error("failed to apply move", "error", moveErr)
		that.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (that *handlers) postRestart(w http.ResponseWriter, r *http.Request) {
	var response matchResponse
	if err := that.matches.Do(r.Context(), func(manager *usecase.MatchManager) {
		manager.Restart()
		response = that.describe(manager)
	}); err != nil {
		that.unavailable(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, response)
}

// describe runs on the foreground goroutine.
func (that *handlers) describe(manager *usecase.MatchManager) matchResponse {
	return matchResponse{
		MatchID:  manager.MatchID(),
		Role:     manager.Role(),
		Mark:     manager.Role().Mark(),
		Session:  that.session.State(),
		Snapshot: manager.CurrentSnapshot(),
	}
}

func (that *handlers) unavailable(w http.ResponseWriter, err error) {
	that.logger.Warn("foreground unavailable", "error", err)
	that.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "match is not running"})
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "status", status, "error", err)
	}
}
