package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ready-check/internal/chat"
	"github.com/DoyleJ11/ready-check/internal/history"
	"github.com/DoyleJ11/ready-check/internal/hub"
	"github.com/DoyleJ11/ready-check/internal/platform"
)

type postMessageRequest struct {
	AuthorID string `json:"author_id"`
	Content  string `json:"content"`
}

type reactionRequest struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Lobbies  int    `json:"lobbies"`
	Messages int    `json:"bound_messages"`
}

func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := h.Count(r.Context())
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Lobbies: c.Lobbies, Messages: c.Messages})
	}
}

func ListMessages(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.History(chi.URLParam(r, "channelID")))
	}
}

// PostMessage posts as a user; prefixed commands are picked up by the bot.
func PostMessage(svc *chat.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req postMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AuthorID == "" || req.Content == "" {
			http.Error(w, "author_id and content are required", http.StatusBadRequest)
			return
		}
		msg, err := svc.Post(r.Context(), chi.URLParam(r, "channelID"), req.AuthorID, req.Content)
		if err != nil {
			log.Error("post message", zap.Error(err))
			http.Error(w, "failed to post message", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func AddReaction(svc *chat.Service, log *zap.Logger) http.HandlerFunc {
	return reactionHandler(svc.AddReaction, log)
}

func RemoveReaction(svc *chat.Service, log *zap.Logger) http.HandlerFunc {
	return reactionHandler(svc.RemoveReaction, log)
}

type reactionFunc func(ctx context.Context, channelID, messageID, emoji, userID string) error

func reactionHandler(fn reactionFunc, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Emoji == "" {
			http.Error(w, "user_id and emoji are required", http.StatusBadRequest)
			return
		}
		err := fn(r.Context(), chi.URLParam(r, "channelID"), chi.URLParam(r, "messageID"), req.Emoji, req.UserID)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, platform.ErrUnknownMessage):
			http.Error(w, "message not found", http.StatusNotFound)
		default:
			log.Error("reaction", zap.Error(err))
			http.Error(w, "failed to update reaction", http.StatusInternalServerError)
		}
	}
}

// OutcomeLister reads finished lobbies back out of the history store.
type OutcomeLister interface {
	Recent(ctx context.Context, channelID string, limit int) ([]history.Record, error)
}

const (
	defaultOutcomeLimit = 20
	maxOutcomeLimit     = 100
)

func ListOutcomes(outcomes OutcomeLister, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultOutcomeLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxOutcomeLimit)
		}
		recs, err := outcomes.Recent(r.Context(), chi.URLParam(r, "channelID"), limit)
		if err != nil {
			log.Error("list outcomes", zap.Error(err))
			http.Error(w, "failed to list outcomes", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
