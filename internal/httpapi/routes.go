package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ready-check/internal/chat"
	"github.com/DoyleJ11/ready-check/internal/hub"
	"github.com/DoyleJ11/ready-check/internal/ws"
)

// SetupRoutes mounts the API. outcomes may be nil when no history database
// is configured.
func SetupRoutes(svc *chat.Service, h *hub.Hub, outcomes OutcomeLister, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz(h))
	r.Get("/ws", ws.Handler(svc, log))

	r.Route("/channels/{channelID}/messages", func(r chi.Router) {
		r.Get("/", ListMessages(svc))
		r.Post("/", PostMessage(svc, log))
		r.Post("/{messageID}/reactions", AddReaction(svc, log))
		r.Delete("/{messageID}/reactions", RemoveReaction(svc, log))
	})
	if outcomes != nil {
		r.Get("/channels/{channelID}/outcomes", ListOutcomes(outcomes, log))
	}
	return r
}
