package httpx

import (
	"log/slog"
	"net/http"

	"chat-relay/internal/app"
	"chat-relay/internal/relay"
	"chat-relay/internal/store"
	"chat-relay/pkg/auth"
	"chat-relay/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, gw *relay.Gateway, pres *relay.Presence, pg *store.Postgres, cache *store.Cache) http.Handler {
	mw := NewMiddleware(cfg)

	users := &UsersAPI{DB: pg, JWT: auth.New(cfg.JWTSecret), Live: pres}
	rooms := &RoomsAPI{DB: pg, Log: logger, History: cfg.HistoryLimit}
	if cache != nil {
		rooms.Cache = cache
	}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// Live relay endpoint
	mux.Handle("/ws", http.HandlerFunc(gw.ServeWS))

	// User directory + identity
	mux.Handle("POST /api/users/register", http.HandlerFunc(users.Register))
	mux.Handle("POST /api/users/login", http.HandlerFunc(users.Login))
	mux.Handle("GET /api/users", http.HandlerFunc(users.List))
	mux.Handle("GET /api/users/{username}", http.HandlerFunc(users.Get))
	mux.Handle("PUT /api/users/{username}/status", mw.Auth(http.HandlerFunc(users.UpdateStatus)))

	// Rooms + message history
	mux.Handle("GET /api/rooms", http.HandlerFunc(rooms.List))
	mux.Handle("POST /api/rooms", mw.Auth(http.HandlerFunc(rooms.Create)))
	mux.Handle("GET /api/rooms/{roomId}/messages", http.HandlerFunc(rooms.Messages))
	mux.Handle("POST /api/rooms/{roomId}/messages", mw.Auth(http.HandlerFunc(rooms.AddMessage)))

	// CORS + rate limit applied globally
	return mw.Wrap(mux)
}
