package httpx

import (
	"net/http"

	"log/slog"

	"github.com/dmitritashenov-cyber/video-chat/internal/app"
	"github.com/dmitritashenov-cyber/video-chat/internal/ws"
	"github.com/dmitritashenov-cyber/video-chat/pkg/auth"
	"github.com/dmitritashenov-cyber/video-chat/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, users UserDirectory, rooms RoomAssigner, inbox Inbox) http.Handler {
	mw := NewMiddleware(cfg)
	pages := &Pages{Log: logger, Users: users, Rooms: rooms, Inbox: inbox}
	api := &AuthAPI{Users: users, JWT: auth.New(cfg.JWTSecret)}
	health := &Health{Log: logger, Hub: hub, Users: users}

	mux := http.NewServeMux()

	// Signaling endpoint
	mux.HandleFunc("GET /ws/{room}", hub.ServeWS)

	// Login/dashboard form flow
	mux.HandleFunc("GET /{$}", pages.Login)
	mux.HandleFunc("POST /login", pages.DoLogin)
	mux.HandleFunc("GET /dashboard", pages.Dashboard)
	mux.HandleFunc("POST /send_link", pages.SendLink)

	// Token flow for non-browser clients
	mux.Handle("POST /api/login", http.HandlerFunc(api.Login))
	mux.Handle("GET /api/me", mw.Auth(http.HandlerFunc(api.Me)))

	// Health / metrics
	mux.HandleFunc("GET /health", health.Get)
	mux.Handle("GET /metrics", metrics.Handler())

	// Static assets (room page, styles)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	return mw.Wrap(mux)
}
