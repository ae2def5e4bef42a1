package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/taskpulse/internal/auth"
	"github.com/npezzotti/taskpulse/internal/config"
	"github.com/npezzotti/taskpulse/internal/database"
	"github.com/npezzotti/taskpulse/internal/notify"
	"github.com/npezzotti/taskpulse/internal/presence"
	"github.com/npezzotti/taskpulse/internal/server"
	"github.com/npezzotti/taskpulse/internal/stats"
	"go.uber.org/zap"
)

type App struct {
	log            *zap.Logger
	hub            *server.Hub
	registry       *presence.Registry
	repo           database.NotificationRepository
	dispatcher     *notify.Dispatcher
	verifier       *auth.Verifier
	stats          stats.StatsProvider
	allowedOrigins []string
	upgrader       websocket.Upgrader
	srv            *http.Server
}

func NewApp(
	mux *http.ServeMux,
	logger *zap.Logger,
	hub *server.Hub,
	repo database.NotificationRepository,
	dispatcher *notify.Dispatcher,
	su stats.StatsProvider,
	cfg *config.Config,
) *App {
	s := &App{
		log:            logger,
		hub:            hub,
		registry:       hub.Registry(),
		repo:           repo,
		dispatcher:     dispatcher,
		verifier:       auth.NewVerifier(cfg.SigningKey),
		stats:          su,
		allowedOrigins: cfg.CORS.AllowedOrigins,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	su.RegisterMetric(stats.HandshakesRejected)

	mux.HandleFunc("GET /ws", s.serveWs)
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("POST /api/users/online-status", s.authMiddleware(s.onlineStatus))
	mux.Handle("GET /api/users/online", s.authMiddleware(s.onlineUsers))
	mux.Handle("GET /api/users/online/count", s.authMiddleware(s.onlineCount))
	mux.Handle("GET /api/notifications", s.authMiddleware(s.listNotifications))
	mux.Handle("GET /api/notifications/unread-count", s.authMiddleware(s.unreadCount))
	mux.Handle("PATCH /api/notifications/{id}/read", s.authMiddleware(s.markRead))
	mux.Handle("PATCH /api/notifications/read-all", s.authMiddleware(s.markAllRead))
	mux.Handle("POST /api/events", s.authMiddleware(s.createEvent))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.CORS.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h,
	}

	return s
}

func (s *App) Start() error {
	s.log.Info("starting server", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

// checkOrigin allows requests without an Origin header and requests from
// the configured origins.
func (s *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	return slices.Contains(s.allowedOrigins, origin)
}
