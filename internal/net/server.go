package net

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/starfall/server/internal/config"
	"github.com/starfall/server/internal/system"
	"github.com/starfall/server/internal/wire"
	"go.uber.org/zap"
)

// Server terminates WebSocket connections and serves the ops endpoints.
type Server struct {
	cfg     *config.Config
	router  *wire.Router
	env     *system.Env
	metrics http.Handler
	log     *zap.Logger

	httpSrv  *http.Server
	upgrader websocket.Upgrader

	// base context for session lifetimes; cancelled on shutdown.
	ctx context.Context
}

// NewServer wires the HTTP mux. metricsHandler serves /metrics (usually
// promhttp over the server's registry).
func NewServer(cfg *config.Config, router *wire.Router, env *system.Env, metricsHandler http.Handler, log *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		router:  router,
		env:     env,
		metrics: metricsHandler,
		log:     log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.Network.AllowedOrigins),
		AllowedMethods: []string{"GET", "OPTIONS"},
		MaxAge:         300,
	}))
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", s.handleHealth)
	r.Method("GET", "/metrics", metricsHandler)

	s.httpSrv = &http.Server{
		Addr:    cfg.Network.BindAddress,
		Handler: r,
	}
	return s
}

func allowedOrigins(configured []string) []string {
	if len(configured) == 0 {
		return []string{"*"}
	}
	return configured
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := s.cfg.Network.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// Start serves until ctx is cancelled, then drains with a grace period.
func (s *Server) Start(ctx context.Context) error {
	s.ctx = ctx
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.httpSrv.Addr))
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	sess := NewSession(s.ctx, conn, s.router, s.cfg, s.env)
	go sess.Run()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
