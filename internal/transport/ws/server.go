package ws

import (
	"context"
	"net/http"
	"time"

	"clipsync-server-go/internal/domain/sync"
	"clipsync-server-go/internal/platform/logging"
)

const defaultCloseTimeout = 10 * time.Second

// ServerConfig stores the settings required to expose the websocket
// transport.
type ServerConfig struct {
	Addr             string
	Path             string
	HandshakeTimeout time.Duration
}

// Server owns the HTTP listener that accepts websocket upgrades.
type Server struct {
	cfg      ServerConfig
	handler  *Handler
	registry *sync.Registry
	logger   *logging.Logger
	httpSrv  *http.Server
}

// NewServer builds a websocket transport server.
func NewServer(cfg ServerConfig, handler *Handler, registry *sync.Registry, logger *logging.Logger) *Server {
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	return &Server{
		cfg:      cfg,
		handler:  handler,
		registry: registry,
		logger:   logger,
	}
}

// Start boots the HTTP server and listens for websocket upgrades. Blocks
// until the server stops; ctx cancellation triggers a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	if s.httpSrv != nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handler.Handle)

	s.httpSrv = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: mux,
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultCloseTimeout)
			defer cancel()
			_ = s.httpSrv.Shutdown(shutdownCtx)
		}()
	}

	s.logger.InfoTag("WebSocket", "listening on %s%s", s.cfg.Addr, s.cfg.Path)

	err := s.httpSrv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the listener and closes every live session.
func (s *Server) Stop() error {
	if s.httpSrv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultCloseTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
		return err
	}

	s.registry.CloseAll("server shutting down")
	s.httpSrv = nil
	return nil
}
