package http

import (
	"context"
	"net/http"

	"github.com/northmart/reco-backend/internal/cfg"
)

// лимит на суммарный размер заголовков запроса
const maxHeaderBytes = 1 << 20

// Server — тонкая обёртка над http.Server с graceful shutdown.
type Server struct {
	httpServer *http.Server
}

func NewServer(handler http.Handler, cfg *cfg.HTTPConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    maxHeaderBytes,
		},
	}
}

// Run блокируется до остановки сервера.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Stop дожидается завершения активных запросов в пределах ctx.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
