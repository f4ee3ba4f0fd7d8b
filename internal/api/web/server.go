package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ortho-scan/internal/container"
)

// EventStream подписка клиента на события сессии
type EventStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, sessionID string)
}

// Server JSON API для загрузки снимков и отчётов
type Server struct {
	container *container.Container
	events    EventStream
	maxUpload int64
	logger    *slog.Logger
}

// NewServer events может быть nil, тогда /api/events не регистрируется
func NewServer(c *container.Container, events EventStream, maxUpload int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{container: c, events: events, maxUpload: maxUpload, logger: logger}
}

// Handler маршруты API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/patient", s.handleSavePatient)
	mux.HandleFunc("POST /api/scans", s.handleUpload)
	mux.HandleFunc("GET /api/scans", s.handleListScans)
	mux.HandleFunc("GET /api/scans/{id}/details", s.handleDetails)
	mux.HandleFunc("DELETE /api/scans/{id}", s.handleDeleteScan)
	mux.HandleFunc("POST /api/reports", s.handleGenerateReport)
	mux.HandleFunc("GET /api/reports/{name}", s.handleDownloadReport)
	mux.HandleFunc("GET /api/images/{kind}/{name}", s.handleImage)
	mux.HandleFunc("POST /api/session/clear", s.handleClear)
	if s.events != nil {
		mux.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
			s.events.ServeWS(w, r, sessionFrom(r))
		})
	}

	return withLogging(s.logger, withSession(mux))
}

// ListenAndServe обслуживает запросы до отмены контекста
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
