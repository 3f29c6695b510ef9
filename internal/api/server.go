package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"slidecast/internal/config"
	"slidecast/internal/deck"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/stage"
)

// Workflow is the slice of the manager the HTTP facade needs.
type Workflow interface {
	Submit(ctx context.Context, sourceName, sourcePath string, settings deck.Settings) (*queue.Job, error)
	PreviewNotes(ctx context.Context, sourcePath string) ([]deck.SlideNote, error)
	Health(ctx context.Context) []stage.Health
}

// Server exposes the conversion service over HTTP.
type Server struct {
	cfg      *config.Config
	store    *queue.Store
	workflow Workflow
	logger   *slog.Logger

	httpServer *http.Server
}

// NewServer constructs the HTTP facade.
func NewServer(cfg *config.Config, store *queue.Store, wf Workflow, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		workflow: wf,
		logger:   logging.NewComponentLogger(logger, "api"),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Paths.APIBind,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route tree. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.correlate)

	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", s.handleSubmit)
		r.Get("/jobs", s.handleList)
		r.Route("/jobs/{id}", func(r chi.Router) {
			r.Get("/", s.handleStatus)
			r.Get("/log", s.handleLog)
			r.Get("/video", s.handleVideo)
		})
		r.Post("/notes/preview", s.handlePreviewNotes)
	})
	r.Get("/healthz", s.handleHealth)
	return r
}

// correlate tags every request with a correlation id carried through the
// context and echoed back to the client.
func (s *Server) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := services.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start begins serving and blocks until ctx is cancelled or the listener
// fails. Shutdown drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("api listening", logging.String("bind", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
