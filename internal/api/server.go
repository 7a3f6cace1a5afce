package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"storyreel/internal/jobs"
	"storyreel/internal/logging"
	"storyreel/internal/story"
)

// StoryGenerator produces stories synchronously.
type StoryGenerator interface {
	Generate(ctx context.Context, req story.GenerationRequest) (*story.GeneratedStory, error)
}

// JobQueue is the slice of jobs.Store the API reads and writes.
type JobQueue interface {
	Create(ctx context.Context, topic string, duration float64) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	List(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error)
}

// Notifier is woken after a job is queued.
type Notifier interface {
	Notify()
}

// HealthFunc reports collaborator readiness for /health.
type HealthFunc func(ctx context.Context) []HealthCheck

// Deps wires the server to the rest of the application.
type Deps struct {
	Generator StoryGenerator
	Jobs      JobQueue
	Music     *story.MusicLibrary
	Worker    Notifier
	Health    HealthFunc
	Token     string
	Logger    *slog.Logger

	// MaxDuration rejects longer requests; zero means 300 seconds.
	MaxDuration float64
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	router *mux.Router
	logger *slog.Logger

	listener net.Listener
	server   *http.Server
}

// NewServer builds the router. Jobs may be nil, in which case the job routes
// answer 503.
func NewServer(deps Deps) *Server {
	logger := logging.NewComponentLogger(deps.Logger, "api")
	if deps.Music == nil {
		deps.Music = story.DefaultTables().Music
	}
	if deps.MaxDuration <= 0 {
		deps.MaxDuration = defaultMaxDuration
	}
	s := &Server{deps: deps, logger: logger}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware, corsMiddleware, loggingMiddleware(logger), authMiddleware(strings.TrimSpace(deps.Token), "/health"))
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/generate-story", s.handleGenerateStory).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/jobs", s.handleCreateJob).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/jobs", s.handleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	r.HandleFunc("/match-music", s.handleMatchMusic).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/list-music", s.handleListMusic).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on bind and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, bind string) error {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return errors.New("api bind address required")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for requests in flight.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
