package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"storyreel/internal/jobs"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/story"
)

const (
	defaultPrompt   = "선녀와 나무꾼"
	defaultDuration    = 30.0
	defaultMaxDuration = 300.0
	maxBodyBytes       = 1 << 20
	defaultMood        = "peaceful"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Service:   "storyreel",
		Timestamp: time.Now().UTC().Format(dateTimeFormat),
	}
	if s.deps.Health != nil {
		resp.Checks = s.deps.Health(r.Context())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerateStory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Generator == nil {
		writeError(w, r, http.StatusServiceUnavailable, "story generator not configured")
		return
	}
	req, ok := s.decodeGenerateRequest(w, r)
	if !ok {
		return
	}
	generated, err := s.deps.Generator.Generate(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StoryResponse{Success: true, Story: generated})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeError(w, r, http.StatusServiceUnavailable, "job queue not configured")
		return
	}
	req, ok := s.decodeGenerateRequest(w, r)
	if !ok {
		return
	}
	job, err := s.deps.Jobs.Create(r.Context(), req.Topic, req.DurationSeconds)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if s.deps.Worker != nil {
		s.deps.Worker.Notify()
	}
	logging.WithContext(r.Context(), s.logger).Info("job queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("topic", job.Topic),
	)
	w.Header().Set("Location", "/api/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, JobResponse{Success: true, Job: FromJob(job, false)})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeError(w, r, http.StatusServiceUnavailable, "job queue not configured")
		return
	}
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, err := jobs.ParseStatus(value)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		statuses = append(statuses, status)
	}
	list, err := s.deps.Jobs.List(r.Context(), statuses...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]Job, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job, false))
	}
	writeJSON(w, http.StatusOK, JobListResponse{Success: true, Jobs: out})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeError(w, r, http.StatusServiceUnavailable, "job queue not configured")
		return
	}
	id := mux.Vars(r)["id"]
	job, err := s.deps.Jobs.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if job == nil {
		writeError(w, r, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, JobResponse{Success: true, Job: FromJob(job, true)})
}

func (s *Server) handleMatchMusic(w http.ResponseWriter, r *http.Request) {
	var req MatchMusicRequest
	if !decodeBody(w, r, &req) {
		return
	}
	mood := strings.TrimSpace(req.Mood)
	if mood == "" {
		mood = defaultMood
	}
	genre := strings.TrimSpace(req.Genre)
	track := s.deps.Music.Match(mood, genre)
	logging.WithContext(r.Context(), s.logger).Debug("music matched",
		logging.String("title", req.Title),
		logging.String("mood", mood),
		logging.String("track", track.Key),
	)
	writeJSON(w, http.StatusOK, MatchMusicResponse{Success: true, Music: track, Mood: mood, Genre: genre})
}

func (s *Server) handleListMusic(w http.ResponseWriter, _ *http.Request) {
	tracks := s.deps.Music.Tracks()
	writeJSON(w, http.StatusOK, MusicListResponse{Success: true, MusicLibrary: tracks, TotalCount: len(tracks)})
}

// decodeGenerateRequest applies the defaults: a missing prompt tells the
// 선녀와 나무꾼 tale and a missing duration means thirty seconds.
func (s *Server) decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (story.GenerationRequest, bool) {
	var body GenerateRequest
	if !decodeBody(w, r, &body) {
		return story.GenerationRequest{}, false
	}
	prompt := strings.TrimSpace(body.Prompt)
	if prompt == "" {
		prompt = defaultPrompt
	}
	duration := defaultDuration
	if body.Duration != nil {
		duration = *body.Duration
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) {
		duration = defaultDuration
	}
	if duration > s.deps.MaxDuration {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("duration must be at most %g seconds", s.deps.MaxDuration))
		return story.GenerationRequest{}, false
	}
	return story.GenerationRequest{Topic: prompt, DurationSeconds: duration}, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case r.Context().Err() != nil:
		status = http.StatusServiceUnavailable
	}
	kind, hint := services.ErrorDetails(err)
	logging.WithContext(r.Context(), s.logger).Warn("request failed",
		logging.Error(err),
		logging.String("error_kind", kind),
		logging.String(logging.FieldErrorHint, hint),
		logging.Int("status", status),
	)
	writeError(w, r, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := ErrorResponse{Success: false, Error: message}
	if id, ok := services.RequestIDFromContext(r.Context()); ok {
		resp.RequestID = id
	}
	writeJSON(w, status, resp)
}
