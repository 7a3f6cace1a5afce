package api

import (
	"encoding/json"
	"time"

	"storyreel/internal/jobs"
	"storyreel/internal/story"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// GenerateRequest is the body of /generate-story and POST /api/jobs.
type GenerateRequest struct {
	Prompt   string   `json:"prompt"`
	Duration *float64 `json:"duration,omitempty"`
}

// StoryResponse wraps a generated story.
type StoryResponse struct {
	Success bool                  `json:"success"`
	Story   *story.GeneratedStory `json:"story"`
}

// Job is the transport representation of a render job.
type Job struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	Duration   float64         `json:"duration"`
	Status     string          `json:"status"`
	Progress   float64         `json:"progress"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	OutputPath string          `json:"output_path,omitempty"`
	CreatedAt  string          `json:"created_at,omitempty"`
	UpdatedAt  string          `json:"updated_at,omitempty"`
	Story      json.RawMessage `json:"story,omitempty"`
}

// JobResponse wraps one job.
type JobResponse struct {
	Success bool `json:"success"`
	Job     Job  `json:"job"`
}

// JobListResponse wraps a job listing.
type JobListResponse struct {
	Success bool  `json:"success"`
	Jobs    []Job `json:"jobs"`
}

// MatchMusicRequest is the body of /match-music.
type MatchMusicRequest struct {
	Mood  string `json:"mood"`
	Genre string `json:"genre"`
	Title string `json:"title"`
}

// MatchMusicResponse carries the matched track.
type MatchMusicResponse struct {
	Success bool        `json:"success"`
	Music   story.Track `json:"music"`
	Mood    string      `json:"mood"`
	Genre   string      `json:"genre"`
}

// MusicListResponse lists the music library.
type MusicListResponse struct {
	Success      bool          `json:"success"`
	MusicLibrary []story.Track `json:"music_library"`
	TotalCount   int           `json:"total_count"`
}

// HealthCheck is one collaborator readiness line.
type HealthCheck struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string        `json:"status"`
	Service   string        `json:"service"`
	Timestamp string        `json:"timestamp"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// FromJob converts a persisted job into its transport form.
func FromJob(job *jobs.Job, includeStory bool) Job {
	if job == nil {
		return Job{}
	}
	out := Job{
		ID:         job.ID,
		Topic:      job.Topic,
		Duration:   job.Duration,
		Status:     string(job.Status),
		Progress:   job.Progress,
		Message:    job.Message,
		Error:      job.ErrorMessage,
		OutputPath: job.OutputPath,
		CreatedAt:  formatTime(job.CreatedAt),
		UpdatedAt:  formatTime(job.UpdatedAt),
	}
	if includeStory && job.StoryJSON != "" && json.Valid([]byte(job.StoryJSON)) {
		out.Story = json.RawMessage(job.StoryJSON)
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
