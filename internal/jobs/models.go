package jobs

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a render job.
type Status string

const (
	StatusPending          Status = "pending"
	StatusGeneratingScript Status = "generating_script"
	StatusGeneratingImages Status = "generating_images"
	StatusGeneratingVoice  Status = "generating_voice"
	StatusGeneratingVideo  Status = "generating_video"
	StatusRendering        Status = "rendering"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// WorkerStopReason is the message left on jobs requeued by a worker shutdown.
const WorkerStopReason = "Worker stopped"

var allStatuses = []Status{
	StatusPending,
	StatusGeneratingScript,
	StatusGeneratingImages,
	StatusGeneratingVoice,
	StatusGeneratingVideo,
	StatusRendering,
	StatusCompleted,
	StatusFailed,
}

var processingStatuses = map[Status]struct{}{
	StatusGeneratingScript: {},
	StatusGeneratingImages: {},
	StatusGeneratingVoice:  {},
	StatusGeneratingVideo:  {},
	StatusRendering:        {},
}

// AllStatuses returns every known status in pipeline order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts user input to a Status.
func ParseStatus(value string) (Status, error) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q", value)
}

// IsProcessing reports whether the status belongs to an active pipeline stage.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// IsTerminal reports whether the job has finished, successfully or not.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one persisted render request.
type Job struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	Duration     float64   `json:"duration"`
	Status       Status    `json:"status"`
	Progress     float64   `json:"progress"`
	Message      string    `json:"message,omitempty"`
	ErrorMessage string    `json:"error,omitempty"`
	StoryJSON    string    `json:"-"`
	OutputPath   string    `json:"output_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Summary aggregates job counts for diagnostics.
type Summary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
