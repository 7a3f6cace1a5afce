package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"storyreel/internal/jobs"
	"storyreel/internal/logging"
	"storyreel/internal/notifications"
	"storyreel/internal/services"
	"storyreel/internal/services/ffmpeg"
	"storyreel/internal/story"
)

// StoryGenerator produces the scene list for a job.
type StoryGenerator interface {
	Generate(ctx context.Context, req story.GenerationRequest) (*story.GeneratedStory, error)
}

// ImageGenerator renders one scene image.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, width, height int, seed int64) ([]byte, error)
}

// SpeechSynthesizer voices one narration line.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// VideoAssembler builds clips and the final video.
type VideoAssembler interface {
	SceneClip(ctx context.Context, image, audio, out string, seconds float64, camera string) error
	Concat(ctx context.Context, clips []string, out string) error
	BurnSubtitles(ctx context.Context, video, srt, out string) error
	Resize(ctx context.Context, in, out string, width, height int) error
}

// JobStore is the slice of jobs.Store the runner writes to.
type JobStore interface {
	UpdateProgress(ctx context.Context, id string, status jobs.Status, progress float64, message string) error
	SaveStory(ctx context.Context, id, storyJSON string) error
	Complete(ctx context.Context, id, outputPath string) error
	Fail(ctx context.Context, id, reason string) error
}

// Notifier receives job results.
type Notifier interface {
	Publish(ctx context.Context, event notifications.Event, payload notifications.Payload) error
}

// Settings controls where assets land and how the final video is shaped.
type Settings struct {
	WorkDir       string
	OutputDir     string
	ImageWidth    int
	ImageHeight   int
	VideoWidth    int
	VideoHeight   int
	Language      string
	BurnSubtitles bool
	KeepWorkFiles bool
}

// ProgressFunc observes every status transition.
type ProgressFunc func(jobID string, status jobs.Status, progress float64, message string)

// Runner executes the render stages for one job.
type Runner struct {
	settings  Settings
	store     JobStore
	generator StoryGenerator
	images    ImageGenerator
	speech    SpeechSynthesizer
	video     VideoAssembler
	progress  ProgressFunc
	notifier  Notifier
	logger    *slog.Logger
}

// Option customizes the runner.
type Option func(*Runner)

// WithSpeech enables narration audio. Without it clips carry silent audio.
func WithSpeech(s SpeechSynthesizer) Option {
	return func(r *Runner) { r.speech = s }
}

// WithProgress registers a progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithNotifier publishes completion and failure events.
func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner wires the collaborators a render needs.
func NewRunner(settings Settings, store JobStore, generator StoryGenerator, images ImageGenerator, video VideoAssembler, opts ...Option) *Runner {
	if settings.ImageWidth <= 0 {
		settings.ImageWidth = 1080
	}
	if settings.ImageHeight <= 0 {
		settings.ImageHeight = 1920
	}
	if settings.VideoWidth <= 0 {
		settings.VideoWidth = settings.ImageWidth
	}
	if settings.VideoHeight <= 0 {
		settings.VideoHeight = settings.ImageHeight
	}
	r := &Runner{
		settings:  settings,
		store:     store,
		generator: generator,
		images:    images,
		video:     video,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "pipeline")
	return r
}

// OutputPath returns where the finished video for jobID is published.
func (r *Runner) OutputPath(jobID string) string {
	return filepath.Join(r.settings.OutputDir, jobID+".mp4")
}

// Run renders job end to end. The job is marked failed on any error, which is
// also returned.
func (r *Runner) Run(ctx context.Context, job *jobs.Job) error {
	if job == nil {
		return services.Wrap(services.ErrValidation, "pipeline", "run", "job is nil", nil)
	}
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("render started",
		logging.String("topic", job.Topic),
		logging.Float64("duration", job.Duration),
	)

	output, title, err := r.render(ctx, job)
	if err != nil {
		r.fail(ctx, logger, job, err)
		return err
	}
	if err := r.store.Complete(ctx, job.ID, output); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	job.Status = jobs.StatusCompleted
	job.Progress = 100
	job.OutputPath = output
	r.notify(job.ID, jobs.StatusCompleted, 100, "Video ready")
	logger.Info("render completed", logging.String("output_path", output))
	r.publish(ctx, logger, notifications.EventJobCompleted, notifications.Payload{
		"jobID":      job.ID,
		"title":      title,
		"topic":      job.Topic,
		"outputPath": output,
	})
	return nil
}

// render returns the published video path and the story title.
func (r *Runner) render(ctx context.Context, job *jobs.Job) (string, string, error) {
	if r.generator == nil || r.images == nil || r.video == nil {
		return "", "", services.Wrap(services.ErrConfiguration, "pipeline", "run", "runner is missing a collaborator", nil)
	}
	jobDir := filepath.Join(r.settings.WorkDir, job.ID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return "", "", services.Wrap(services.ErrConfiguration, "pipeline", "prepare", "create work directory", err)
	}
	if !r.settings.KeepWorkFiles {
		defer os.RemoveAll(jobDir)
	}

	generated, err := r.script(ctx, job)
	if err != nil {
		return "", "", err
	}
	images, err := r.sceneImages(ctx, job, jobDir, generated.Scenes)
	if err != nil {
		return "", "", err
	}
	audio, err := r.sceneAudio(ctx, job, jobDir, generated.Scenes)
	if err != nil {
		return "", "", err
	}
	clips, err := r.sceneClips(ctx, job, jobDir, generated.Scenes, images, audio)
	if err != nil {
		return "", "", err
	}
	output, err := r.assemble(ctx, job, jobDir, generated.Scenes, clips)
	if err != nil {
		return "", "", err
	}
	return output, generated.Title, nil
}

func (r *Runner) advance(ctx context.Context, job *jobs.Job, status jobs.Status, progress float64, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.store.UpdateProgress(ctx, job.ID, status, progress, message); err != nil {
		return fmt.Errorf("record progress: %w", err)
	}
	job.Status = status
	job.Progress = progress
	job.Message = message
	r.notify(job.ID, status, progress, message)
	return nil
}

func (r *Runner) notify(jobID string, status jobs.Status, progress float64, message string) {
	if r.progress != nil {
		r.progress(jobID, status, progress, message)
	}
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, job *jobs.Job, cause error) {
	if errors.Is(cause, context.Canceled) {
		r.requeue(ctx, logger, job)
		return
	}
	kind, hint := services.ErrorDetails(cause)
	message := strings.TrimSpace(cause.Error())
	logging.ErrorWithContext(logger, "render failed", "render_failed",
		logging.Error(cause),
		logging.String("error_kind", kind),
		logging.String(logging.FieldErrorHint, hint),
	)
	// The caller's context may already be cancelled; the failure still needs recording.
	if err := r.store.Fail(context.WithoutCancel(ctx), job.ID, message); err != nil {
		logger.Error("failed to persist render failure", logging.Error(err))
	}
	job.Status = jobs.StatusFailed
	job.ErrorMessage = message
	r.notify(job.ID, jobs.StatusFailed, job.Progress, message)
	r.publish(ctx, logger, notifications.EventJobFailed, notifications.Payload{
		"jobID": job.ID,
		"topic": job.Topic,
		"error": message,
	})
}

// requeue returns a job interrupted by shutdown to pending so the next
// worker renders it from the start.
func (r *Runner) requeue(ctx context.Context, logger *slog.Logger, job *jobs.Job) {
	logger.Info("render interrupted; job requeued", logging.String("reason", jobs.WorkerStopReason))
	if err := r.store.UpdateProgress(context.WithoutCancel(ctx), job.ID, jobs.StatusPending, 0, jobs.WorkerStopReason); err != nil {
		logger.Error("failed to requeue interrupted job", logging.Error(err))
	}
	job.Status = jobs.StatusPending
	job.Progress = 0
	job.Message = jobs.WorkerStopReason
	r.notify(job.ID, jobs.StatusPending, 0, jobs.WorkerStopReason)
}

// publish never fails the job; a lost push is only logged.
func (r *Runner) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

func scenePath(dir, prefix string, index int, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%02d.%s", prefix, index, ext))
}

// sceneSeed keeps image seeds stable for a job so a re-render reproduces the
// same frames.
func sceneSeed(jobID string, index int) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(jobID))
	return int64(h.Sum32()) + int64(index)
}

func encodeStory(generated *story.GeneratedStory) (string, error) {
	data, err := json.Marshal(generated)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var _ VideoAssembler = (*ffmpeg.Runner)(nil)
