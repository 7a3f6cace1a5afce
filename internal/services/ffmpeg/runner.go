package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"storyreel/internal/logging"
	"storyreel/internal/services"
)

const (
	defaultBinary = "ffmpeg"
	defaultFPS    = 30
	defaultWidth  = 1080
	defaultHeight = 1920
	audioBitrate  = "192k"
)

// CommandRunner executes a binary with args. Tests replace it to capture calls.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Runner drives the ffmpeg CLI for every video assembly step.
type Runner struct {
	binary string
	fps    int
	width  int
	height int
	run    CommandRunner
	logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithCommandRunner injects a custom command runner (primarily for tests).
func WithCommandRunner(run CommandRunner) Option {
	return func(r *Runner) {
		if run != nil {
			r.run = run
		}
	}
}

// WithFrameSize sets the clip resolution. Non-positive values keep the default.
func WithFrameSize(width, height int) Option {
	return func(r *Runner) {
		if width > 0 && height > 0 {
			r.width, r.height = width, height
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Runner. An empty binary means "ffmpeg" from PATH.
func New(binary string, fps int, opts ...Option) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = defaultBinary
	}
	if fps <= 0 {
		fps = defaultFPS
	}
	r := &Runner{
		binary: binary,
		fps:    fps,
		width:  defaultWidth,
		height: defaultHeight,
		run:    defaultCommandRunner,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "ffmpeg")
	return r
}

// Binary returns the configured executable.
func (r *Runner) Binary() string { return r.binary }

// SceneClip renders a still image with camera motion for seconds. An empty
// audio path produces a silent track so every clip has the same streams.
func (r *Runner) SceneClip(ctx context.Context, image, audio, out string, seconds float64, camera string) error {
	if strings.TrimSpace(image) == "" {
		return services.Wrap(services.ErrValidation, "render", "scene clip", "image path required", nil)
	}
	if seconds <= 0 {
		return services.Wrap(services.ErrValidation, "render", "scene clip", fmt.Sprintf("invalid duration %v", seconds), nil)
	}
	args := []string{"-y", "-loop", "1", "-i", image}
	if strings.TrimSpace(audio) != "" {
		args = append(args, "-i", audio)
	} else {
		args = append(args, "-f", "lavfi", "-i", "anullsrc=r=44100:cl=stereo")
	}
	frames := int(seconds*float64(r.fps) + 0.5)
	args = append(args,
		"-vf", MotionFilter(camera, frames, r.fps, r.width, r.height),
		"-af", "apad",
		"-t", formatSeconds(seconds),
		"-r", strconv.Itoa(r.fps),
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", audioBitrate,
		out,
	)
	return r.exec(ctx, "scene clip", args)
}

// Concat joins clips with the concat demuxer without re-encoding.
func (r *Runner) Concat(ctx context.Context, clips []string, out string) error {
	if len(clips) == 0 {
		return services.Wrap(services.ErrValidation, "render", "concat", "no clips", nil)
	}
	listPath := strings.TrimSuffix(out, filepath.Ext(out)) + "_concat.txt"
	var b strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return fmt.Errorf("resolve clip %q: %w", clip, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", out}
	return r.exec(ctx, "concat", args)
}

// Mux lays audio under video, copying the video stream.
func (r *Runner) Mux(ctx context.Context, video, audio, out string) error {
	args := []string{
		"-y", "-i", video, "-i", audio,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", audioBitrate,
		"-shortest",
		"-movflags", "+faststart",
		out,
	}
	return r.exec(ctx, "mux", args)
}

// BurnSubtitles renders an SRT file into the picture.
func (r *Runner) BurnSubtitles(ctx context.Context, video, srt, out string) error {
	filter := fmt.Sprintf("subtitles=%s:force_style='FontSize=14,Alignment=2,MarginV=60,Outline=2'", escapeFilterPath(srt))
	args := []string{"-y", "-i", video, "-vf", filter, "-c:v", "libx264", "-preset", "fast", "-pix_fmt", "yuv420p", "-c:a", "copy", out}
	return r.exec(ctx, "burn subtitles", args)
}

// Resize letterboxes video into width x height.
func (r *Runner) Resize(ctx context.Context, in, out string, width, height int) error {
	if width <= 0 || height <= 0 {
		return services.Wrap(services.ErrValidation, "render", "resize", fmt.Sprintf("invalid size %dx%d", width, height), nil)
	}
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		width, height, width, height)
	args := []string{"-y", "-i", in, "-vf", filter, "-c:v", "libx264", "-preset", "fast", "-pix_fmt", "yuv420p", "-c:a", "copy", "-movflags", "+faststart", out}
	return r.exec(ctx, "resize", args)
}

func (r *Runner) exec(ctx context.Context, op string, args []string) error {
	r.logger.Debug("ffmpeg command", logging.String("op", op), logging.String("args", strings.Join(args, " ")))
	if err := r.run(ctx, r.binary, args...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return services.Wrap(services.ErrConfiguration, "render", op, fmt.Sprintf("ffmpeg binary %q unavailable", r.binary), err)
		}
		return services.Wrap(services.ErrExternalTool, "render", op, "ffmpeg failed", err)
	}
	return nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, lastLines(string(output), 5))
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// escapeFilterPath escapes a path for use inside a filtergraph argument.
func escapeFilterPath(path string) string {
	r := strings.NewReplacer(`\`, `\\\\`, `:`, `\\:`, `'`, `\\\'`, `,`, `\,`)
	return r.Replace(path)
}
