package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"storyreel/internal/fileutil"
	"storyreel/internal/jobs"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/services/ffmpeg"
	"storyreel/internal/story"
)

const (
	progressScript = 15
	progressImages = 30
	progressVoice  = 45
	progressVideo  = 60
	progressRender = 85
)

func (r *Runner) script(ctx context.Context, job *jobs.Job) (*story.GeneratedStory, error) {
	if err := r.advance(ctx, job, jobs.StatusGeneratingScript, progressScript, "Writing script"); err != nil {
		return nil, err
	}
	ctx = services.WithStage(ctx, string(jobs.StatusGeneratingScript))
	generated, err := r.generator.Generate(ctx, story.GenerationRequest{Topic: job.Topic, DurationSeconds: job.Duration})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "script", "generate", "story generation failed", err)
	}
	if len(generated.Scenes) == 0 {
		return nil, services.Wrap(services.ErrValidation, "script", "generate", "story has no scenes", nil)
	}
	encoded, err := encodeStory(generated)
	if err != nil {
		return nil, fmt.Errorf("encode story: %w", err)
	}
	if err := r.store.SaveStory(ctx, job.ID, encoded); err != nil {
		return nil, fmt.Errorf("save story: %w", err)
	}
	job.StoryJSON = encoded
	logging.WithContext(ctx, r.logger).Info("script ready",
		logging.String("title", generated.Title),
		logging.Int("scenes", generated.TotalScenes),
		logging.String("source", string(generated.Source)),
	)
	return generated, nil
}

func (r *Runner) sceneImages(ctx context.Context, job *jobs.Job, dir string, scenes []story.Scene) ([]string, error) {
	if err := r.advance(ctx, job, jobs.StatusGeneratingImages, progressImages, fmt.Sprintf("Generating %d images", len(scenes))); err != nil {
		return nil, err
	}
	ctx = services.WithStage(ctx, string(jobs.StatusGeneratingImages))
	paths := make([]string, len(scenes))
	for i, scene := range scenes {
		data, err := r.images.Generate(ctx, scene.VisualDescription, r.settings.ImageWidth, r.settings.ImageHeight, sceneSeed(job.ID, scene.Index))
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "images", "generate", fmt.Sprintf("scene %d", scene.Index), err)
		}
		path := scenePath(dir, "scene", scene.Index, "png")
		if err := fileutil.WriteFileAtomic(path, data); err != nil {
			return nil, fmt.Errorf("write scene image: %w", err)
		}
		paths[i] = path
	}
	return paths, nil
}

func (r *Runner) sceneAudio(ctx context.Context, job *jobs.Job, dir string, scenes []story.Scene) ([]string, error) {
	if err := r.advance(ctx, job, jobs.StatusGeneratingVoice, progressVoice, "Synthesizing narration"); err != nil {
		return nil, err
	}
	paths := make([]string, len(scenes))
	if r.speech == nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "speech not configured", "speech_skipped",
			logging.String(logging.FieldErrorHint, "set speech.base_url to voice narration"),
			logging.String(logging.FieldImpact, "video renders with silent audio"),
		)
		return paths, nil
	}
	ctx = services.WithStage(ctx, string(jobs.StatusGeneratingVoice))
	for i, scene := range scenes {
		text := strings.TrimSpace(scene.Narration)
		if text == "" {
			continue
		}
		data, err := r.speech.Synthesize(ctx, text, r.settings.Language)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "voice", "synthesize", fmt.Sprintf("scene %d", scene.Index), err)
		}
		path := scenePath(dir, "scene", scene.Index, "mp3")
		if err := fileutil.WriteFileAtomic(path, data); err != nil {
			return nil, fmt.Errorf("write scene audio: %w", err)
		}
		paths[i] = path
	}
	return paths, nil
}

func (r *Runner) sceneClips(ctx context.Context, job *jobs.Job, dir string, scenes []story.Scene, images, audio []string) ([]string, error) {
	if err := r.advance(ctx, job, jobs.StatusGeneratingVideo, progressVideo, "Building scene clips"); err != nil {
		return nil, err
	}
	ctx = services.WithStage(ctx, string(jobs.StatusGeneratingVideo))
	clips := make([]string, len(scenes))
	for i, scene := range scenes {
		clip := scenePath(dir, "clip", scene.Index, "mp4")
		if err := r.video.SceneClip(ctx, images[i], audio[i], clip, scene.DurationSeconds, scene.CameraMovement); err != nil {
			return nil, err
		}
		clips[i] = clip
	}
	return clips, nil
}

func (r *Runner) assemble(ctx context.Context, job *jobs.Job, dir string, scenes []story.Scene, clips []string) (string, error) {
	if err := r.advance(ctx, job, jobs.StatusRendering, progressRender, "Rendering final video"); err != nil {
		return "", err
	}
	ctx = services.WithStage(ctx, string(jobs.StatusRendering))

	current := filepath.Join(dir, "joined.mp4")
	if err := r.video.Concat(ctx, clips, current); err != nil {
		return "", err
	}

	texts := make([]string, len(scenes))
	durations := make([]float64, len(scenes))
	for i, scene := range scenes {
		texts[i] = scene.Narration
		durations[i] = scene.DurationSeconds
	}
	srtPath := filepath.Join(dir, "subtitles.srt")
	if err := ffmpeg.WriteSRT(srtPath, ffmpeg.CuesFromDurations(texts, durations)); err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}
	if r.settings.BurnSubtitles {
		subtitled := filepath.Join(dir, "subtitled.mp4")
		if err := r.video.BurnSubtitles(ctx, current, srtPath, subtitled); err != nil {
			return "", err
		}
		current = subtitled
	}

	final := filepath.Join(dir, "final.mp4")
	if err := r.video.Resize(ctx, current, final, r.settings.VideoWidth, r.settings.VideoHeight); err != nil {
		return "", err
	}
	output := r.OutputPath(job.ID)
	if err := fileutil.MoveFile(final, output); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "rendering", "publish", "move video to output directory", err)
	}
	return output, nil
}
