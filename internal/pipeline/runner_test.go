package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"storyreel/internal/jobs"
	"storyreel/internal/notifications"
	"storyreel/internal/pipeline"
	"storyreel/internal/services"
	"storyreel/internal/story"
	"storyreel/internal/testsupport"
)

type fakeImages struct {
	mu      sync.Mutex
	prompts []string
	seeds   []int64
	failAt  int
}

func (f *fakeImages) Generate(_ context.Context, prompt string, width, height int, seed int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.seeds = append(f.seeds, seed)
	if f.failAt > 0 && len(f.prompts) == f.failAt {
		return nil, errors.New("image service returned 503")
	}
	return []byte("png:" + prompt), nil
}

type fakeSpeech struct {
	texts []string
	langs []string
	err   error
}

func (f *fakeSpeech) Synthesize(_ context.Context, text, lang string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.texts = append(f.texts, text)
	f.langs = append(f.langs, lang)
	return []byte("mp3:" + text), nil
}

type fakeVideo struct {
	clips      []string
	clipAudio  []string
	clipSecs   []float64
	cameras    []string
	concatIn   []string
	burned     string
	resizeIn   string
	resizeSize [2]int
}

func touch(path string) error {
	return os.WriteFile(path, []byte("video"), 0o644)
}

func (f *fakeVideo) SceneClip(_ context.Context, image, audio, out string, seconds float64, camera string) error {
	if _, err := os.Stat(image); err != nil {
		return err
	}
	f.clips = append(f.clips, out)
	f.clipAudio = append(f.clipAudio, audio)
	f.clipSecs = append(f.clipSecs, seconds)
	f.cameras = append(f.cameras, camera)
	return touch(out)
}

func (f *fakeVideo) Concat(_ context.Context, clips []string, out string) error {
	f.concatIn = append([]string(nil), clips...)
	return touch(out)
}

func (f *fakeVideo) BurnSubtitles(_ context.Context, video, srt, out string) error {
	data, err := os.ReadFile(srt)
	if err != nil {
		return err
	}
	f.burned = string(data)
	return touch(out)
}

func (f *fakeVideo) Resize(_ context.Context, in, out string, width, height int) error {
	f.resizeIn = in
	f.resizeSize = [2]int{width, height}
	return touch(out)
}

type progressLog struct {
	mu      sync.Mutex
	entries []string
}

func (p *progressLog) record(_ string, status jobs.Status, progress float64, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, fmt.Sprintf("%s:%g", status, progress))
}

func newRunner(t *testing.T, store *jobs.Store, images *fakeImages, speech *fakeSpeech, video *fakeVideo, progress *progressLog, burn bool) (*pipeline.Runner, pipeline.Settings) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	settings := pipeline.Settings{
		WorkDir:       cfg.Paths.WorkDir,
		OutputDir:     cfg.Paths.OutputDir,
		ImageWidth:    720,
		ImageHeight:   1280,
		VideoWidth:    1080,
		VideoHeight:   1920,
		Language:      "ko",
		BurnSubtitles: burn,
	}
	opts := []pipeline.Option{}
	if speech != nil {
		opts = append(opts, pipeline.WithSpeech(speech))
	}
	if progress != nil {
		opts = append(opts, pipeline.WithProgress(progress.record))
	}
	generator := story.NewGenerator(story.DefaultOptions())
	return pipeline.NewRunner(settings, store, generator, images, video, opts...), settings
}

func TestRunnerRendersJob(t *testing.T) {
	store := testsupport.NewJobStore(t)
	job := testsupport.NewJob(t, store, "행복한 제빵사의 아침", 28)

	images := &fakeImages{}
	speech := &fakeSpeech{}
	video := &fakeVideo{}
	progress := &progressLog{}
	runner, settings := newRunner(t, store, images, speech, video, progress, true)

	if err := runner.Run(context.Background(), job); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stored, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := filepath.Join(settings.OutputDir, job.ID+".mp4")
	if stored.Status != jobs.StatusCompleted || stored.Progress != 100 || stored.OutputPath != want {
		t.Fatalf("unexpected completed job: %+v", stored)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected published video: %v", err)
	}

	var generated story.GeneratedStory
	if err := json.Unmarshal([]byte(stored.StoryJSON), &generated); err != nil {
		t.Fatalf("story json: %v", err)
	}
	if generated.TotalScenes != 7 || len(generated.Scenes) != 7 {
		t.Fatalf("expected 7 scenes, got %d", generated.TotalScenes)
	}

	if len(images.prompts) != 7 || images.prompts[0] != generated.Scenes[0].VisualDescription {
		t.Fatalf("unexpected image prompts: %v", images.prompts)
	}
	if images.seeds[0] == images.seeds[1] {
		t.Fatalf("expected distinct seeds per scene: %v", images.seeds)
	}
	if len(speech.texts) != 7 || speech.langs[0] != "ko" {
		t.Fatalf("unexpected speech calls: %v %v", speech.texts, speech.langs)
	}
	if len(video.clips) != 7 || !strings.HasSuffix(video.clips[0], "clip_01.mp4") {
		t.Fatalf("unexpected clips: %v", video.clips)
	}
	if !strings.HasSuffix(video.clipAudio[0], "scene_01.mp3") {
		t.Fatalf("expected scene audio path, got %q", video.clipAudio[0])
	}
	if video.clipSecs[0] != 4 || video.cameras[0] != generated.Scenes[0].CameraMovement {
		t.Fatalf("unexpected clip timing %v camera %v", video.clipSecs, video.cameras)
	}
	if len(video.concatIn) != 7 {
		t.Fatalf("expected 7 clips concatenated, got %d", len(video.concatIn))
	}
	if !strings.Contains(video.burned, "00:00:00,000 --> 00:00:04,000") || !strings.Contains(video.burned, generated.Scenes[0].Narration) {
		t.Fatalf("unexpected subtitles:\n%s", video.burned)
	}
	if !strings.HasSuffix(video.resizeIn, "subtitled.mp4") || video.resizeSize != [2]int{1080, 1920} {
		t.Fatalf("unexpected resize call %q %v", video.resizeIn, video.resizeSize)
	}

	if _, err := os.Stat(filepath.Join(settings.WorkDir, job.ID)); !os.IsNotExist(err) {
		t.Fatalf("expected work dir cleanup, stat err=%v", err)
	}

	wantProgress := []string{
		"generating_script:15",
		"generating_images:30",
		"generating_voice:45",
		"generating_video:60",
		"rendering:85",
		"completed:100",
	}
	if strings.Join(progress.entries, ",") != strings.Join(wantProgress, ",") {
		t.Fatalf("unexpected progress sequence %v", progress.entries)
	}
}

func TestRunnerWithoutSpeechUsesSilentClips(t *testing.T) {
	store := testsupport.NewJobStore(t)
	job := testsupport.NewJob(t, store, "우주 고양이", 20)
	video := &fakeVideo{}
	runner, _ := newRunner(t, store, &fakeImages{}, nil, video, nil, false)

	if err := runner.Run(context.Background(), job); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i, audio := range video.clipAudio {
		if audio != "" {
			t.Fatalf("clip %d: expected silent audio, got %q", i, audio)
		}
	}
	if video.burned != "" || !strings.HasSuffix(video.resizeIn, "joined.mp4") {
		t.Fatalf("subtitles should not be burned: burned=%q resizeIn=%q", video.burned, video.resizeIn)
	}
}

func TestRunnerMarksJobFailedOnCollaboratorError(t *testing.T) {
	store := testsupport.NewJobStore(t)
	job := testsupport.NewJob(t, store, "택시 기사의 하루", 20)
	speech := &fakeSpeech{err: errors.New("tts offline")}
	runner, _ := newRunner(t, store, &fakeImages{}, speech, &fakeVideo{}, nil, true)

	err := runner.Run(context.Background(), job)
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}

	stored, _ := store.Get(context.Background(), job.ID)
	if stored.Status != jobs.StatusFailed {
		t.Fatalf("expected failed status, got %s", stored.Status)
	}
	if stored.Progress != 45 {
		t.Fatalf("expected progress kept at 45, got %v", stored.Progress)
	}
	if !strings.Contains(stored.ErrorMessage, "tts offline") {
		t.Fatalf("expected error message recorded, got %q", stored.ErrorMessage)
	}
	if stored.StoryJSON == "" {
		t.Fatal("story json should be saved before the failure")
	}
}

func TestRunnerImageFailure(t *testing.T) {
	store := testsupport.NewJobStore(t)
	job := testsupport.NewJob(t, store, "topic", 20)
	runner, _ := newRunner(t, store, &fakeImages{failAt: 2}, &fakeSpeech{}, &fakeVideo{}, nil, true)

	if err := runner.Run(context.Background(), job); err == nil {
		t.Fatal("expected failure")
	}
	stored, _ := store.Get(context.Background(), job.ID)
	if stored.Status != jobs.StatusFailed || stored.Progress != 30 {
		t.Fatalf("unexpected job state %+v", stored)
	}
}

func TestRunnerCancelledContext(t *testing.T) {
	store := testsupport.NewJobStore(t)
	job := testsupport.NewJob(t, store, "topic", 20)
	runner, _ := newRunner(t, store, &fakeImages{}, &fakeSpeech{}, &fakeVideo{}, nil, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := runner.Run(ctx, job); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	stored, _ := store.Get(context.Background(), job.ID)
	if stored.Status != jobs.StatusPending || stored.Message != jobs.WorkerStopReason || stored.ErrorMessage != "" {
		t.Fatalf("expected interrupted job back in the queue, got %+v", stored)
	}
	next, err := store.NextPending(context.Background())
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.ID != job.ID {
		t.Fatalf("expected interrupted job to be picked up again, got %+v", next)
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	events   []notifications.Event
	payloads []notifications.Payload
	err      error
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.payloads = append(n.payloads, payload)
	return n.err
}

func TestRunnerPublishesResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	settings := pipeline.Settings{WorkDir: cfg.Paths.WorkDir, OutputDir: cfg.Paths.OutputDir, Language: "ko"}
	generator := story.NewGenerator(story.DefaultOptions())

	t.Run("completed", func(t *testing.T) {
		store := testsupport.NewJobStore(t)
		job := testsupport.NewJob(t, store, "선녀와 나무꾼", 30)
		// A failing notifier must not fail the render.
		notifier := &recordingNotifier{err: errors.New("ntfy down")}
		runner := pipeline.NewRunner(settings, store, generator, &fakeImages{}, &fakeVideo{}, pipeline.WithNotifier(notifier))

		if err := runner.Run(context.Background(), job); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if len(notifier.events) != 1 || notifier.events[0] != notifications.EventJobCompleted {
			t.Fatalf("unexpected events %v", notifier.events)
		}
		payload := notifier.payloads[0]
		if payload["title"] != "선녀와 나무꾼" || payload["outputPath"] != runner.OutputPath(job.ID) {
			t.Fatalf("unexpected payload %v", payload)
		}
	})

	t.Run("failed", func(t *testing.T) {
		store := testsupport.NewJobStore(t)
		job := testsupport.NewJob(t, store, "우주 고양이", 20)
		notifier := &recordingNotifier{}
		runner := pipeline.NewRunner(settings, store, generator, &fakeImages{failAt: 1}, &fakeVideo{}, pipeline.WithNotifier(notifier))

		if err := runner.Run(context.Background(), job); err == nil {
			t.Fatal("expected failure")
		}
		if len(notifier.events) != 1 || notifier.events[0] != notifications.EventJobFailed {
			t.Fatalf("unexpected events %v", notifier.events)
		}
		if notifier.payloads[0]["topic"] != "우주 고양이" || notifier.payloads[0]["error"] == "" {
			t.Fatalf("unexpected payload %v", notifier.payloads[0])
		}
	})

	t.Run("cancelled jobs stay quiet", func(t *testing.T) {
		store := testsupport.NewJobStore(t)
		job := testsupport.NewJob(t, store, "topic", 20)
		notifier := &recordingNotifier{}
		runner := pipeline.NewRunner(settings, store, generator, &fakeImages{}, &fakeVideo{}, pipeline.WithNotifier(notifier))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = runner.Run(ctx, job)
		if len(notifier.events) != 0 {
			t.Fatalf("expected no events for a cancelled job, got %v", notifier.events)
		}
	})
}
