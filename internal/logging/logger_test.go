package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/services"
)

func noColor() *bool {
	v := false
	return &v
}

func newFileLogger(t *testing.T, format, level string) (func(), string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "test.log")
	logger, err := logging.New(logging.Options{
		Format:           format,
		Level:            level,
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
		Color:            noColor(),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return func() {
		ctx := services.WithJobID(context.Background(), "3f2a9c01-aaaa-bbbb-cccc-000000000000")
		ctx = services.WithStage(ctx, "generating_images")
		log := logging.WithContext(ctx, logging.NewComponentLogger(logger, "pipeline"))
		log.Info("image generated", logging.Int("scene", 2))
		log.Debug("debug detail", logging.String("prompt", "baker"))
	}, logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, "storyreel.log"))
	if !strings.Contains(content, "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerRendersSubjectAndFields(t *testing.T) {
	emit, path := newFileLogger(t, "console", "info")
	emit()

	content := readLog(t, path)
	if !strings.Contains(content, "INFO [pipeline] Job 3f2a9c01 (generating_images) – image generated") {
		t.Fatalf("unexpected header: %q", content)
	}
	if !strings.Contains(content, "    - scene: 2") {
		t.Fatalf("expected scene field, got %q", content)
	}
	if strings.Contains(content, "debug detail") {
		t.Fatalf("debug line should be filtered at info level: %q", content)
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatalf("expected no ANSI codes, got %q", content)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	emit, path := newFileLogger(t, "console", "debug")
	emit()

	content := readLog(t, path)
	if !strings.Contains(content, "debug detail") {
		t.Fatalf("expected debug line, got %q", content)
	}
	if !strings.Contains(content, ".go:") {
		t.Fatalf("expected source location in debug mode, got %q", content)
	}
}

func TestJSONLoggerUsesStableKeys(t *testing.T) {
	emit, path := newFileLogger(t, "json", "info")
	emit()

	line := strings.TrimSpace(strings.SplitN(readLog(t, path), "\n", 2)[0])
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, line)
	}
	for _, key := range []string{"ts", "level", "msg", "job_id", "stage", "component"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("expected key %q in %v", key, payload)
		}
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lower-case level, got %v", payload["level"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", OutputPaths: []string{filepath.Join(t.TempDir(), "x.log")}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "analyzer failed", "story_analysis_failed", logging.Error(errors.New("boom")))

	content := readLog(t, logPath)
	for _, want := range []string{`"event_type":"story_analysis_failed"`, `"error_hint"`, `"impact"`, `"error":"boom"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %s in %q", want, content)
		}
	}
}

func TestPruneOldKeepsActiveAndRecentLogs(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().AddDate(0, 0, -40)
	write := func(name string, mod time.Time) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
		return path
	}
	stale := write("job-old.log", old)
	active := write("storyreel.log", old)
	recent := write("job-new.log", time.Now())
	other := write("notes.txt", old)

	if removed := logging.PruneOld(logging.NewNop(), dir, 30); removed != 1 {
		t.Fatalf("expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale log removed, stat err=%v", err)
	}
	for _, keep := range []string{active, recent, other} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("expected %s to remain: %v", keep, err)
		}
	}
	if removed := logging.PruneOld(nil, dir, 0); removed != 0 {
		t.Fatalf("retention 0 should disable pruning, removed %d", removed)
	}
}
