package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"storyreel/internal/api"
	"storyreel/internal/jobs"
)

func TestGenerateJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"generate", "선녀와", "나무꾼", "--duration", "28", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var resp api.StoryResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !resp.Success || resp.Story == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Story.Scenes) != 7 || resp.Story.TotalScenes != 7 {
		t.Fatalf("expected 7 scenes, got %d (total %d)", len(resp.Story.Scenes), resp.Story.TotalScenes)
	}
	for i, scene := range resp.Story.Scenes {
		if scene.Index != i+1 {
			t.Fatalf("scene %d has index %d", i+1, scene.Index)
		}
		if strings.TrimSpace(scene.Narration) == "" {
			t.Fatalf("scene %d has no narration", i+1)
		}
	}
}

func TestGenerateNonTerminalFallsBackToJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"generate", "작은 빵집의 하루"}, env.configPath)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !json.Valid([]byte(out)) {
		t.Fatalf("expected JSON when stdout is not a terminal, got %q", out)
	}
	requireContains(t, out, `"scene_number"`)
}

func TestGenerateRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"generate"}, env.configPath); err == nil {
		t.Fatal("expected error without a topic")
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config on disk: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsBadProvider(t *testing.T) {
	env := setupCLITestEnv(t)
	content, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	broken := strings.Replace(string(content), `provider = "openrouter"`, `provider = "mystery"`, 1)
	if err := os.WriteFile(env.configPath, []byte(broken), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t, withToken("super-secret"))

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret") {
		t.Fatalf("token leaked in output:\n%s", out)
	}
	requireContains(t, out, redacted)
	requireContains(t, out, "# "+env.configPath)
}

func TestJobsCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"jobs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "No jobs")

	store, err := jobs.OpenPath(filepath.Join(env.dataDir, "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()
	done, err := store.Create(ctx, "달빛 아래 고양이", 30)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	pending, err := store.Create(ctx, "바다로 간 소년", 40)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Complete(ctx, done.ID, filepath.Join(env.outputDir, done.ID+".mp4")); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	out, _, err = runCLI(t, []string{"jobs", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list --json: %v", err)
	}
	var listed api.JobListResponse
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(listed.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(listed.Jobs))
	}

	out, _, err = runCLI(t, []string{"jobs", "list", "--status", "completed"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list --status: %v", err)
	}
	requireContains(t, out, done.ID)
	if strings.Contains(out, pending.ID) {
		t.Fatalf("pending job should be filtered out:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"jobs", "list", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown status")
	}

	out, _, err = runCLI(t, []string{"jobs", "show", done.ID}, env.configPath)
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	requireContains(t, out, "달빛 아래 고양이")
	requireContains(t, out, "Output:")

	if _, _, err := runCLI(t, []string{"jobs", "show", "missing"}, env.configPath); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}

	if _, _, err := runCLI(t, []string{"jobs", "clear", "--all", "--status", "failed"}, env.configPath); err == nil {
		t.Fatal("expected --all and --status to conflict")
	}

	out, _, err = runCLI(t, []string{"jobs", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs clear: %v", err)
	}
	requireContains(t, out, "Removed 1 job(s)")

	out, _, err = runCLI(t, []string{"jobs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, pending.ID)
}

func TestHealthOffline(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"health", "--offline"}, env.configPath)
	if err != nil {
		t.Fatalf("health --offline: %v\n%s", err, out)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "Story LLM not configured")
	if strings.Contains(out, "FAIL") {
		t.Fatalf("expected all local checks to pass:\n%s", out)
	}
}

func TestHealthReportsMissingFFmpeg(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.Remove(env.ffmpegPath); err != nil {
		t.Fatalf("remove stub: %v", err)
	}

	out, _, err := runCLI(t, []string{"health", "--offline", "--json"}, env.configPath)
	if err == nil {
		t.Fatal("expected health to fail without ffmpeg")
	}
	var payload struct {
		Healthy bool         `json:"healthy"`
		Checks  []healthLine `json:"checks"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode health: %v\n%s", err, out)
	}
	if payload.Healthy {
		t.Fatal("expected unhealthy report")
	}
	var found bool
	for _, check := range payload.Checks {
		if check.Name == "FFmpeg" {
			found = true
			if check.Ready {
				t.Fatalf("expected FFmpeg check to fail: %+v", check)
			}
		}
	}
	if !found {
		t.Fatalf("FFmpeg check missing from %+v", payload.Checks)
	}
}

func TestRenderEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	srv := newCollaboratorServer(t)
	env := setupCLITestEnv(t, withCollaborators(srv.URL))

	out, errOut, err := runCLI(t, []string{"render", "하늘을 나는 거북이", "--duration", "20"}, env.configPath)
	if err != nil {
		t.Fatalf("render: %v\nstderr:\n%s", err, errOut)
	}
	requireContains(t, out, "Video ready: ")
	requireContains(t, errOut, "queued")

	path := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), "Video ready:"))
	if filepath.Dir(path) != env.outputDir {
		t.Fatalf("expected output under %s, got %s", env.outputDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected rendered file: %v", err)
	}

	store, err := jobs.OpenPath(filepath.Join(env.dataDir, "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	list, err := store.List(context.Background(), jobs.StatusCompleted)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].StoryJSON == "" {
		t.Fatalf("expected one completed job with a stored story, got %+v", list)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("  짧은 제목  ", 10); got != "짧은 제목" {
		t.Fatalf("unexpected %q", got)
	}
	if got := truncateRunes("가나다라마바", 4); got != "가나다…" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestTestNotify(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"test-notify"}, env.configPath); err == nil || !strings.Contains(err.Error(), "ntfy_topic") {
		t.Fatalf("expected missing topic error, got %v", err)
	}

	var title string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("Title")
	}))
	defer srv.Close()

	f, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	if _, err := fmt.Fprintf(f, "\n[notifications]\nntfy_topic = %q\n", srv.URL); err != nil {
		t.Fatalf("append config: %v", err)
	}
	_ = f.Close()

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if title != "storyreel - Test" {
		t.Fatalf("unexpected ntfy title %q", title)
	}
}
