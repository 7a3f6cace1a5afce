package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/internal/config"
	"storyreel/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckEndpoint(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ok.Close()
	if result := CheckEndpoint(context.Background(), "Image generation", ok.URL); !result.Passed {
		t.Fatalf("expected 404 to count as reachable, got %s", result.Detail)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	if result := CheckEndpoint(context.Background(), "Image generation", broken.URL); result.Passed {
		t.Fatal("expected 502 to fail")
	}

	if result := CheckEndpoint(context.Background(), "Image generation", "  "); result.Passed || result.Detail != "missing url" {
		t.Fatalf("unexpected result for missing url: %+v", result)
	}
}

func TestCheckSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckSpeech(context.Background(), config.Speech{BaseURL: srv.URL}); !result.Passed {
		t.Fatalf("expected speech check to pass, got %s", result.Detail)
	}
	if result := CheckSpeech(context.Background(), config.Speech{}); result.Passed {
		t.Fatal("expected failure without url")
	}
}

func TestCheckLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "Story LLM", config.LLMConfig{Provider: "ollama", BaseURL: srv.URL, Model: "llama3.2"})
	if !result.Passed {
		t.Fatalf("expected keyless ollama check to pass, got %s", result.Detail)
	}

	result = CheckLLM(context.Background(), "Story LLM", config.LLMConfig{Provider: "openrouter", BaseURL: srv.URL, Model: "demo"})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("expected missing key failure, got %+v", result)
	}
}

func TestCheckLLMFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "Story LLM", config.LLMConfig{APIKey: "bad", BaseURL: srv.URL, Model: "demo"})
	if result.Passed {
		t.Fatal("expected failure for rejected key")
	}
	if !strings.Contains(result.Detail, "401") {
		t.Fatalf("expected status in detail, got %q", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Options{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_LocalOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	cfg.Render.FFmpegBinary = "ffmpeg"

	results := RunAll(context.Background(), cfg, Options{})
	// data, work, output, log directories plus ffmpeg
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestCheckSystemDeps_FFmpegOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Render.FFmpegBinary = filepath.Join(t.TempDir(), "missing-ffmpeg")

	statuses := CheckSystemDeps(cfg)
	if len(statuses) != 1 || statuses[0].Name != "FFmpeg" {
		t.Fatalf("expected a single ffmpeg check, got %+v", statuses)
	}
	if statuses[0].Available || statuses[0].Command != cfg.Render.FFmpegBinary {
		t.Fatalf("expected configured ffmpeg path to be unavailable, got %+v", statuses[0])
	}
}

func TestRunAll_ReportsMissingDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Render.FFmpegBinary = filepath.Join(t.TempDir(), "missing-ffmpeg")

	failed := Failed(RunAll(context.Background(), cfg, Options{}))
	names := make([]string, 0, len(failed))
	for _, r := range failed {
		names = append(names, r.Name)
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"Data directory", "Work directory", "Output directory", "FFmpeg"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q among failures %v", want, names)
		}
	}
}

func TestRunAll_RemoteChecksWhenConfigured(t *testing.T) {
	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": `{"ok":true}`}}},
		})
	}))
	defer llmSrv.Close()
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer imageSrv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithLLMEndpoint(llmSrv.URL), testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	cfg.Image.BaseURL = imageSrv.URL

	results := RunAll(context.Background(), cfg, Options{Remote: true})
	seen := map[string]Result{}
	for _, r := range results {
		seen[r.Name] = r
	}
	for _, name := range []string{"Story LLM", "Image generation"} {
		r, ok := seen[name]
		if !ok {
			t.Fatalf("expected %s check in results", name)
		}
		if !r.Passed {
			t.Fatalf("%s check failed: %s", name, r.Detail)
		}
	}
	if _, ok := seen["Speech"]; ok {
		t.Fatal("speech check should be skipped without a url")
	}
	if _, ok := seen["Analysis cache"]; ok {
		t.Fatal("cache check should be skipped when disabled")
	}
}
