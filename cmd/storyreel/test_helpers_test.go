package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	dataDir    string
	outputDir  string
	ffmpegPath string
}

// ffmpegStub touches its last argument, which is always the output path.
const ffmpegStub = "#!/bin/sh\nfor last in \"$@\"; do :; done\n: > \"$last\"\n"

type envOption func(*envConfig)

type envConfig struct {
	collaboratorURL string
	apiToken        string
}

func withCollaborators(url string) envOption {
	return func(c *envConfig) { c.collaboratorURL = url }
}

func withToken(token string) envOption {
	return func(c *envConfig) { c.apiToken = token }
}

func setupCLITestEnv(t *testing.T, opts ...envOption) *cliTestEnv {
	t.Helper()

	var ec envConfig
	for _, opt := range opts {
		opt(&ec)
	}

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("STORYREEL_LLM_API_KEY", "")
	t.Setenv("STORYREEL_API_TOKEN", "")
	t.Setenv("VALKEY_ADDR", "")

	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	ffmpegPath := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpegPath, []byte(ffmpegStub), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}

	collaborator := ec.collaboratorURL
	if collaborator == "" {
		// Nothing listens here; commands that reach it fail fast.
		collaborator = "http://127.0.0.1:1"
	}

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		dataDir:    filepath.Join(base, "data"),
		outputDir:  filepath.Join(base, "output"),
		ffmpegPath: ffmpegPath,
	}
	content := fmt.Sprintf(`[paths]
data_dir = %q
work_dir = %q
output_dir = %q
log_dir = %q
job_db_path = %q

[api]
bind = "127.0.0.1:0"
token = %q

[llm]
provider = "openrouter"
api_key = ""

[image]
base_url = %q
max_attempts = 1

[speech]
base_url = %q

[render]
ffmpeg_binary = %q
burn_subtitles = true

[cache]
enabled = false
`,
		env.dataDir,
		filepath.Join(base, "work"),
		env.outputDir,
		filepath.Join(base, "logs"),
		filepath.Join(env.dataDir, "jobs.db"),
		ec.apiToken,
		collaborator,
		collaborator,
		ffmpegPath,
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

// newCollaboratorServer answers image requests under /prompt/ and speech
// requests on /synthesize and /health.
func newCollaboratorServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/prompt/"):
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(bytes.Repeat([]byte{0x89}, 256))
		case r.URL.Path == "/synthesize":
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write(bytes.Repeat([]byte{0xff}, 256))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
