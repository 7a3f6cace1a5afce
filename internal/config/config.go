package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	JobDBPath string `toml:"job_db_path"`
}

// API contains the HTTP surface bind address and optional bearer token.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// LLM contains shared LLM connection settings used by the story analyzer,
// narration writer, and genre detector.
type LLM struct {
	// Provider selects the structured-output backend: "openrouter", "ollama", or "openai".
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Story contains the scene-structuring knobs.
type Story struct {
	DefaultDurationSeconds float64   `toml:"default_duration_seconds"`
	SecondsPerScene        int       `toml:"seconds_per_scene"`
	MinScenes              int       `toml:"min_scenes"`
	ActWeights             []float64 `toml:"act_weights"`
	LongFormMinChars       int       `toml:"long_form_min_chars"`
	LongFormMinSentences   int       `toml:"long_form_min_sentences"`
	AnalysisTimeoutSeconds int       `toml:"analysis_timeout_seconds"`
	LLMNarration           bool      `toml:"llm_narration"`
	GenreDetection         bool      `toml:"genre_detection"`
	NarrationLanguage      string    `toml:"narration_language"`
}

// Image contains the image-generation collaborator settings.
type Image struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxAttempts    int    `toml:"max_attempts"`
}

// Speech contains the text-to-speech collaborator settings.
type Speech struct {
	BaseURL        string `toml:"base_url"`
	Voice          string `toml:"voice"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Render contains ffmpeg assembly settings.
type Render struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	Width         int    `toml:"width"`
	Height        int    `toml:"height"`
	FPS           int    `toml:"fps"`
	BurnSubtitles bool   `toml:"burn_subtitles"`
}

// Cache contains the valkey-backed story analysis cache settings.
type Cache struct {
	Enabled    bool   `toml:"enabled"`
	Address    string `toml:"address"`
	TTLSeconds int    `toml:"ttl_seconds"`
	KeyPrefix  string `toml:"key_prefix"`
}

// Workflow contains worker timing.
type Workflow struct {
	JobPollInterval int `toml:"job_poll_interval"`
}

// Notifications configures ntfy pushes for finished jobs.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for storyreel.
//
// Configuration sections by subsystem:
//   - Paths: data, work, output, and log directories plus the job database
//   - API: HTTP bind address and token
//   - LLM: shared LLM connection settings
//   - Story: scene counts, act weights, long-form detection
//   - Image, Speech, Render: generative and assembly collaborators
//   - Cache: valkey analysis cache
//   - Workflow: job worker polling
//   - Notifications: ntfy endpoint for job results
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	LLM           LLM           `toml:"llm"`
	Story         Story         `toml:"story"`
	Image         Image         `toml:"image"`
	Speech        Speech        `toml:"speech"`
	Render        Render        `toml:"render"`
	Cache         Cache         `toml:"cache"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("storyreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the worker and API write into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir}
	if dbDir := filepath.Dir(c.Paths.JobDBPath); dbDir != "" {
		dirs = append(dirs, dbDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for video assembly.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Render.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// LockPath returns the path of the serve lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "storyreel.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains common LLM settings used across features.
type LLMConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:       strings.TrimSpace(c.LLM.Provider),
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// StoryOptions mirrors the story section in the units the engine expects.
type StoryOptions struct {
	DefaultDuration      float64
	SecondsPerScene      int
	MinScenes            int
	ActWeights           []float64
	LongFormMinChars     int
	LongFormMinSentences int
	AnalysisTimeout      time.Duration
	LLMNarration         bool
	GenreDetection       bool
	NarrationLanguage    string
}

// StoryOptions returns the engine settings derived from the story section.
func (c *Config) StoryOptions() StoryOptions {
	weights := make([]float64, len(c.Story.ActWeights))
	copy(weights, c.Story.ActWeights)
	return StoryOptions{
		DefaultDuration:      c.Story.DefaultDurationSeconds,
		SecondsPerScene:      c.Story.SecondsPerScene,
		MinScenes:            c.Story.MinScenes,
		ActWeights:           weights,
		LongFormMinChars:     c.Story.LongFormMinChars,
		LongFormMinSentences: c.Story.LongFormMinSentences,
		AnalysisTimeout:      time.Duration(c.Story.AnalysisTimeoutSeconds) * time.Second,
		LLMNarration:         c.Story.LLMNarration,
		GenreDetection:       c.Story.GenreDetection,
		NarrationLanguage:    c.Story.NarrationLanguage,
	}
}
