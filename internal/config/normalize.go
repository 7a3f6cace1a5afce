package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeLLM()
	c.normalizeStory()
	c.normalizeCollaborators()
	c.normalizeCache()
	c.normalizeLogging()
	if c.Workflow.JobPollInterval <= 0 {
		c.Workflow.JobPollInterval = defaultJobPollInterval
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.data_dir", &c.Paths.DataDir, defaultDataDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.job_db_path", &c.Paths.JobDBPath, defaultJobDBPath},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("STORYREEL_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" && c.LLM.Provider != "openai" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey != "" {
		return
	}
	envKeys := []string{"STORYREEL_LLM_API_KEY", "OPENROUTER_API_KEY"}
	if c.LLM.Provider == "openai" {
		envKeys = []string{"STORYREEL_LLM_API_KEY", "OPENAI_API_KEY"}
	}
	for _, key := range envKeys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			c.LLM.APIKey = strings.TrimSpace(value)
			return
		}
	}
}

func (c *Config) normalizeStory() {
	if c.Story.DefaultDurationSeconds <= 0 {
		c.Story.DefaultDurationSeconds = defaultDurationSeconds
	}
	if c.Story.SecondsPerScene <= 0 {
		c.Story.SecondsPerScene = defaultSecondsPerScene
	}
	if c.Story.MinScenes <= 0 {
		c.Story.MinScenes = defaultMinScenes
	}
	if len(c.Story.ActWeights) == 0 {
		c.Story.ActWeights = DefaultActWeights()
	}
	if c.Story.LongFormMinChars <= 0 {
		c.Story.LongFormMinChars = defaultLongFormMinChars
	}
	if c.Story.LongFormMinSentences <= 0 {
		c.Story.LongFormMinSentences = defaultLongFormMinSentences
	}
	if c.Story.AnalysisTimeoutSeconds <= 0 {
		c.Story.AnalysisTimeoutSeconds = defaultAnalysisTimeoutSeconds
	}
	c.Story.NarrationLanguage = strings.ToLower(strings.TrimSpace(c.Story.NarrationLanguage))
	if c.Story.NarrationLanguage == "" {
		c.Story.NarrationLanguage = defaultNarrationLanguage
	}
}

func (c *Config) normalizeCollaborators() {
	c.Image.BaseURL = strings.TrimRight(strings.TrimSpace(c.Image.BaseURL), "/")
	if c.Image.BaseURL == "" {
		c.Image.BaseURL = defaultImageBaseURL
	}
	if strings.TrimSpace(c.Image.Model) == "" {
		c.Image.Model = defaultImageModel
	}
	if c.Image.TimeoutSeconds <= 0 {
		c.Image.TimeoutSeconds = defaultImageTimeoutSeconds
	}
	if c.Image.MaxAttempts <= 0 {
		c.Image.MaxAttempts = defaultImageMaxAttempts
	}

	c.Speech.BaseURL = strings.TrimRight(strings.TrimSpace(c.Speech.BaseURL), "/")
	if c.Speech.BaseURL == "" {
		c.Speech.BaseURL = defaultSpeechBaseURL
	}
	c.Speech.Language = strings.ToLower(strings.TrimSpace(c.Speech.Language))
	if c.Speech.Language == "" {
		c.Speech.Language = c.Story.NarrationLanguage
	}
	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = defaultSpeechTimeoutSeconds
	}

	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.FFmpegBinary == "" {
		c.Render.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Render.FPS <= 0 {
		c.Render.FPS = defaultRenderFPS
	}
}

func (c *Config) normalizeCache() {
	c.Cache.Address = strings.TrimSpace(c.Cache.Address)
	if value, ok := os.LookupEnv("VALKEY_ADDR"); ok && strings.TrimSpace(value) != "" && c.Cache.Address == "" {
		c.Cache.Address = strings.TrimSpace(value)
	}
	if c.Cache.Address == "" {
		c.Cache.Address = defaultCacheAddress
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = defaultCacheTTLSeconds
	}
	if strings.TrimSpace(c.Cache.KeyPrefix) == "" {
		c.Cache.KeyPrefix = defaultCacheKeyPrefix
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
