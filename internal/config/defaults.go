package config

const (
	defaultConfigPath             = "~/.config/storyreel/config.toml"
	defaultDataDir                = "~/.local/share/storyreel"
	defaultWorkDir                = "~/.local/share/storyreel/work"
	defaultOutputDir              = "~/Videos/storyreel"
	defaultLogDir                 = "~/.local/share/storyreel/logs"
	defaultJobDBPath              = "~/.local/share/storyreel/jobs.db"
	defaultAPIBind                = "127.0.0.1:5004"
	defaultLLMProvider            = "openrouter"
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel               = "google/gemini-3-flash-preview"
	defaultLLMReferer             = "https://github.com/storyreel/storyreel"
	defaultLLMTitle               = "storyreel"
	defaultLLMTimeoutSeconds      = 30
	defaultDurationSeconds        = 30.0
	defaultSecondsPerScene        = 4
	defaultMinScenes              = 5
	defaultLongFormMinChars       = 100
	defaultLongFormMinSentences   = 3
	defaultAnalysisTimeoutSeconds = 20
	defaultNarrationLanguage      = "ko"
	defaultImageBaseURL           = "https://image.pollinations.ai"
	defaultImageModel             = "flux"
	defaultImageWidth             = 1080
	defaultImageHeight            = 1920
	defaultImageTimeoutSeconds    = 90
	defaultImageMaxAttempts       = 3
	defaultSpeechBaseURL          = "http://127.0.0.1:5002"
	defaultSpeechVoice            = "ko-KR-SunHiNeural"
	defaultSpeechLanguage         = "ko"
	defaultSpeechTimeoutSeconds   = 60
	defaultFFmpegBinary           = "ffmpeg"
	defaultRenderFPS              = 30
	defaultCacheAddress           = "127.0.0.1:6379"
	defaultCacheTTLSeconds        = 7 * 24 * 60 * 60
	defaultCacheKeyPrefix         = "storyreel:analysis:"
	defaultJobPollInterval        = 2
	defaultNotifyTimeoutSeconds   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// DefaultActWeights is the five-act pacing used when the story section does not override it.
func DefaultActWeights() []float64 {
	return []float64{0.20, 0.25, 0.20, 0.20, 0.15}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			JobDBPath: defaultJobDBPath,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Story: Story{
			DefaultDurationSeconds: defaultDurationSeconds,
			SecondsPerScene:        defaultSecondsPerScene,
			MinScenes:              defaultMinScenes,
			ActWeights:             DefaultActWeights(),
			LongFormMinChars:       defaultLongFormMinChars,
			LongFormMinSentences:   defaultLongFormMinSentences,
			AnalysisTimeoutSeconds: defaultAnalysisTimeoutSeconds,
			NarrationLanguage:      defaultNarrationLanguage,
		},
		Image: Image{
			BaseURL:        defaultImageBaseURL,
			Model:          defaultImageModel,
			Width:          defaultImageWidth,
			Height:         defaultImageHeight,
			TimeoutSeconds: defaultImageTimeoutSeconds,
			MaxAttempts:    defaultImageMaxAttempts,
		},
		Speech: Speech{
			BaseURL:        defaultSpeechBaseURL,
			Voice:          defaultSpeechVoice,
			Language:       defaultSpeechLanguage,
			TimeoutSeconds: defaultSpeechTimeoutSeconds,
		},
		Render: Render{
			FFmpegBinary:  defaultFFmpegBinary,
			Width:         defaultImageWidth,
			Height:        defaultImageHeight,
			FPS:           defaultRenderFPS,
			BurnSubtitles: true,
		},
		Cache: Cache{
			Address:    defaultCacheAddress,
			TTLSeconds: defaultCacheTTLSeconds,
			KeyPrefix:  defaultCacheKeyPrefix,
		},
		Workflow: Workflow{
			JobPollInterval: defaultJobPollInterval,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
