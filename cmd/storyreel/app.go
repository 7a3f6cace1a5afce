package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storyreel/internal/cache"
	"storyreel/internal/config"
	"storyreel/internal/deps"
	"storyreel/internal/logging"
	"storyreel/internal/notifications"
	"storyreel/internal/pipeline"
	"storyreel/internal/services/ffmpeg"
	"storyreel/internal/services/imagegen"
	"storyreel/internal/services/llm"
	"storyreel/internal/services/openai"
	"storyreel/internal/services/speech"
	"storyreel/internal/services/storyllm"
	"storyreel/internal/story"
)

const defaultOpenAIChatURL = "https://api.openai.com/v1/chat/completions"

// app holds the story engine and its collaborators for one process.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	generator *story.Generator
	gate      *storyllm.Gate
	llmHealth func(ctx context.Context) error
	closers   []func()
}

func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, gate: &storyllm.Gate{}}

	llmCfg := cfg.GetLLM()
	chatCfg := llm.Config{
		Provider:       llmCfg.Provider,
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	}
	if llmCfg.Provider == "openai" {
		chatCfg.BaseURL = openAIChatURL(llmCfg.BaseURL)
	}
	chat := llm.NewClient(chatCfg)
	// Analysis and narration get one attempt each; their failures fall back
	// to slicing and to the pool.
	analysisChat := llm.NewClient(chatCfg, llm.WithRetryMaxAttempts(1))
	narrationChat := llm.NewClient(chatCfg, llm.WithRetryMaxAttempts(1))

	var analysisBackend, genreBackend storyllm.JSONBackend = analysisChat, chat
	a.llmHealth = chat.HealthCheck
	if llmCfg.Provider == "openai" {
		structuredCfg := openai.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
		}
		structured := openai.NewClient(structuredCfg)
		singleCfg := structuredCfg
		singleCfg.MaxAttempts = 1
		analysisBackend = openai.NewClient(singleCfg).Bind("StoryAnalysis", storyllm.AnalysisSchema())
		genreBackend = structured.Bind("GenreDetection", storyllm.GenreSchema())
		a.llmHealth = structured.HealthCheck
	}

	storyOpts := cfg.StoryOptions()
	distributor, err := story.NewDistributor(storyOpts.ActWeights)
	if err != nil {
		return nil, fmt.Errorf("story act weights: %w", err)
	}
	tables := story.DefaultTables()

	var analyzer story.Analyzer = storyllm.NewAnalyzer(analysisBackend, a.gate, logger)
	if cfg.Cache.Enabled {
		analyzer = a.cachedAnalyzer(analyzer)
	}

	generatorOpts := []story.GeneratorOption{
		story.WithTables(tables),
		story.WithDistributor(distributor),
		story.WithAnalyzer(analyzer),
		story.WithLogger(logger),
	}
	if storyOpts.LLMNarration {
		generatorOpts = append(generatorOpts, story.WithNarrationWriter(storyllm.NewNarrationWriter(narrationChat, a.gate, logger)))
	}
	if storyOpts.GenreDetection {
		generatorOpts = append(generatorOpts, story.WithGenreDetector(storyllm.NewGenreDetector(genreBackend, tables.Genres, a.gate, logger)))
	}

	a.generator = story.NewGenerator(story.Options{
		DefaultDuration:      storyOpts.DefaultDuration,
		SecondsPerScene:      storyOpts.SecondsPerScene,
		MinScenes:            storyOpts.MinScenes,
		LongFormMinChars:     storyOpts.LongFormMinChars,
		LongFormMinSentences: storyOpts.LongFormMinSentences,
		AnalysisTimeout:      storyOpts.AnalysisTimeout,
	}, generatorOpts...)
	return a, nil
}

// cachedAnalyzer wraps inner with the valkey cache. An unreachable server
// leaves the cache as a pass-through.
func (a *app) cachedAnalyzer(inner story.Analyzer) story.Analyzer {
	var store cache.Store
	valkey, err := cache.DialValkey(a.cfg.Cache.Address)
	if err != nil {
		logging.WarnWithContext(a.logger, "analysis cache unavailable", "analysis_cache_unavailable",
			logging.Error(err),
			logging.String("address", a.cfg.Cache.Address),
			logging.String(logging.FieldErrorHint, "start valkey or set cache.enabled = false"),
			logging.String(logging.FieldImpact, "long stories are analysed on every request"),
		)
	} else {
		store = valkey
		a.closers = append(a.closers, valkey.Close)
	}
	ttl := time.Duration(a.cfg.Cache.TTLSeconds) * time.Second
	return cache.NewAnalysisCache(inner, store, ttl, a.cfg.Cache.KeyPrefix, a.logger)
}

// checkLLM records the outcome of an LLM health check on the shared gate.
// Skipped when no key (or keyless provider) is configured.
func (a *app) checkLLM(ctx context.Context) {
	llmCfg := a.cfg.GetLLM()
	if llmCfg.APIKey == "" && llmCfg.Provider != "ollama" {
		return
	}
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := a.llmHealth(checkCtx)
	a.gate.Record(err)
	if err != nil {
		logging.WarnWithContext(a.logger, "story LLM health check failed", "llm_health_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check llm.api_key, llm.base_url, and llm.model"),
			logging.String(logging.FieldImpact, "stories use built-in templates until the LLM recovers"),
		)
		return
	}
	a.logger.Info("story LLM ready", logging.String("model", llmCfg.Model))
}

func (a *app) newRunner(store pipeline.JobStore, opts ...pipeline.Option) *pipeline.Runner {
	cfg := a.cfg
	images := imagegen.NewClient(imagegen.Config{
		BaseURL:        cfg.Image.BaseURL,
		Model:          cfg.Image.Model,
		TimeoutSeconds: cfg.Image.TimeoutSeconds,
		MaxAttempts:    cfg.Image.MaxAttempts,
	}, imagegen.WithLogger(a.logger))
	video := ffmpeg.New(deps.ResolveFFmpegPath(cfg.FFmpegBinary()), cfg.Render.FPS,
		ffmpeg.WithFrameSize(cfg.Render.Width, cfg.Render.Height),
		ffmpeg.WithLogger(a.logger),
	)

	runnerOpts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithNotifier(notifications.NewService(cfg)),
	}
	if cfg.Speech.BaseURL != "" {
		runnerOpts = append(runnerOpts, pipeline.WithSpeech(speech.NewClient(speech.Config{
			BaseURL:        cfg.Speech.BaseURL,
			Voice:          cfg.Speech.Voice,
			Language:       cfg.Speech.Language,
			TimeoutSeconds: cfg.Speech.TimeoutSeconds,
		}, speech.WithLogger(a.logger))))
	}
	runnerOpts = append(runnerOpts, opts...)

	return pipeline.NewRunner(pipeline.Settings{
		WorkDir:       cfg.Paths.WorkDir,
		OutputDir:     cfg.Paths.OutputDir,
		ImageWidth:    cfg.Image.Width,
		ImageHeight:   cfg.Image.Height,
		VideoWidth:    cfg.Render.Width,
		VideoHeight:   cfg.Render.Height,
		Language:      cfg.Speech.Language,
		BurnSubtitles: cfg.Render.BurnSubtitles,
	}, store, a.generator, images, video, runnerOpts...)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func openAIChatURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return defaultOpenAIChatURL
	}
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}
