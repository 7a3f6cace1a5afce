package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// SupportedLanguages lists the narration and speech languages the pipeline accepts.
var SupportedLanguages = []string{"ko", "en", "ja", "zh", "es"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateStory(); err != nil {
		return err
	}
	if err := c.validateCollaborators(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case "openrouter", "ollama", "openai":
	default:
		return fmt.Errorf("llm.provider must be one of openrouter, ollama, openai (got %q)", c.LLM.Provider)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateStory() error {
	if err := ensurePositiveMap(map[string]int{
		"story.seconds_per_scene":        c.Story.SecondsPerScene,
		"story.min_scenes":               c.Story.MinScenes,
		"story.long_form_min_chars":      c.Story.LongFormMinChars,
		"story.long_form_min_sentences":  c.Story.LongFormMinSentences,
		"story.analysis_timeout_seconds": c.Story.AnalysisTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Story.DefaultDurationSeconds <= 0 {
		return errors.New("story.default_duration_seconds must be positive")
	}
	if err := ValidateActWeights(c.Story.ActWeights); err != nil {
		return fmt.Errorf("story.act_weights: %w", err)
	}
	if !isSupportedLanguage(c.Story.NarrationLanguage) {
		return fmt.Errorf("story.narration_language must be one of %s", strings.Join(SupportedLanguages, ", "))
	}
	return nil
}

// ValidateActWeights checks a five-act weight table: five positive entries summing to one.
func ValidateActWeights(weights []float64) error {
	if len(weights) != 5 {
		return fmt.Errorf("expected 5 weights, got %d", len(weights))
	}
	var sum float64
	for i, w := range weights {
		if w <= 0 {
			return fmt.Errorf("weight %d must be positive", i+1)
		}
		sum += w
	}
	if math.Abs(sum-1) > 0.01 {
		return fmt.Errorf("weights must sum to 1 (got %.3f)", sum)
	}
	return nil
}

func (c *Config) validateCollaborators() error {
	if err := ensurePositiveMap(map[string]int{
		"image.width":            c.Image.Width,
		"image.height":           c.Image.Height,
		"image.timeout_seconds":  c.Image.TimeoutSeconds,
		"image.max_attempts":     c.Image.MaxAttempts,
		"speech.timeout_seconds": c.Speech.TimeoutSeconds,
		"render.width":           c.Render.Width,
		"render.height":          c.Render.Height,
		"render.fps":             c.Render.FPS,
	}); err != nil {
		return err
	}
	if !isSupportedLanguage(c.Speech.Language) {
		return fmt.Errorf("speech.language must be one of %s", strings.Join(SupportedLanguages, ", "))
	}
	return nil
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Cache.Address) == "" {
		return errors.New("cache.address must be set when cache.enabled is true")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL (got %q)", topic)
	}
	return nil
}

func isSupportedLanguage(lang string) bool {
	for _, candidate := range SupportedLanguages {
		if candidate == lang {
			return true
		}
	}
	return false
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
