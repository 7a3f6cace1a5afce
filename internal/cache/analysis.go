package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"storyreel/internal/logging"
	"storyreel/internal/story"
)

const (
	defaultTTL    = 7 * 24 * time.Hour
	defaultPrefix = "storyreel:analysis:"
)

// AnalysisCache is a story.Analyzer that consults a Store before the wrapped
// analyzer and stores successful results. Store failures are logged and
// otherwise ignored.
type AnalysisCache struct {
	inner  story.Analyzer
	store  Store
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewAnalysisCache wraps inner. A nil store makes the cache a pass-through.
func NewAnalysisCache(inner story.Analyzer, store Store, ttl time.Duration, prefix string, logger *slog.Logger) *AnalysisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &AnalysisCache{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		prefix: prefix,
		logger: logging.NewComponentLogger(logger, "analysis-cache"),
	}
}

// Available mirrors the wrapped analyzer.
func (c *AnalysisCache) Available() bool {
	return c != nil && c.inner != nil && c.inner.Available()
}

// Key returns the cache key for text.
func (c *AnalysisCache) Key(text string) string {
	sum := sha256.Sum256([]byte(story.NormalizeTopic(text)))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Analyze serves from the store when possible.
func (c *AnalysisCache) Analyze(ctx context.Context, text string) (story.Analysis, error) {
	logger := logging.WithContext(ctx, c.logger)
	key := c.Key(text)
	if c.store != nil {
		if cached, ok := c.lookup(ctx, logger, key); ok {
			logger.Debug("analysis cache hit", logging.String("key", key))
			return cached, nil
		}
	}
	analysis, err := c.inner.Analyze(ctx, text)
	if err != nil {
		return analysis, err
	}
	if c.store != nil {
		c.save(ctx, logger, key, analysis)
	}
	return analysis, nil
}

func (c *AnalysisCache) lookup(ctx context.Context, logger *slog.Logger, key string) (story.Analysis, bool) {
	var cached story.Analysis
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		logging.WarnWithContext(logger, "analysis cache read failed", "analysis_cache_read_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check cache.address or disable cache.enabled"),
			logging.String(logging.FieldImpact, "story is analysed without the cache"),
		)
		return cached, false
	}
	if !found {
		return cached, false
	}
	if err := json.Unmarshal([]byte(raw), &cached); err != nil || !cached.Valid() {
		logger.Debug("discarding malformed cache entry", logging.String("key", key))
		return story.Analysis{}, false
	}
	return cached, true
}

func (c *AnalysisCache) save(ctx context.Context, logger *slog.Logger, key string, analysis story.Analysis) {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, string(payload), c.ttl); err != nil {
		logging.WarnWithContext(logger, "analysis cache write failed", "analysis_cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check cache.address or disable cache.enabled"),
			logging.String(logging.FieldImpact, "next analysis of this story calls the llm again"),
		)
	}
}
