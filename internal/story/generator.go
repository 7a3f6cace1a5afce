package story

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"storyreel/internal/logging"
)

const (
	genericGenre = "사용자 정의 스토리"
	genericStyle = "cinematic storytelling with suspense"
	genericMood  = "engaging and curious"
	genericMusic = "Epic cinematic music with emotional build-up"

	defaultNarrationStyle = "curious"
)

// Analyzer extracts a title and five-act synopsis from a long story.
type Analyzer interface {
	Available() bool
	Analyze(ctx context.Context, text string) (Analysis, error)
}

// GenreDetector classifies a topic or story into a catalog genre.
type GenreDetector interface {
	Available() bool
	Detect(ctx context.Context, text string) (Genre, error)
}

// Options are the engine tunables. Zero values take the defaults.
type Options struct {
	DefaultDuration      float64
	SecondsPerScene      int
	MinScenes            int
	LongFormMinChars     int
	LongFormMinSentences int
	AnalysisTimeout      time.Duration
}

// DefaultOptions returns the stock tunables.
func DefaultOptions() Options {
	return Options{
		DefaultDuration:      30,
		SecondsPerScene:      4,
		MinScenes:            5,
		LongFormMinChars:     100,
		LongFormMinSentences: 3,
		AnalysisTimeout:      20 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = d.DefaultDuration
	}
	if o.SecondsPerScene <= 0 {
		o.SecondsPerScene = d.SecondsPerScene
	}
	if o.MinScenes <= 0 {
		o.MinScenes = d.MinScenes
	}
	if o.LongFormMinChars <= 0 {
		o.LongFormMinChars = d.LongFormMinChars
	}
	if o.LongFormMinSentences <= 0 {
		o.LongFormMinSentences = d.LongFormMinSentences
	}
	if o.AnalysisTimeout <= 0 {
		o.AnalysisTimeout = d.AnalysisTimeout
	}
	return o
}

// Generator is the orchestrator: it picks the legacy, long-form, or generic
// path and assembles a GeneratedStory.
type Generator struct {
	opts        Options
	tables      *Tables
	distributor *Distributor
	composer    *Composer
	analyzer    Analyzer
	writer      NarrationWriter
	detector    GenreDetector
	logger      *slog.Logger
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithTables swaps the static tables.
func WithTables(t *Tables) GeneratorOption {
	return func(g *Generator) {
		if t != nil {
			g.tables = t
		}
	}
}

// WithDistributor swaps the act distributor.
func WithDistributor(d *Distributor) GeneratorOption {
	return func(g *Generator) {
		if d != nil {
			g.distributor = d
		}
	}
}

// WithAnalyzer enables LLM analysis of long-form input.
func WithAnalyzer(a Analyzer) GeneratorOption {
	return func(g *Generator) { g.analyzer = a }
}

// WithNarrationWriter enables per-scene LLM narration.
func WithNarrationWriter(w NarrationWriter) GeneratorOption {
	return func(g *Generator) { g.writer = w }
}

// WithGenreDetector enables genre detection.
func WithGenreDetector(d GenreDetector) GeneratorOption {
	return func(g *Generator) { g.detector = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator builds a generator over the embedded tables unless overridden.
func NewGenerator(opts Options, options ...GeneratorOption) *Generator {
	g := &Generator{
		opts:        opts.withDefaults(),
		tables:      DefaultTables(),
		distributor: DefaultDistributor(),
		logger:      logging.NewNop(),
	}
	for _, opt := range options {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "story")
	g.composer = NewComposer(g.tables, g.logger)
	return g
}

// Tables exposes the tables the generator reads.
func (g *Generator) Tables() *Tables { return g.tables }

// MaxScenes bounds the scene count of a single story.
const MaxScenes = 75

// SceneCount returns max(MinScenes, floor(duration/SecondsPerScene)), capped
// at MaxScenes.
func (g *Generator) SceneCount(duration float64) int {
	if duration <= 0 {
		duration = g.opts.DefaultDuration
	}
	if duration > g.MaxDuration() {
		duration = g.MaxDuration()
	}
	n := int(math.Floor(duration / float64(g.opts.SecondsPerScene)))
	return max(g.opts.MinScenes, n)
}

// MaxDuration is the longest duration, in seconds, that still maps to a
// distinct scene count.
func (g *Generator) MaxDuration() float64 {
	return float64(MaxScenes * g.opts.SecondsPerScene)
}

// Generate produces a story. Collaborator failures degrade to deterministic
// fallbacks; the only error is a cancelled context.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) (*GeneratedStory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	topic := NormalizeTopic(req.Topic)
	duration := req.DurationSeconds
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		duration = g.opts.DefaultDuration
	}
	duration = min(duration, g.MaxDuration())
	count := g.SceneCount(duration)
	sceneDuration := duration / float64(count)
	logger := logging.WithContext(ctx, g.logger)

	var story *GeneratedStory
	if tale, ok := g.tables.FindTale(topic); ok {
		logger.Info("story path selected", logging.Args(logging.DecisionAttrs("story_path", string(SourceLegacy), tale.Key)...)...)
		story = g.legacy(tale, count, sceneDuration)
	} else if IsLongForm(topic, g.opts.LongFormMinChars, g.opts.LongFormMinSentences) {
		logger.Info("story path selected", logging.Args(logging.DecisionAttrs("story_path", string(SourceLongForm), "long input")...)...)
		story = g.longForm(ctx, logger, topic, count, sceneDuration)
	} else {
		logger.Info("story path selected", logging.Args(logging.DecisionAttrs("story_path", string(SourceGeneric), "topic")...)...)
		story = g.generic(ctx, logger, topic, count, sceneDuration)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	track := g.tables.Music.Match(story.Mood, story.Genre)
	story.Music = &track
	story.TotalScenes = len(story.Scenes)
	total := 0.0
	for _, s := range story.Scenes {
		total += s.DurationSeconds
	}
	story.TotalDuration = total
	logger.Info("story generated",
		logging.String("title", story.Title),
		logging.String("source", string(story.Source)),
		logging.Int("scenes", story.TotalScenes),
		logging.Float64("duration_seconds", total),
	)
	return story, nil
}

func (g *Generator) legacy(tale LegacyTale, count int, sceneDuration float64) *GeneratedStory {
	selected := tale.Scenes
	if len(selected) > count {
		selected = selected[:count]
	}
	dist := g.distributor.Distribute(len(selected))
	acts := make([]Act, 0, len(selected))
	for i, n := range dist {
		for j := 0; j < n; j++ {
			acts = append(acts, Act(i+1))
		}
	}
	scenes := make([]Scene, 0, len(selected))
	for i, s := range selected {
		act := acts[i]
		scenes = append(scenes, Scene{
			Index:             i + 1,
			Act:               act,
			ActName:           act.Name(),
			Title:             s.Title,
			Mood:              s.Mood,
			CameraMovement:    s.Camera,
			Narration:         s.SpokenLine(),
			NarrationSource:   NarrationFromLegacy,
			VisualDescription: s.Description,
			KoreanDescription: s.KoreanDescription,
			DurationSeconds:   sceneDuration,
		})
	}
	return &GeneratedStory{
		Title:           tale.Key,
		Genre:           tale.Genre,
		Style:           tale.Style,
		Mood:            tale.Mood,
		MusicSuggestion: tale.Music,
		Source:          SourceLegacy,
		Scenes:          scenes,
	}
}

func (g *Generator) generic(ctx context.Context, logger *slog.Logger, topic string, count int, sceneDuration float64) *GeneratedStory {
	story := g.baseStory(ctx, logger, topic, topic)
	story.Source = SourceGeneric
	story.Scenes = g.composer.Compose(ctx, Input{
		Topic:         topic,
		Distribution:  g.distributor.Distribute(count),
		SceneDuration: sceneDuration,
		Writer:        g.writer,
		Style:         g.narrationStyle(story.Genre),
	})
	return story
}

func (g *Generator) longForm(ctx context.Context, logger *slog.Logger, text string, count int, sceneDuration float64) *GeneratedStory {
	analysis := g.analyze(ctx, logger, text)
	story := g.baseStory(ctx, logger, analysis.Title, text)
	story.Source = SourceLongForm
	story.Synopsis = analysis.Acts[:]
	story.Scenes = g.composer.Compose(ctx, Input{
		Topic:         analysis.Title,
		ActContexts:   analysis.Acts,
		Distribution:  g.distributor.Distribute(count),
		SceneDuration: sceneDuration,
		Writer:        g.writer,
		Style:         g.narrationStyle(story.Genre),
	})
	return story
}

// analyze makes a single bounded attempt at LLM analysis, then slices.
func (g *Generator) analyze(ctx context.Context, logger *slog.Logger, text string) Analysis {
	fallback := SliceAnalysis(text)
	if g.analyzer == nil || !g.analyzer.Available() {
		logger.Info("long-form analysis", logging.Args(logging.DecisionAttrs("analysis", "slice", "analyzer unavailable")...)...)
		return fallback
	}
	actx, cancel := context.WithTimeout(ctx, g.opts.AnalysisTimeout)
	defer cancel()
	start := time.Now()
	analysis, err := g.analyzer.Analyze(actx, text)
	if err != nil || !analysis.Valid() {
		if err == nil {
			err = errIncompleteAnalysis
		}
		logging.WarnWithContext(logger, "story analysis failed; slicing text", "story_analysis_failed",
			logging.Error(err),
			logging.Duration("elapsed", time.Since(start)),
			logging.String(logging.FieldErrorHint, "check llm endpoint or raise story.analysis_timeout_seconds"),
			logging.String(logging.FieldImpact, "act synopses come from equal text slices"),
		)
		return fallback
	}
	for i := range analysis.Acts {
		analysis.Acts[i] = strings.TrimSpace(analysis.Acts[i])
	}
	analysis.Title = strings.TrimSpace(analysis.Title)
	return analysis
}

func (g *Generator) baseStory(ctx context.Context, logger *slog.Logger, title, text string) *GeneratedStory {
	story := &GeneratedStory{
		Title:           title,
		Genre:           genericGenre,
		Style:           genericStyle,
		Mood:            genericMood,
		MusicSuggestion: genericMusic,
	}
	if g.detector == nil || !g.detector.Available() {
		return story
	}
	genre, err := g.detector.Detect(ctx, text)
	if err != nil {
		logging.WarnWithContext(logger, "genre detection failed", "genre_detection_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "story keeps the generic genre label"),
		)
		return story
	}
	if genre.Name != "" {
		story.Genre = genre.Name
	}
	return story
}

func (g *Generator) narrationStyle(genreName string) string {
	if genre, ok := g.tables.Genres.Lookup(genreName); ok && genre.NarrationStyle != "" {
		return genre.NarrationStyle
	}
	return defaultNarrationStyle
}
