package storyllm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"storyreel/internal/logging"
	"storyreel/internal/services/llm"
	"storyreel/internal/services/openai"
	"storyreel/internal/story"
)

type genrePayload struct {
	Genre      string   `json:"genre" jsonschema:"description=One genre name from the list"`
	Keywords   []string `json:"keywords" jsonschema:"description=Words in the story that support the choice"`
	Confidence float64  `json:"confidence" jsonschema:"description=Confidence between 0 and 1"`
}

// GenreSchema is the strict JSON schema for genre responses.
func GenreSchema() map[string]any {
	return openai.SchemaFor[genrePayload]()
}

// GenreDetector implements story.GenreDetector with a JSON backend.
type GenreDetector struct {
	backend JSONBackend
	catalog *story.GenreCatalog
	gate    *Gate
	logger  *slog.Logger
}

// NewGenreDetector wraps backend. A nil catalog means the embedded one.
func NewGenreDetector(backend JSONBackend, catalog *story.GenreCatalog, gate *Gate, logger *slog.Logger) *GenreDetector {
	if catalog == nil {
		catalog = story.DefaultTables().Genres
	}
	return &GenreDetector{
		backend: backend,
		catalog: catalog,
		gate:    gate,
		logger:  logging.NewComponentLogger(logger, "genre-detector"),
	}
}

// Available reports whether the backend is configured and healthy.
func (d *GenreDetector) Available() bool {
	return d != nil && d.backend != nil && available(d.backend.Configured(), d.gate)
}

// Detect classifies text. Labels outside the catalog resolve to the default genre.
func (d *GenreDetector) Detect(ctx context.Context, text string) (story.Genre, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return story.Genre{}, errors.New("genre detection: text required")
	}
	if !d.Available() {
		return story.Genre{}, errors.New("genre detection: backend unavailable")
	}
	raw, err := d.backend.CompleteJSON(ctx, GenrePrompt(d.catalog), text)
	if err != nil {
		return story.Genre{}, fmt.Errorf("genre detection: %w", err)
	}
	var payload genrePayload
	if err := llm.DecodeLLMJSON(raw, &payload); err != nil {
		return story.Genre{}, fmt.Errorf("genre detection: parse payload: %w", err)
	}
	genre, known := d.catalog.Lookup(payload.Genre)
	reason := "model label"
	if !known {
		genre = d.catalog.Default()
		reason = fmt.Sprintf("unknown label %q", payload.Genre)
	}
	d.logger.Info("genre detected",
		logging.Args(append(logging.DecisionAttrs("genre", genre.Name, reason),
			logging.Float64("confidence", clampConfidence(payload.Confidence)),
			logging.String("keywords", strings.Join(payload.Keywords, ", ")),
		)...)...,
	)
	return genre, nil
}

// GenrePrompt lists the catalog for the model.
func GenrePrompt(catalog *story.GenreCatalog) string {
	var b strings.Builder
	b.WriteString("당신은 스토리 장르 분석 전문가입니다.\n\n사용자가 보낸 스토리의 장르를 판단하세요.\n\n장르 옵션:\n")
	for _, g := range catalog.All() {
		fmt.Fprintf(&b, "- %s: %s\n", g.Name, g.Description)
	}
	b.WriteString("\n요구사항:\n1. 위 장르 중 가장 적합한 것을 선택\n2. JSON 형식으로만 응답\n3. 설명 없이 JSON만 출력\n\n")
	fmt.Fprintf(&b, `JSON 형식: {"genre": "%s", "keywords": ["마법", "교훈"], "confidence": 0.9}`, catalog.Default().Name)
	return b.String()
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
