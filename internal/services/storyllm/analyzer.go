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

// AnalysisPrompt instructs the model to condense a story into five acts.
const AnalysisPrompt = `당신은 쇼츠 영상용 스토리 구조 분석가입니다.

사용자가 보낸 이야기를 읽고 다섯 막(발단, 전개, 위기, 절정, 결말)으로 나누어 요약하세요.

요구사항:
1. 제목은 20자 이내의 한국어
2. 각 막은 이야기의 해당 부분을 한두 문장으로 요약
3. 막은 반드시 5개, 순서대로
4. 원문에 없는 사건을 지어내지 말 것

JSON으로만 응답하세요: {"title": "제목", "acts": ["발단", "전개", "위기", "절정", "결말"]}`

type analysisPayload struct {
	Title string   `json:"title" jsonschema:"description=Short Korean title for the story"`
	Acts  []string `json:"acts" jsonschema:"description=Exactly five act summaries in order"`
}

// AnalysisSchema is the strict JSON schema for analysis responses.
func AnalysisSchema() map[string]any {
	return openai.SchemaFor[analysisPayload]()
}

// Analyzer implements story.Analyzer on top of a JSON backend.
type Analyzer struct {
	backend JSONBackend
	gate    *Gate
	logger  *slog.Logger
}

// NewAnalyzer wraps backend. gate may be nil.
func NewAnalyzer(backend JSONBackend, gate *Gate, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		backend: backend,
		gate:    gate,
		logger:  logging.NewComponentLogger(logger, "story-analyzer"),
	}
}

// Available reports whether the backend is configured and healthy.
func (a *Analyzer) Available() bool {
	return a != nil && a.backend != nil && available(a.backend.Configured(), a.gate)
}

// Analyze asks the backend for a title and five act synopses.
func (a *Analyzer) Analyze(ctx context.Context, text string) (story.Analysis, error) {
	var out story.Analysis
	text = strings.TrimSpace(text)
	if text == "" {
		return out, errors.New("story analysis: text required")
	}
	if !a.Available() {
		return out, errors.New("story analysis: backend unavailable")
	}
	raw, err := a.backend.CompleteJSON(ctx, AnalysisPrompt, text)
	if err != nil {
		return out, fmt.Errorf("story analysis: %w", err)
	}
	var payload analysisPayload
	if err := llm.DecodeLLMJSON(raw, &payload); err != nil {
		return out, fmt.Errorf("story analysis: parse payload: %w", err)
	}
	if len(payload.Acts) != story.ActCount {
		return out, fmt.Errorf("story analysis: expected %d acts, got %d", story.ActCount, len(payload.Acts))
	}
	out.Title = strings.TrimSpace(payload.Title)
	for i, act := range payload.Acts {
		out.Acts[i] = strings.TrimSpace(act)
	}
	if !out.Valid() {
		return story.Analysis{}, errors.New("story analysis: empty title or act")
	}
	a.logger.Debug("story analysed", logging.String("title", out.Title))
	return out, nil
}
