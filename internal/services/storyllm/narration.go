package storyllm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"storyreel/internal/logging"
	"storyreel/internal/services/llm"
	"storyreel/internal/story"
)

const (
	narrationSystemPrompt = "당신은 30초 쇼츠 영상의 나레이션 작가입니다. 나레이션 한 문장만 출력합니다."
	narrationTemperature  = 0.7
	maxNarrationRunes     = 40
	truncatedRunes        = 37
)

var styleInstructions = map[string]string{
	"curious":  "궁금증을 유발하는 구어체로, 30자 이내로 짧고 강렬하게",
	"dramatic": "극적이고 감정적인 구어체로, 35자 이내로 생동감 있게",
	"calm":     "차분하고 여운이 남는 구어체로, 30자 이내로 서정적으로",
}

// NarrationWriter implements story.NarrationWriter with a free-text backend.
type NarrationWriter struct {
	backend TextBackend
	gate    *Gate
	logger  *slog.Logger
}

// NewNarrationWriter wraps backend. gate may be nil.
func NewNarrationWriter(backend TextBackend, gate *Gate, logger *slog.Logger) *NarrationWriter {
	return &NarrationWriter{
		backend: backend,
		gate:    gate,
		logger:  logging.NewComponentLogger(logger, "narration-writer"),
	}
}

// Available reports whether the backend is configured and healthy.
func (w *NarrationWriter) Available() bool {
	return w != nil && w.backend != nil && available(w.backend.Configured(), w.gate)
}

// Write asks for one spoken line for the scene in req.
func (w *NarrationWriter) Write(ctx context.Context, req story.NarrationRequest) (string, error) {
	if !w.Available() {
		return "", errors.New("narration: backend unavailable")
	}
	raw, err := w.backend.Complete(ctx, narrationSystemPrompt, NarrationPrompt(req), narrationTemperature)
	if err != nil {
		return "", fmt.Errorf("narration: %w", err)
	}
	line := ShortenNarration(llm.CleanLine(raw))
	if line == "" {
		return "", errors.New("narration: empty line")
	}
	w.logger.Debug("narration written", logging.Int("scene", req.SceneIndex), logging.String("narration", line))
	return line, nil
}

// NarrationPrompt renders the user prompt for one scene.
func NarrationPrompt(req story.NarrationRequest) string {
	instruction, ok := styleInstructions[strings.ToLower(strings.TrimSpace(req.Style))]
	if !ok {
		instruction = styleInstructions["curious"]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "스토리 주제: %s\n", req.Topic)
	fmt.Fprintf(&b, "현재 씬: %d번째 장면\n", req.SceneIndex)
	fmt.Fprintf(&b, "막 구조: %s (%s 분위기)\n", req.ActName, req.KoreanMood)
	fmt.Fprintf(&b, "씬 제목: %s\n\n", req.SceneTitle)
	b.WriteString("요구사항:\n")
	fmt.Fprintf(&b, "1. %s\n", instruction)
	b.WriteString("2. 존댓말 구어체 종결어미 사용 (예: ~어요, ~죠, ~네요)\n")
	b.WriteString("3. 시청자에게 직접 말하듯 친근하게\n")
	b.WriteString("4. 핵심만 담은 한 문장\n")
	b.WriteString("5. 이모티콘 사용 금지\n")
	b.WriteString("6. 나레이션만 출력 (설명 없이)\n\n")
	fmt.Fprintf(&b, "지금 %d번 씬 (%s, %s)의 나레이션을 작성하세요:", req.SceneIndex, req.ActName, req.KoreanMood)
	return b.String()
}

// ShortenNarration caps a line at 40 runes, cutting to 37 plus an ellipsis.
func ShortenNarration(line string) string {
	runes := []rune(strings.TrimSpace(line))
	if len(runes) <= maxNarrationRunes {
		return string(runes)
	}
	return string(runes[:truncatedRunes]) + "..."
}
