package story

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"storyreel/internal/logging"
)

// NarrationRequest describes the scene a NarrationWriter is asked to narrate.
type NarrationRequest struct {
	Topic      string
	SceneIndex int
	Act        Act
	ActName    string
	KoreanMood string
	SceneTitle string
	Style      string
}

// NarrationWriter produces a spoken line for one scene. It is best-effort.
type NarrationWriter interface {
	Available() bool
	Write(ctx context.Context, req NarrationRequest) (string, error)
}

// Input is everything Compose needs for one run.
type Input struct {
	Topic string
	// ActContexts overrides the topic per act for phrase matching and prompt text.
	ActContexts   [ActCount]string
	Distribution  ActDistribution
	SceneDuration float64
	Writer        NarrationWriter
	Style         string
}

func (in Input) contextFor(act Act) string {
	if act.Valid() {
		if ctx := strings.TrimSpace(in.ActContexts[act-1]); ctx != "" {
			return ctx
		}
	}
	return in.Topic
}

// Composer turns an act distribution into fully populated scenes.
type Composer struct {
	pool    *NarrationPool
	phrases *PhraseBank
	logger  *slog.Logger
}

// NewComposer builds a composer over tables. Nil tables means the embedded set.
func NewComposer(tables *Tables, logger *slog.Logger) *Composer {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Composer{
		pool:    tables.Pool,
		phrases: tables.Phrases,
		logger:  logging.NewComponentLogger(logger, "composer"),
	}
}

// Compose emits one scene per allocation, in act order.
func (c *Composer) Compose(ctx context.Context, in Input) []Scene {
	allocations := Allocate(c.pool, in.Distribution)
	reserved := make(map[string]struct{}, len(allocations))
	for _, a := range allocations {
		reserved[a.Narration] = struct{}{}
	}
	used := make(map[string]struct{}, len(allocations))
	writer := in.Writer
	if writer != nil && !writer.Available() {
		writer = nil
	}
	logger := logging.WithContext(ctx, c.logger)

	scenes := make([]Scene, 0, len(allocations))
	for i, a := range allocations {
		index := i + 1
		actContext := in.contextFor(a.Act)
		action := c.phrases.Action(actContext, a.Act)
		scene := Scene{
			Index:             index,
			Act:               a.Act,
			ActName:           a.Act.Name(),
			Title:             fmt.Sprintf("%s - 장면 %d", a.Act.Name(), a.Position+1),
			Mood:              a.Mood,
			KoreanMood:        a.KoreanMood,
			CameraMovement:    a.Camera,
			Narration:         a.Narration,
			NarrationSource:   NarrationFromPool,
			VisualDescription: ComposePrompt(actContext, index, action, a.KoreanMood),
			KoreanDescription: fmt.Sprintf("%s 이야기 중 %s의 %s 장면", in.Topic, a.Act.Name(), a.KoreanMood),
			DurationSeconds:   in.SceneDuration,
		}
		if writer != nil && ctx.Err() == nil {
			if line, ok := c.writeNarration(ctx, logger, writer, in, scene, reserved, used); ok {
				scene.Narration = line
				scene.NarrationSource = NarrationFromLLM
			}
		}
		used[scene.Narration] = struct{}{}
		scenes = append(scenes, scene)
	}
	return scenes
}

func (c *Composer) writeNarration(
	ctx context.Context,
	logger *slog.Logger,
	writer NarrationWriter,
	in Input,
	scene Scene,
	reserved, used map[string]struct{},
) (string, bool) {
	line, err := writer.Write(ctx, NarrationRequest{
		Topic:      in.Topic,
		SceneIndex: scene.Index,
		Act:        scene.Act,
		ActName:    scene.ActName,
		KoreanMood: scene.KoreanMood,
		SceneTitle: scene.Title,
		Style:      in.Style,
	})
	if err != nil {
		logging.WarnWithContext(logger, "narration writer failed; using pool line", "narration_writer_failed",
			logging.Int("scene", scene.Index),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check llm endpoint availability"),
			logging.String(logging.FieldImpact, "scene uses pre-authored narration"),
		)
		return "", false
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if _, dup := used[line]; dup {
		logger.Debug("duplicate llm narration rejected", logging.Int("scene", scene.Index))
		return "", false
	}
	if _, dup := reserved[line]; dup {
		logger.Debug("llm narration collides with pool line", logging.Int("scene", scene.Index))
		return "", false
	}
	return line, true
}
