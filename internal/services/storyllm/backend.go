package storyllm

import (
	"context"
	"sync/atomic"
)

// JSONBackend answers a system/user prompt pair with a JSON document.
// *llm.Client and *openai.Bound both satisfy it.
type JSONBackend interface {
	Configured() bool
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// TextBackend answers with free text at a caller-chosen temperature.
type TextBackend interface {
	Configured() bool
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

// Gate remembers whether the backend failed its last health check. A nil
// Gate is always open.
type Gate struct {
	failed atomic.Bool
}

// Record stores the outcome of a health check.
func (g *Gate) Record(err error) {
	if g == nil {
		return
	}
	g.failed.Store(err != nil)
}

// Open reports whether the last recorded health check passed.
func (g *Gate) Open() bool {
	return g == nil || !g.failed.Load()
}

func available(configured bool, gate *Gate) bool {
	return configured && gate.Open()
}
