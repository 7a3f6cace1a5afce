// Package llm provides an OpenAI-compatible chat completions client.
//
// It talks to OpenRouter by default and to a local Ollama server when
// provider = "ollama" (no API key required, base_url pointing at
// http://localhost:11434/v1/chat/completions).
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: system/user prompts in, JSON payload out (temperature 0).
// Client.Complete: free-text completion used for narration lines.
// Client.HealthCheck: verify the endpoint and model are usable.
// DecodeLLMJSON / CleanLine: tolerate code fences, prose, and quotes.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx, empty content, and network timeouts
// with exponential backoff (base 1s, max 10s, up to 3 attempts by default).
// Context cancellation aborts retries immediately. Callers that want a single
// best-effort attempt pass WithRetryMaxAttempts(1).
package llm
