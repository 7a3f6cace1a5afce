// Package storyllm adapts the LLM backends to the story engine's optional
// collaborators: Analyzer (long-form story to title plus five acts),
// NarrationWriter (one spoken line per scene), and GenreDetector.
//
// JSON work runs on any JSONBackend: the chat-completions client in
// services/llm, or a schema-bound openai.Bound for strict structured output.
// Narration always runs on the chat client. A shared Gate lets a failed
// health check switch every component off until the next successful check.
package storyllm
