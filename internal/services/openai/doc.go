// Package openai wraps the openai-go Responses API for strict structured output.
//
// SchemaFor reflects a Go struct into the JSON schema the API requires, and
// Client.Bind turns a client plus schema into a CompleteJSON implementation so
// the story analyzer and genre detector can run on either this backend or the
// chat completions client in package llm.
package openai
