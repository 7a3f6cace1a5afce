package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
)

type genrePayload struct {
	Genre      string   `json:"genre" jsonschema_description:"Detected genre label"`
	Keywords   []string `json:"keywords"`
	Confidence float64  `json:"confidence"`
}

func TestSchemaForIsStrict(t *testing.T) {
	schema := SchemaFor[genrePayload]()
	if schema["type"] != "object" {
		t.Fatalf("expected object schema, got %v", schema["type"])
	}
	if schema["additionalProperties"] != false {
		t.Fatalf("expected additionalProperties=false, got %v", schema["additionalProperties"])
	}
	required, ok := schema["required"].([]string)
	if !ok {
		t.Fatalf("expected required list, got %T", schema["required"])
	}
	for _, name := range []string{"genre", "keywords", "confidence"} {
		if !slices.Contains(required, name) {
			t.Fatalf("expected %q in required %v", name, required)
		}
	}
	if _, ok := schema["$schema"]; ok {
		t.Fatal("expected $schema to be stripped")
	}
}

func TestCompleteSchemaRequiresConfiguration(t *testing.T) {
	client := NewClient(Config{Model: "gpt-4o-mini"})
	if client.Configured() {
		t.Fatal("expected client without key to be unconfigured")
	}
	if _, err := client.CompleteSchema(context.Background(), "Genre", "sys", "text", SchemaFor[genrePayload]()); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestBoundCompleteJSONPostsResponsesRequest(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/responses") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_1",
			"object": "response",
			"status": "completed",
			"model": "gpt-4o-mini",
			"output": [{
				"type": "message",
				"id": "msg_1",
				"role": "assistant",
				"status": "completed",
				"content": [{"type": "output_text", "text": "{\"genre\":\"액션\",\"keywords\":[\"추격\"],\"confidence\":0.8}", "annotations": []}]
			}]
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL + "/", Model: "gpt-4o-mini"})
	bound := client.Bind("GenreDetection", SchemaFor[genrePayload]())
	if !bound.Configured() {
		t.Fatal("expected bound client to be configured")
	}
	raw, err := bound.CompleteJSON(context.Background(), "classify the genre", "자동차 추격전")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if !strings.Contains(raw, `"genre":"액션"`) {
		t.Fatalf("unexpected output %q", raw)
	}
	if captured["model"] != "gpt-4o-mini" {
		t.Fatalf("expected model in request, got %v", captured["model"])
	}
	if captured["instructions"] != "classify the genre" {
		t.Fatalf("expected instructions in request, got %v", captured["instructions"])
	}
	text, _ := captured["text"].(map[string]any)
	format, _ := text["format"].(map[string]any)
	if format["type"] != "json_schema" || format["name"] != "GenreDetection" {
		t.Fatalf("expected json_schema format, got %v", format)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_2",
			"object": "response",
			"status": "completed",
			"model": "gpt-4o-mini",
			"output": [{
				"type": "message",
				"id": "msg_2",
				"role": "assistant",
				"status": "completed",
				"content": [{"type": "output_text", "text": "{\"ok\":true}", "annotations": []}]
			}]
		}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL + "/", Model: "gpt-4o-mini"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if err := NewClient(Config{Model: "gpt-4o-mini"}).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected unconfigured client to fail health check")
	}
}
