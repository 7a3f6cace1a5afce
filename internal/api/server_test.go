package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"storyreel/internal/api"
	"storyreel/internal/jobs"
	"storyreel/internal/story"
	"storyreel/internal/testsupport"
)

type countingNotifier struct{ n atomic.Int32 }

func (c *countingNotifier) Notify() { c.n.Add(1) }

type failingGenerator struct{ err error }

func (f failingGenerator) Generate(context.Context, story.GenerationRequest) (*story.GeneratedStory, error) {
	return nil, f.err
}

func newTestServer(t *testing.T, token string) (*httptest.Server, *jobs.Store, *countingNotifier) {
	t.Helper()
	store := testsupport.NewJobStore(t)
	notifier := &countingNotifier{}
	srv := api.NewServer(api.Deps{
		Generator: story.NewGenerator(story.DefaultOptions()),
		Jobs:      store,
		Worker:    notifier,
		Token:     token,
		Health: func(context.Context) []api.HealthCheck {
			return []api.HealthCheck{{Name: "ffmpeg", Ready: true}}
		},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store, notifier
}

func doJSON(t *testing.T, method, url, body string, headers map[string]string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func TestGenerateStoryContract(t *testing.T) {
	ts, _, _ := newTestServer(t, "")

	var payload struct {
		Success bool `json:"success"`
		Story   struct {
			Title         string  `json:"title"`
			TotalScenes   int     `json:"total_scenes"`
			TotalDuration float64 `json:"total_duration"`
			Scenes        []struct {
				SceneNumber int     `json:"scene_number"`
				Act         int     `json:"act"`
				Narration   string  `json:"narration"`
				Description string  `json:"description"`
				Duration    float64 `json:"duration"`
			} `json:"scenes"`
		} `json:"story"`
	}
	resp := doJSON(t, http.MethodPost, ts.URL+"/generate-story", `{"prompt":"행복한 제빵사의 아침","duration":28}`, nil, &payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
	if !payload.Success || payload.Story.TotalScenes != 7 || len(payload.Story.Scenes) != 7 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	first := payload.Story.Scenes[0]
	if first.SceneNumber != 1 || first.Act != 1 || first.Duration != 4 {
		t.Fatalf("unexpected first scene %+v", first)
	}
	if !strings.Contains(first.Description, "baker opening bakery at dawn") {
		t.Fatalf("expected baker phrase, got %q", first.Description)
	}
}

func TestGenerateStoryDefaultsToLegacyTale(t *testing.T) {
	ts, _, _ := newTestServer(t, "")
	var payload api.StoryResponse
	resp := doJSON(t, http.MethodPost, ts.URL+"/generate-story", `{}`, nil, &payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if payload.Story == nil || payload.Story.Source != story.SourceLegacy {
		t.Fatalf("expected legacy story for empty prompt, got %+v", payload.Story)
	}
	if payload.Story.TotalScenes != 7 {
		t.Fatalf("expected 7 scenes for the default 30s, got %d", payload.Story.TotalScenes)
	}
}

func TestGenerateStoryRejectsMalformedBody(t *testing.T) {
	ts, _, _ := newTestServer(t, "")
	var payload api.ErrorResponse
	resp := doJSON(t, http.MethodPost, ts.URL+"/generate-story", `{"prompt":`, nil, &payload)
	if resp.StatusCode != http.StatusBadRequest || payload.Success || payload.Error == "" {
		t.Fatalf("unexpected response %d %+v", resp.StatusCode, payload)
	}
	if payload.RequestID == "" {
		t.Fatal("expected request id in error body")
	}
}

func TestGenerateStoryRejectsOversizedDuration(t *testing.T) {
	ts, store, notifier := newTestServer(t, "")

	for _, path := range []string{"/generate-story", "/api/jobs"} {
		var payload api.ErrorResponse
		resp := doJSON(t, http.MethodPost, ts.URL+path, `{"prompt":"x","duration":1e9}`, nil, &payload)
		if resp.StatusCode != http.StatusBadRequest || !strings.Contains(payload.Error, "300") {
			t.Fatalf("%s: unexpected response %d %+v", path, resp.StatusCode, payload)
		}
	}
	if list, _ := store.List(context.Background()); len(list) != 0 {
		t.Fatalf("expected no queued jobs, got %d", len(list))
	}
	if notifier.n.Load() != 0 {
		t.Fatal("worker should not be woken for a rejected job")
	}

	var ok api.StoryResponse
	resp := doJSON(t, http.MethodPost, ts.URL+"/generate-story", `{"prompt":"x","duration":300}`, nil, &ok)
	if resp.StatusCode != http.StatusOK || ok.Story == nil || ok.Story.TotalScenes != story.MaxScenes {
		t.Fatalf("expected %d scenes at the limit, got %d %+v", story.MaxScenes, resp.StatusCode, ok.Story)
	}
}

func TestGenerateStoryGeneratorError(t *testing.T) {
	srv := api.NewServer(api.Deps{Generator: failingGenerator{err: errors.New("boom")}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var payload api.ErrorResponse
	resp := doJSON(t, http.MethodPost, ts.URL+"/generate-story", `{"prompt":"x"}`, nil, &payload)
	if resp.StatusCode != http.StatusInternalServerError || payload.Success {
		t.Fatalf("unexpected response %d %+v", resp.StatusCode, payload)
	}
}

func TestJobLifecycleRoutes(t *testing.T) {
	ts, store, notifier := newTestServer(t, "")

	var created api.JobResponse
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/jobs", `{"prompt":"우주 고양이","duration":20}`, nil, &created)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if created.Job.ID == "" || created.Job.Status != string(jobs.StatusPending) {
		t.Fatalf("unexpected job %+v", created.Job)
	}
	if resp.Header.Get("Location") != "/api/jobs/"+created.Job.ID {
		t.Fatalf("unexpected location %q", resp.Header.Get("Location"))
	}
	if notifier.n.Load() != 1 {
		t.Fatalf("expected worker notify, got %d", notifier.n.Load())
	}

	if err := store.SaveStory(context.Background(), created.Job.ID, `{"title":"우주 고양이"}`); err != nil {
		t.Fatalf("SaveStory: %v", err)
	}

	var fetched api.JobResponse
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/jobs/"+created.Job.ID, "", nil, &fetched)
	if resp.StatusCode != http.StatusOK || fetched.Job.ID != created.Job.ID {
		t.Fatalf("unexpected get %d %+v", resp.StatusCode, fetched)
	}
	if !bytes.Contains(fetched.Job.Story, []byte("우주 고양이")) {
		t.Fatalf("expected story in job detail, got %s", fetched.Job.Story)
	}

	var listed api.JobListResponse
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/jobs?status=pending", "", nil, &listed)
	if resp.StatusCode != http.StatusOK || len(listed.Jobs) != 1 {
		t.Fatalf("unexpected list %d %+v", resp.StatusCode, listed)
	}
	if len(listed.Jobs[0].Story) != 0 {
		t.Fatal("listing should omit story payloads")
	}

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/jobs?status=bogus", "", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", resp.StatusCode)
	}

	var missing api.ErrorResponse
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/jobs/does-not-exist", "", nil, &missing)
	if resp.StatusCode != http.StatusNotFound || missing.Error != "job not found" {
		t.Fatalf("unexpected missing response %d %+v", resp.StatusCode, missing)
	}
}

func TestMusicRoutes(t *testing.T) {
	ts, _, _ := newTestServer(t, "")

	var matched api.MatchMusicResponse
	resp := doJSON(t, http.MethodPost, ts.URL+"/match-music", `{"mood":"romantic love","genre":"","title":"t"}`, nil, &matched)
	if resp.StatusCode != http.StatusOK || !matched.Success || matched.Music.Key != "romantic" {
		t.Fatalf("unexpected match %d %+v", resp.StatusCode, matched)
	}

	resp = doJSON(t, http.MethodPost, ts.URL+"/match-music", `{}`, nil, &matched)
	if resp.StatusCode != http.StatusOK || matched.Mood != "peaceful" || matched.Music.Key != "peaceful" {
		t.Fatalf("unexpected default match %d %+v", resp.StatusCode, matched)
	}

	var listed api.MusicListResponse
	resp = doJSON(t, http.MethodGet, ts.URL+"/list-music", "", nil, &listed)
	if resp.StatusCode != http.StatusOK || listed.TotalCount == 0 || listed.TotalCount != len(listed.MusicLibrary) {
		t.Fatalf("unexpected list %d %+v", resp.StatusCode, listed)
	}
}

func TestAuthRequiredWhenTokenSet(t *testing.T) {
	ts, _, _ := newTestServer(t, "secret")

	resp := doJSON(t, http.MethodGet, ts.URL+"/list-music", "", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/list-music", "", map[string]string{"Authorization": "Bearer wrong"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, ts.URL+"/list-music", "", map[string]string{"Authorization": "Bearer secret"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}

	var health api.HealthResponse
	resp = doJSON(t, http.MethodGet, ts.URL+"/health", "", nil, &health)
	if resp.StatusCode != http.StatusOK || health.Status != "healthy" || len(health.Checks) != 1 {
		t.Fatalf("health should be open: %d %+v", resp.StatusCode, health)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts, _, _ := newTestServer(t, "")
	resp := doJSON(t, http.MethodGet, ts.URL+"/health", "", map[string]string{"X-Request-ID": "req-123"}, nil)
	if got := resp.Header.Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestJobRoutesWithoutQueue(t *testing.T) {
	srv := api.NewServer(api.Deps{Generator: story.NewGenerator(story.DefaultOptions())})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/jobs", `{"prompt":"x"}`, nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	ts, _, _ := newTestServer(t, "")
	if resp := doJSON(t, http.MethodGet, ts.URL+"/nope", "", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodDelete, ts.URL+"/generate-story", "", nil, nil); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
