package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/phrasecue/internal/query"
	"github.com/flemzord/phrasecue/internal/quota"
	"github.com/flemzord/phrasecue/pkg/clip"
)

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("body does not parse: %v\n%s", err, rec.Body.String())
	}
	return m
}

func TestSearch_CachedHitSkipsPipeline(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	fp := query.SearchFingerprint("hello")
	seg := clip.Segment{
		Fingerprint: fp,
		Query:       "hello",
		VideoID:     "v1",
		StartTime:   0,
		EndTime:     3,
		Caption:     "Hello world.",
		Captions:    []clip.Cue{{Text: "Hello world.", Start: 0, Duration: 3}},
	}
	if err := f.segments.Insert(context.Background(), seg); err != nil {
		t.Fatal(err)
	}

	rec := postJSON(t, f.handler, "/search", map[string]string{"query": "HELLO "})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "completed" || body["videoId"] != "v1" {
		t.Errorf("unexpected body: %v", body)
	}
	if body["videoUrl"] != "https://www.youtube.com/watch?v=v1" {
		t.Errorf("videoUrl = %v", body["videoUrl"])
	}
	if body["startTime"] != float64(0) || body["endTime"] != float64(3) {
		t.Errorf("times = %v/%v", body["startTime"], body["endTime"])
	}

	// No job row is created on a cache hit.
	if _, err := f.jobs.FindByFingerprint(context.Background(), fp); err == nil {
		t.Error("cache hit created a job")
	}
	if f.waker.calls.Load() != 0 {
		t.Error("cache hit woke the pool")
	}
}

func TestSearch_EnqueueThenPollTerminal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := postJSON(t, f.handler, "/search", map[string]string{"query": "zxcvqwerty"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "queued" {
		t.Fatalf("status = %v", body["status"])
	}
	jobID, _ := body["jobId"].(string)
	if jobID == "" {
		t.Fatal("no jobId in queued response")
	}
	if f.waker.calls.Load() != 1 {
		t.Errorf("wake calls = %d, want 1", f.waker.calls.Load())
	}

	// The worker terminalizes the job; the next poll sees it.
	fp := query.SearchFingerprint("zxcvqwerty")
	if err := f.jobs.SetError(context.Background(), fp, "No videos found for this query"); err != nil {
		t.Fatal(err)
	}

	rec = postJSON(t, f.handler, "/search", map[string]string{"query": "zxcvqwerty", "jobId": jobID})
	body = decodeBody(t, rec)
	if body["status"] != "failed" {
		t.Fatalf("status = %v", body["status"])
	}
	if body["error"] != "No videos found for this query" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestSearch_DuplicateEnqueueReturnsSameJob(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	first := decodeBody(t, postJSON(t, f.handler, "/search", map[string]string{"query": "hello world"}))
	second := decodeBody(t, postJSON(t, f.handler, "/search", map[string]string{"query": "  Hello World "}))
	if first["jobId"] != second["jobId"] {
		t.Errorf("job ids differ: %v vs %v", first["jobId"], second["jobId"])
	}
}

func TestSearch_InvalidInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tests := []struct {
		name string
		body any
	}{
		{"missing query", map[string]string{}},
		{"blank query", map[string]string{"query": "   "}},
		{"oversized query", map[string]string{"query": strings.Repeat("x", 201)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postJSON(t, f.handler, "/search", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSearch_Throttled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.gateway.ruleFor = func(string) quota.LimitConfig {
		return quota.LimitConfig{UserLimit: 1, IPLimit: 1, WindowMinutes: 60}
	}

	postJSON(t, f.handler, "/search", map[string]string{"query": "hello"})
	rec := postJSON(t, f.handler, "/search", map[string]string{"query": "hello"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	body := decodeBody(t, rec)
	if body["retryAfterSeconds"] == nil || body["retryAfterFormatted"] == nil {
		t.Errorf("missing retry hints: %v", body)
	}
}

func TestAnalyze_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	valid := map[string]any{
		"sentence":       "Hello world.",
		"targetWord":     "hello",
		"targetLanguage": "en",
		"nativeLanguage": "fr",
	}
	mutate := func(k string, v any) map[string]any {
		m := make(map[string]any, len(valid)+1)
		for key, val := range valid {
			m[key] = val
		}
		m[k] = v
		return m
	}

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing sentence", mutate("sentence", "")},
		{"missing targetWord", mutate("targetWord", "")},
		{"sentence too long", mutate("sentence", strings.Repeat("a", 1001))},
		{"word too long", mutate("targetWord", strings.Repeat("a", 101))},
		{"context too long", mutate("contextBefore", strings.Repeat("a", 501))},
		{"unknown language", mutate("targetLanguage", "xx")},
		{"unknown native language", mutate("nativeLanguage", "klingon")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postJSON(t, f.handler, "/analyze", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}

	// Chinese locale variants are accepted.
	rec := postJSON(t, f.handler, "/analyze", mutate("targetLanguage", "zh-tw"))
	if rec.Code == http.StatusBadRequest {
		t.Errorf("zh-tw rejected: %s", rec.Body.String())
	}
}

func TestAnalyze_MissDrivesUpstreamThenCaches(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	body := map[string]any{
		"sentence":       "Hello world.",
		"targetWord":     "hello",
		"targetLanguage": "en",
		"nativeLanguage": "fr",
	}

	rec := postJSON(t, f.handler, "/analyze", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	if got["fullTranslation"] != "Bonjour le monde" {
		t.Errorf("fullTranslation = %v", got["fullTranslation"])
	}
	if got["cached"] != false {
		t.Errorf("cached = %v, want false", got["cached"])
	}

	// Persistence is asynchronous; wait for the record to land, then the
	// second request must come from cache without another upstream call.
	fp := query.AnalysisFingerprint("Hello world.", "hello", "en", "fr", "", "")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := f.analyses.FindByFingerprint(context.Background(), fp); err == nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = postJSON(t, f.handler, "/analyze", body)
	got = decodeBody(t, rec)
	if got["cached"] != true {
		t.Fatalf("second request not cached: %v", got)
	}
	if f.analyzer.calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1", f.analyzer.calls.Load())
	}
}

func TestAnalyze_PaywallHeadersAndDenial(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	body := map[string]any{
		"sentence":       "Hello world.",
		"targetWord":     "hello",
		"targetLanguage": "en",
		"nativeLanguage": "fr",
		"userId":         "u1",
	}

	for i := 1; i <= 3; i++ {
		rec := postJSON(t, f.handler, "/analyze", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
		if got := rec.Header().Get("X-Paywall-Requests-Used"); got != strconv.Itoa(i) {
			t.Errorf("request %d: used header = %q", i, got)
		}
		if got := rec.Header().Get("X-Paywall-Requests-Limit"); got != "3" {
			t.Errorf("request %d: limit header = %q", i, got)
		}
	}

	rec := postJSON(t, f.handler, "/analyze", body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("fourth request: status = %d, want 403", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	got := decodeBody(t, rec)
	if got["retryAfterSeconds"] == nil || got["retryAfterFormatted"] == nil {
		t.Errorf("missing retry hints: %v", got)
	}
}

func TestAnalyze_SubscriberUnlimited(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ent.active["u1"] = true
	body := map[string]any{
		"sentence":       "Hello world.",
		"targetWord":     "hello",
		"targetLanguage": "en",
		"nativeLanguage": "fr",
		"userId":         "u1",
	}

	for i := 0; i < 5; i++ {
		rec := postJSON(t, f.handler, "/analyze", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
		if got := rec.Header().Get("X-Paywall-Requests-Limit"); got != "unlimited" {
			t.Errorf("limit header = %q, want unlimited", got)
		}
		if got := rec.Header().Get("X-Paywall-Has-Subscription"); got != "true" {
			t.Errorf("subscription header = %q", got)
		}
	}
}

func TestWordEndpoints(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ref := clip.SegmentRef{VideoID: "v1", StartTime: 11.4, EndTime: 18.2, Caption: "Python is great."}
	if err := f.words.AddSegmentToWords(context.Background(), []string{"python", "is", "great"}, ref); err != nil {
		t.Fatal(err)
	}

	rec := get(t, f.handler, "/examples/python")
	if rec.Code != http.StatusOK {
		t.Fatalf("examples status = %d", rec.Code)
	}
	var refs []clip.SegmentRef
	if err := json.Unmarshal(rec.Body.Bytes(), &refs); err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].VideoID != "v1" {
		t.Errorf("examples = %v", refs)
	}

	rec = get(t, f.handler, "/word/python")
	body := decodeBody(t, rec)
	if body["word"] != "python" || body["count"] != float64(1) {
		t.Errorf("word body = %v", body)
	}

	if rec := get(t, f.handler, "/examples/absent"); rec.Code != http.StatusNotFound {
		t.Errorf("missing word status = %d, want 404", rec.Code)
	}

	rec = get(t, f.handler, "/words?limit=2")
	body = decodeBody(t, rec)
	words, _ := body["words"].([]any)
	if len(words) != 2 {
		t.Errorf("words page = %v", body)
	}

	rec = get(t, f.handler, "/stats")
	body = decodeBody(t, rec)
	if body["totalWords"] != float64(3) || body["totalMappings"] != float64(3) {
		t.Errorf("stats = %v", body)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := get(t, f.handler, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}
