package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*GeminiClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewGeminiClient("test-key", "test-model")
	c.BaseURL = srv.URL
	return c, srv
}

func envelope(inner string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": inner}}}},
		},
	})
	return string(b)
}

func TestAnalyze_RejectsEmptyAudio(t *testing.T) {
	called := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	if _, err := c.Analyze(context.Background(), nil, "audio/webm", ""); err != ErrNoAudio {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
	if called {
		t.Fatalf("expected no request for empty payload")
	}
}

func TestAnalyze_SendsMemoryAndAudio(t *testing.T) {
	var got generateContentRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(envelope(`{"analysis": {"transcription": "hi"}, "triage": {"status": "GREEN"}}`)))
	})

	r, err := c.Analyze(context.Background(), []byte{1, 2, 3}, "audio/webm", "Turn 1: ...")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if r.Status != StatusGreen {
		t.Fatalf("status: %q", r.Status)
	}
	if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 2 {
		t.Fatalf("expected memory text part plus audio part, got %+v", got.Contents)
	}
	if got.Contents[0].Parts[1].InlineData == nil || got.Contents[0].Parts[1].InlineData.MimeType != "audio/webm" {
		t.Fatalf("expected inline audio data part")
	}
	if got.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatalf("expected json response mime type")
	}
}

func TestAnalyze_FirstTurnOmitsMemoryPart(t *testing.T) {
	var got generateContentRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(envelope(`{"triage": {"status": "GREEN"}}`)))
	})
	if _, err := c.Analyze(context.Background(), []byte{1}, "", ""); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(got.Contents[0].Parts) != 1 {
		t.Fatalf("expected single audio part on first turn, got %d", len(got.Contents[0].Parts))
	}
}

func TestAnalyze_ServiceErrorStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})
	_, err := c.Analyze(context.Background(), []byte{1}, "audio/webm", "")
	if !IsServiceFailure(err) {
		t.Fatalf("expected service failure, got %v", err)
	}
}

func TestAnalyze_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(envelope("this is not json")))
	})
	_, err := c.Analyze(context.Background(), []byte{1}, "audio/webm", "")
	if !IsMalformedResponse(err) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestAnalyze_NoCandidates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	})
	_, err := c.Analyze(context.Background(), []byte{1}, "audio/webm", "")
	if !IsMalformedResponse(err) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestAnalyze_FencedResponse(t *testing.T) {
	fenced := "```json\n" + `{"analysis": {"transcription": "ok"}, "triage": {"status": "AMBER"}}` + "\n```"
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(envelope(fenced)))
	})
	r, err := c.Analyze(context.Background(), []byte{1}, "audio/webm", "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if r.Status != StatusAmber {
		t.Fatalf("status: %q", r.Status)
	}
}
