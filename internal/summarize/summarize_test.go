package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"monthlyaid/internal/core"
)

func TestSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Story string `json:"story"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Story != "a long story" {
			t.Errorf("story = %q, want the posted story", req.Story)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"summary": "short"})
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Summarize(context.Background(), "a long story")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != "short" {
		t.Errorf("summary = %q, want %q", got, "short")
	}
}

func TestSummarizeEmptyStory(t *testing.T) {
	got, err := NewClient("http://unused").Summarize(context.Background(), "   ")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != "" {
		t.Errorf("summary = %q, want empty", got)
	}
}

func TestSummarizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Summarize(context.Background(), "story")
	if !errors.Is(err, core.ErrExternalService) {
		t.Fatalf("err = %v, want external service error", err)
	}
}

func TestSummarizeNoEndpoint(t *testing.T) {
	_, err := NewClient("").Summarize(context.Background(), "story")
	if !errors.Is(err, core.ErrExternalService) {
		t.Fatalf("err = %v, want external service error", err)
	}
}
