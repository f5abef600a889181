package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

func TestRerank_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req rerankRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "ranker-v1" || req.Query != "the query" || len(req.Documents) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(rerankResponse{Results: []Score{
			{Index: 1, Score: 7.2},
			{Index: 0, Score: 3.1},
		}})
	}))
	defer srv.Close()

	client := New(Config{URL: srv.URL, APIKey: "secret", Model: "ranker-v1"})
	scores, err := client.Rerank(context.Background(), "the query", []string{"doc a", "doc b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	if scores[0].Index != 1 || scores[0].Score != 7.2 {
		t.Errorf("unexpected first score: %+v", scores[0])
	}
}

func TestRerank_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(Config{URL: srv.URL})
	if _, err := client.Rerank(context.Background(), "q", []string{"d"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestRerank_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := New(Config{URL: srv.URL})
	_, err := client.Rerank(context.Background(), "q", []string{"d"})
	if !errors.Is(err, domain.ErrUpstreamMalformed) {
		t.Fatalf("expected ErrUpstreamMalformed, got %v", err)
	}
}

func TestRerank_IndexOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(rerankResponse{Results: []Score{{Index: 5, Score: 1}}})
	}))
	defer srv.Close()

	client := New(Config{URL: srv.URL})
	_, err := client.Rerank(context.Background(), "q", []string{"d"})
	if !errors.Is(err, domain.ErrUpstreamMalformed) {
		t.Fatalf("expected ErrUpstreamMalformed, got %v", err)
	}
}
