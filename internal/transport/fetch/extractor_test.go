package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/prolix-oc/Enspira-sub000/internal/domain"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Go 1.22 Release Notes</title><script>window.track()</script></head>
<body>
<nav>Home | Docs | Blog</nav>
<article>
<h1>Go 1.22 Release Notes</h1>
<p>The latest Go release, version 1.22, arrives six months after Go 1.21.
Most of its changes are in the implementation of the toolchain, runtime,
and libraries. As always, the release maintains the Go 1 promise of
compatibility, and we expect almost all Go programs to continue to compile
and run as before.</p>
<p>Go 1.22 makes two changes to for loops. Previously, the variables declared
by a for loop were created once and updated by each iteration. In Go 1.22,
each iteration of the loop creates new variables, to avoid accidental
sharing bugs. The second change is that for loops may now range over
integers, which makes counting loops easier to read and harder to get
wrong.</p>
<p>Work continues on the runtime. Keeping garbage collection metadata nearer
to each heap object improves the CPU performance of Go programs slightly,
and also reduces the memory overhead of the majority of Go programs by
around one percent.</p>
</article>
<footer>Copyright</footer>
</body>
</html>`

func TestExtract_ReadableContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	e := New(Config{}, zap.NewNop())
	text, failed, err := e.Extract(context.Background(), []domain.ResultLink{
		{URL: srv.URL, Title: "Go 1.22 Release Notes", Source: "go.dev"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed != 0 {
		t.Fatalf("expected 0 failed pages, got %d", failed)
	}
	if !strings.Contains(text, "range over") {
		t.Errorf("expected article text, got %q", text)
	}
	if !strings.Contains(text, "Go 1.22 Release Notes (go.dev)") {
		t.Errorf("expected attribution header, got %q", text)
	}
	if strings.Contains(text, "window.track") {
		t.Error("script content leaked into extraction")
	}
}

func TestExtract_PartialFailure(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer bad.Close()

	e := New(Config{}, zap.NewNop())
	text, failed, err := e.Extract(context.Background(), []domain.ResultLink{
		{URL: bad.URL, Title: "Bad"},
		{URL: good.URL, Title: "Good"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed != 1 {
		t.Errorf("expected 1 failed page, got %d", failed)
	}
	if text == "" {
		t.Error("expected surviving page content")
	}
}

func TestExtract_AllFailed(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer bad.Close()

	e := New(Config{}, zap.NewNop())
	text, failed, err := e.Extract(context.Background(), []domain.ResultLink{
		{URL: bad.URL}, {URL: bad.URL},
	})
	if err != nil {
		t.Fatalf("all-failed is reported via counts, got error %v", err)
	}
	if failed != 2 {
		t.Errorf("expected 2 failed pages, got %d", failed)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}

func TestExtract_NoLinks(t *testing.T) {
	e := New(Config{}, zap.NewNop())
	text, failed, err := e.Extract(context.Background(), nil)
	if err != nil || text != "" || failed != 0 {
		t.Errorf("expected no-op, got %q %d %v", text, failed, err)
	}
}

func TestAttributionHeader_Defaults(t *testing.T) {
	h := attributionHeader(domain.ResultLink{URL: "https://x.example"})
	if !strings.Contains(h, "https://x.example") {
		t.Errorf("expected url fallback, got %q", h)
	}
}
