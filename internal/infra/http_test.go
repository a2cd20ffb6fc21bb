package infra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) ObserveFetch(kind, outcome string, _ time.Duration) {
	r.mu.Lock()
	r.calls = append(r.calls, kind+":"+outcome)
	r.mu.Unlock()
}

func TestFetcherSendsUserAgentAndCaches(t *testing.T) {
	var hits atomic.Int32
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	f := NewFetcher(FetcherOptions{
		UserAgent: "Jane Doe jane@example.com",
		RateLimit: 10,
		Cache:     NewMemoryCache(time.Hour),
		CacheTTL:  time.Hour,
		Observer:  obs,
	})

	for i := 0; i < 2; i++ {
		data, err := f.Get(context.Background(), "submissions", srv.URL+"/x.json")
		if err != nil {
			t.Fatalf("Get #%d: %v", i, err)
		}
		if string(data) != `{"ok":true}` {
			t.Fatalf("Get #%d body = %s", i, data)
		}
	}

	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1 (second call cached)", n)
	}
	if ua, _ := gotUA.Load().(string); ua != "Jane Doe jane@example.com" {
		t.Errorf("User-Agent = %q", ua)
	}
	want := []string{"submissions:ok", "submissions:hit"}
	if len(obs.calls) != 2 || obs.calls[0] != want[0] || obs.calls[1] != want[1] {
		t.Errorf("observer calls = %v, want %v", obs.calls, want)
	}
}

func TestFetcherHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{UserAgent: "a b@c.d", RateLimit: 10})
	_, err := f.Get(context.Background(), "index", srv.URL)
	if err == nil {
		t.Fatal("expected error for 403")
	}
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *ErrHTTP, got %T", err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d", httpErr.StatusCode)
	}
}

func TestFetcherDoesNotCacheErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{UserAgent: "a b@c.d", RateLimit: 10, Cache: NewMemoryCache(time.Hour), CacheTTL: time.Hour})
	if _, err := f.Get(context.Background(), "index", srv.URL); err == nil {
		t.Fatal("first call should fail")
	}
	data, err := f.Get(context.Background(), "index", srv.URL)
	if err != nil || string(data) != "ok" {
		t.Fatalf("second call = %q, %v", data, err)
	}
}

func TestFetcherKindTTL(t *testing.T) {
	var version atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"v":%d}`, version.Load())
	}))
	defer srv.Close()

	cache := NewMemoryCache(time.Hour)
	f := NewFetcher(FetcherOptions{
		UserAgent: "Jane Doe jane@example.com",
		RateLimit: 10,
		Cache:     cache,
		CacheTTL:  24 * time.Hour,
		KindTTL:   map[string]time.Duration{"submissions": 0},
	})
	ctx := context.Background()

	version.Store(1)
	first, err := f.Get(ctx, "submissions", srv.URL+"/submissions/CIK1.json")
	if err != nil {
		t.Fatal(err)
	}
	doc1, err := f.Get(ctx, "attachment", srv.URL+"/infotable.xml")
	if err != nil {
		t.Fatal(err)
	}

	// EDGAR publishes a new filing between two runs.
	version.Store(2)
	second, err := f.Get(ctx, "submissions", srv.URL+"/submissions/CIK1.json")
	if err != nil {
		t.Fatal(err)
	}
	doc2, err := f.Get(ctx, "attachment", srv.URL+"/infotable.xml")
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != `{"v":1}` || string(second) != `{"v":2}` {
		t.Errorf("uncached kind: run1=%s run2=%s", first, second)
	}
	if string(doc1) != `{"v":1}` || string(doc2) != `{"v":1}` {
		t.Errorf("cached kind: run1=%s run2=%s", doc1, doc2)
	}
	if n := cache.Len(); n != 1 {
		t.Errorf("cache entries = %d, want 1", n)
	}
}

func TestMemoryCacheCleanup(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour)
	_ = c.Set(ctx, "old", []byte("x"), time.Millisecond)
	_ = c.Set(ctx, "fresh", []byte("y"), time.Hour)
	time.Sleep(5 * time.Millisecond)

	c.Cleanup()
	if n := c.Len(); n != 1 {
		t.Fatalf("entries after cleanup = %d, want 1", n)
	}
	if _, ok, _ := c.Get(ctx, "fresh"); !ok {
		t.Error("unexpired entry was dropped")
	}
}
