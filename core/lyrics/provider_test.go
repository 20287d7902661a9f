package lyrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubProvider struct {
	name   string
	result Result
	err    error
	calls  int
}

func (p *stubProvider) GetLyrics(ctx context.Context, artist, title string) (Result, error) {
	p.calls++
	return p.result, p.err
}

func (p *stubProvider) Name() string { return p.name }

func TestChainFirstNonEmptyWins(t *testing.T) {
	first := &stubProvider{name: "first", result: Result{SyncedText: "[00:01.00]hi"}}
	second := &stubProvider{name: "second", result: Result{PlainText: "hi"}}
	chain := NewChain(first, second)

	got, err := chain.GetLyrics(context.Background(), "a", "t")
	if err != nil {
		t.Fatalf("GetLyrics() error: %v", err)
	}
	if got.SyncedText != "[00:01.00]hi" {
		t.Errorf("result = %+v, want first provider's", got)
	}
	if second.calls != 0 {
		t.Error("second provider should not be queried when the first succeeds")
	}
}

func TestChainFallsThroughOnFailure(t *testing.T) {
	first := &stubProvider{name: "first", err: errors.New("boom")}
	second := &stubProvider{name: "second", result: Result{PlainText: "fallback"}}
	chain := NewChain(first, second)

	got, err := chain.GetLyrics(context.Background(), "a", "t")
	if err != nil {
		t.Fatalf("GetLyrics() error: %v", err)
	}
	if got.PlainText != "fallback" {
		t.Errorf("result = %+v, want fallback", got)
	}
}

func TestChainFallsThroughOnEmpty(t *testing.T) {
	first := &stubProvider{name: "first"}
	second := &stubProvider{name: "second", result: Result{PlainText: "fallback"}}
	chain := NewChain(first, second)

	got, err := chain.GetLyrics(context.Background(), "a", "t")
	if err != nil {
		t.Fatalf("GetLyrics() error: %v", err)
	}
	if got.PlainText != "fallback" {
		t.Errorf("result = %+v, want fallback", got)
	}
}

func TestChainAllEmptyIsNotFound(t *testing.T) {
	chain := NewChain(&stubProvider{name: "a"}, &stubProvider{name: "b"})

	_, err := chain.GetLyrics(context.Background(), "a", "t")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestChainPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &stubProvider{name: "first", err: errors.New("cut off")}
	second := &stubProvider{name: "second", result: Result{PlainText: "late"}}
	chain := NewChain(first, second)

	cancel()
	_, err := chain.GetLyrics(ctx, "a", "t")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if second.calls != 0 {
		t.Error("cancelled chain must not query further providers")
	}
}

func TestLrclibProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/get" {
			t.Errorf("path = %s, want /api/get", r.URL.Path)
		}
		if got := r.URL.Query().Get("artist_name"); got != "Some Artist" {
			t.Errorf("artist_name = %q", got)
		}
		w.Write([]byte(`{"plainLyrics":"hello","syncedLyrics":"[00:01.00]hello"}`))
	}))
	defer srv.Close()

	p := NewLrclibProvider(srv.URL, srv.Client())
	got, err := p.GetLyrics(context.Background(), "Some Artist", "Some Title")
	if err != nil {
		t.Fatalf("GetLyrics() error: %v", err)
	}
	if got.PlainText != "hello" || got.SyncedText != "[00:01.00]hello" {
		t.Errorf("result = %+v", got)
	}
}

func TestLrclibNotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewLrclibProvider(srv.URL, srv.Client())
	got, err := p.GetLyrics(context.Background(), "a", "t")
	if err != nil {
		t.Fatalf("404 should not be an error, got %v", err)
	}
	if !got.Empty() {
		t.Errorf("result = %+v, want empty", got)
	}
}

func TestLyricsOvhProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/Some%20Artist/Some%20Title" && r.URL.EscapedPath() != "/v1/Some%20Artist/Some%20Title" {
			t.Errorf("path = %s", r.URL.EscapedPath())
		}
		w.Write([]byte(`{"lyrics":"plain words"}`))
	}))
	defer srv.Close()

	p := NewLyricsOvhProvider(srv.URL, srv.Client())
	got, err := p.GetLyrics(context.Background(), "Some Artist", "Some Title")
	if err != nil {
		t.Fatalf("GetLyrics() error: %v", err)
	}
	if got.PlainText != "plain words" || got.SyncedText != "" {
		t.Errorf("result = %+v", got)
	}
}
