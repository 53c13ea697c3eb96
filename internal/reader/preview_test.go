package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	raw := "  Jon   Jones \r\n\r\n defeated  Anthony Smith \r by decision. \n\n"
	got := CleanText(raw)
	want := "Jon Jones\n\ndefeated Anthony Smith\n\nby decision."
	if got != want {
		t.Fatalf("CleanText(%q) = %q, want %q", raw, got, want)
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	text, truncated := TruncateText("short", 100)
	if text != "short" || truncated {
		t.Fatalf("expected no truncation, got %q %v", text, truncated)
	}

	text, truncated = TruncateText("a longer piece of text", 10)
	if !truncated || len([]rune(text)) > 10 {
		t.Fatalf("expected clipped text, got %q %v", text, truncated)
	}
	if !strings.HasSuffix(text, "…") {
		t.Fatalf("expected an ellipsis suffix, got %q", text)
	}
}

func TestFetchText_PlainText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Jon Jones  record page\n\nChampion"))
	}))
	defer srv.Close()

	got, err := FetchText(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(got, "Jon Jones record page") {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestFetchText_HTMLExtraction(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Jon Jones</title></head>
<body><article><h1>Jon Jones</h1><p>Jonathan Dwight Jones is an American mixed martial artist.
He is a former two time UFC Light Heavyweight Champion, having held the title from 2011 to 2015.</p></article></body></html>`))
	}))
	defer srv.Close()

	got, err := FetchText(context.Background(), srv.URL, "Jon Jones")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(got, "mixed martial artist") {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestFetchText_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := FetchText(context.Background(), srv.URL, ""); err == nil {
		t.Fatalf("expected an error for a 404 response")
	}
}

func TestFetchText_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := FetchText(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected an error for an empty url")
	}
}
