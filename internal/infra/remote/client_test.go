package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, routes map[string]string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupMetadata_Success(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/info/dQw4w9WgXcQ": `{"status":"success","data":{"title":"T","duration":"3:33","thumbnail":"https://x/y.jpg?a=1"}}`,
	}, http.StatusOK)

	c := NewClient(srv.URL, srv.Client())
	meta, err := c.LookupMetadata(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("LookupMetadata() error = %v", err)
	}
	if meta.Title != "T" || meta.DurationDisplay != "3:33" || meta.DurationSeconds != 213 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.ThumbnailURL != "https://x/y.jpg" {
		t.Fatalf("thumbnail = %q", meta.ThumbnailURL)
	}
	if meta.ID.ID != "dQw4w9WgXcQ" {
		t.Fatalf("id = %q", meta.ID.ID)
	}
}

func TestLookupMetadata_SuccessGate(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/info/abc": `{"status":"error","data":{"title":"T"}}`,
	}, http.StatusOK)

	_, err := NewClient(srv.URL, srv.Client()).LookupMetadata(context.Background(), "abc")
	if !errors.Is(err, ErrUnsuccessful) {
		t.Fatalf("expected ErrUnsuccessful, got %v", err)
	}
}

func TestLookupMetadata_NumericDuration(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/info/abc": `{"status":"success","data":{"title":"T","duration":213}}`,
	}, http.StatusOK)

	meta, err := NewClient(srv.URL, srv.Client()).LookupMetadata(context.Background(), "abc")
	if err != nil {
		t.Fatalf("LookupMetadata() error = %v", err)
	}
	if meta.DurationDisplay != "3:33" || meta.DurationSeconds != 213 {
		t.Fatalf("duration = %q/%d", meta.DurationDisplay, meta.DurationSeconds)
	}
}

func TestGetURL_StatusError(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/download/abc": `{"status":"success","url":"https://cdn/x.mp3"}`,
	}, http.StatusBadGateway)

	_, err := NewClient(srv.URL, srv.Client()).RequestDownloadURL(context.Background(), "abc")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T %v", err, err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", statusErr.StatusCode)
	}
}

func TestGetURL_SuccessAndEmptyURL(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/stream/abc":   `{"status":"success","url":"https://cdn/abc.m3u8"}`,
		"/download/abc": `{"status":"success","url":""}`,
	}, http.StatusOK)
	c := NewClient(srv.URL, srv.Client())

	u, err := c.ResolveStreamURL(context.Background(), "abc")
	if err != nil || u != "https://cdn/abc.m3u8" {
		t.Fatalf("ResolveStreamURL() = %q, %v", u, err)
	}
	if _, err := c.RequestDownloadURL(context.Background(), "abc"); !errors.Is(err, ErrUnsuccessful) {
		t.Fatalf("expected ErrUnsuccessful for empty url, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.URL.Query().Get("q") == "empty" {
			w.Write([]byte(`[]`))
			return
		}
		w.Write([]byte(`[{"video_id":"a1","title":"First","duration":null,"thumbnail":"https://t/1.jpg"},{"id":"b2","title":"Second","duration":"1:00"}]`))
	}))
	defer srv.Close()
	c := NewClient(srv.URL, srv.Client())

	rows, err := c.Search(context.Background(), "never gonna", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotQuery != "limit=10&q=never+gonna" {
		t.Fatalf("query = %q", gotQuery)
	}
	if len(rows) != 2 || rows[0].ID != "a1" || rows[0].Duration != "" || rows[1].ID != "b2" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	if _, err := c.Search(context.Background(), "empty", 0); !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	if _, err := NewClient(base, nil).LookupMetadata(context.Background(), "abc"); err == nil {
		t.Fatal("expected transport error")
	}
}
