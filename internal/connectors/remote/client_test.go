package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const csvBody = "country,year,total\nChina,1996,3100\n"

func TestFetchStoresETagAndHonoursNotModified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, 0)
	body, err := c.Fetch(context.Background(), true)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != csvBody {
		t.Fatalf("unexpected body %q", body)
	}

	if _, err := c.Fetch(context.Background(), true); !errors.Is(err, ErrNotModified) {
		t.Fatalf("expected ErrNotModified, got %v", err)
	}

	body, err = c.Fetch(context.Background(), false)
	if err != nil || len(body) == 0 {
		t.Fatalf("unconditional fetch = %q, %v", body, err)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			http.Error(w, "try again", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, 2)
	if _, err := c.Fetch(context.Background(), false); err != nil {
		t.Fatalf("Fetch after retry: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
}

func TestFetchReportsClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, 0).Fetch(context.Background(), false)
	if err == nil || !strings.Contains(err.Error(), "status=404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestServiceStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.Header().Set("Last-Modified", "Mon, 01 Jan 2024 00:00:00 GMT")
		w.Header().Set("ETag", `"abc"`)
	}))
	defer srv.Close()

	stats, err := NewClient(srv.URL, time.Second, 0).ServiceStats(context.Background())
	if err != nil {
		t.Fatalf("ServiceStats: %v", err)
	}
	if stats.StatusCode != http.StatusOK || stats.ETag != `"abc"` || stats.LastModified == "" {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestDisabledClient(t *testing.T) {
	c := NewClient("  ", time.Second, 0)
	if c.Enabled() {
		t.Fatal("blank url should disable the client")
	}
	if _, err := c.Fetch(context.Background(), false); err == nil {
		t.Fatal("expected error from disabled client")
	}
}
