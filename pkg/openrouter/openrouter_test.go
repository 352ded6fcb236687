package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if client := NewClient(Config{APIKey: "   "}); client != nil {
		t.Fatal("NewClient() with blank api key should return nil")
	}
}

func TestPreflightSendsAttributionHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[]}`)
	}))
	defer ts.Close()

	client := NewClient(Config{
		APIKey:   "sk-test",
		BaseURL:  ts.URL + "/",
		SiteURL:  "https://luma.example.org",
		SiteName: "Luma",
	})
	if client == nil {
		t.Fatal("NewClient() = nil")
	}

	if err := Preflight(context.Background(), client); err != nil {
		t.Fatalf("Preflight() error = %v", err)
	}

	if auth := got.Get("Authorization"); auth != "Bearer sk-test" {
		t.Fatalf("Authorization = %q", auth)
	}
	if ref := got.Get("HTTP-Referer"); ref != "https://luma.example.org" {
		t.Fatalf("HTTP-Referer = %q", ref)
	}
	if title := got.Get("X-Title"); title != "Luma" {
		t.Fatalf("X-Title = %q", title)
	}
}

func TestPreflightRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
	}))
	defer ts.Close()

	client := NewClient(Config{APIKey: "sk-wrong", BaseURL: ts.URL})
	if err := Preflight(context.Background(), client); err == nil {
		t.Fatal("Preflight() error = nil, want credential failure")
	}
}

func TestPreflightNilClient(t *testing.T) {
	t.Parallel()

	if err := Preflight(context.Background(), nil); err == nil {
		t.Fatal("Preflight(nil) error = nil")
	}
}
