package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/observability"
)

func testConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load("askdb-server", func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	})
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

func TestServeAnswersUntilCancelled(t *testing.T) {
	srv, err := New(context.Background(), testConfig(t, map[string]string{}), observability.NopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	base := "http://" + listener.Addr().String()
	resp, err := http.Get(base + "/v1/health")
	if err != nil {
		t.Fatalf("GET /v1/health error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "askdb-server") {
		t.Fatalf("health = %d %s", resp.StatusCode, body)
	}

	resp, err = http.Get(base + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	_ = resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("UI Content-Type = %q", ct)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestNewRejectsAuthWithoutKeys(t *testing.T) {
	cfg := testConfig(t, map[string]string{"ASKDB_AUTH_REQUIRED": "true"})
	if _, err := New(context.Background(), cfg, observability.NopLogger()); err == nil {
		t.Fatal("expected error when auth is required without keys")
	}
}

func TestNewRejectsBadTranslatorConfig(t *testing.T) {
	cfg := testConfig(t, map[string]string{"ASKDB_AI_BASE_URL": "::not a url"})
	if _, err := New(context.Background(), cfg, observability.NopLogger()); err == nil {
		t.Fatal("expected error for invalid model server URL")
	}
}
