package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"voice-agent/internal/config"
	"voice-agent/internal/industry"
	"voice-agent/internal/server"
	"voice-agent/internal/toolsim"
)

func newResponsesServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			http.NotFound(w, r)
			return
		}
		if got := strings.TrimSpace(r.Header.Get("Authorization")); got != "Bearer test-key" {
			http.Error(w, "missing auth", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"output_text": "ping"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunPing_ModelEndpoint(t *testing.T) {
	srv := newResponsesServer(t)

	cfg := config.Default()
	cfg.BaseURL = srv.URL
	cfg.APIKey = "test-key"

	var out bytes.Buffer
	if err := runPing(context.Background(), cfg, &pingArgs{}, &out); err != nil {
		t.Fatalf("runPing error: %v", err)
	}
	if !strings.Contains(out.String(), "ok: ping") {
		t.Fatalf("ping output = %q, want it to include %q", out.String(), "ok: ping")
	}
}

func TestRunPing_FlagOverridesConfig(t *testing.T) {
	srv := newResponsesServer(t)

	cfg := config.Default()
	cfg.BaseURL = "http://127.0.0.1:1"
	cfg.APIKey = "wrong-key"

	var out bytes.Buffer
	args := &pingArgs{baseURL: srv.URL + "/v1", apiKey: "test-key"}
	if err := runPing(context.Background(), cfg, args, &out); err != nil {
		t.Fatalf("runPing error: %v", err)
	}
}

func TestRunPing_RealtimeURL(t *testing.T) {
	srv := newResponsesServer(t)

	cfg := config.Default()
	cfg.BaseURL = srv.URL
	cfg.APIKey = "test-key"
	cfg.RealtimeURL = "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/realtime"

	var out bytes.Buffer
	if err := runPing(context.Background(), cfg, &pingArgs{realtime: true}, &out); err != nil {
		t.Fatalf("runPing error: %v", err)
	}
	if !strings.Contains(out.String(), "realtime reachable: "+cfg.RealtimeURL) {
		t.Fatalf("ping output = %q, want realtime line", out.String())
	}
}

func TestRunPing_MissingKey(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = ""
	err := runPing(context.Background(), cfg, &pingArgs{}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "missing api key") {
		t.Fatalf("runPing error = %v, want missing api key", err)
	}
}

func TestRunPing_ToolBackend(t *testing.T) {
	models := newResponsesServer(t)

	store, err := industry.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	api := httptest.NewServer(server.New(server.Options{
		Store:     store,
		Simulator: toolsim.New(toolsim.Options{Store: store}),
	}).Handler())
	t.Cleanup(api.Close)

	cfg := config.Default()
	cfg.BaseURL = models.URL
	cfg.APIKey = "test-key"
	cfg.ToolBackendURL = api.URL + "/api/tool"

	var out bytes.Buffer
	if err := runPing(context.Background(), cfg, &pingArgs{toolBackend: true}, &out); err != nil {
		t.Fatalf("runPing error: %v", err)
	}
	if !strings.Contains(out.String(), `tool backend ok: {"ok":true}`) {
		t.Fatalf("ping output = %q, want tool backend ok line", out.String())
	}
}
