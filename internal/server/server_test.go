package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"voice-agent/internal/agent/openai"
	"voice-agent/internal/industry"
	"voice-agent/internal/toolsim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMinter struct {
	got    openai.RealtimeSession
	secret openai.ClientSecret
	err    error
}

func (f *fakeMinter) MintClientSecret(_ context.Context, session openai.RealtimeSession) (openai.ClientSecret, error) {
	f.got = session
	return f.secret, f.err
}

func newTestServer(t *testing.T, minter TokenMinter) (*httptest.Server, *industry.Store) {
	t.Helper()
	store, err := industry.NewStore(t.TempDir())
	require.NoError(t, err)
	sim := toolsim.New(toolsim.Options{Store: store, Cache: toolsim.NewCache(t.TempDir())})
	srv := New(Options{
		Store:         store,
		Simulator:     sim,
		Tokens:        minter,
		RealtimeModel: "gpt-realtime",
		Voice:         "alloy",
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHealthz_SetsRequestID(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestRequestID_EchoesClientValue(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))
}

func TestTool_SampleResultAndScenarioMemory(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	_, before := doJSON(t, http.MethodGet, ts.URL+"/api/tool", nil)
	assert.Contains(t, before["scenario"], "Monday")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/tool", map[string]any{
		"tool":     "getQuantity",
		"args":     map[string]any{"qty": 5},
		"scenario": "Pharmacy is out of insulin.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "getQuantity", body["tool"])
	assert.NotNil(t, body["result"])
	assert.Equal(t, false, body["cached"])
	assert.Equal(t, industry.DefaultConfigID, body["config"])

	_, after := doJSON(t, http.MethodGet, ts.URL+"/api/tool", nil)
	assert.Equal(t, "Pharmacy is out of insulin.", after["scenario"])
}

func TestTool_Noop(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/tool", map[string]any{"tool": "noop", "args": map[string]any{}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"ok": true}, body["result"])
	assert.Equal(t, true, body["diagnostic"])
}

func TestTool_NotFound(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/tool", map[string]any{"tool": "launchRocket"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "tool_not_found", body["error"])
	assert.Equal(t, "launchRocket", body["tool"])
	assert.Equal(t, industry.DefaultConfigID, body["activeConfig"])
}

func TestTool_InvalidJSON(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/api/tool", "application/json", bytes.NewReader([]byte(`{"tool":`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToolSpecs_ExcludesNoop(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/tool-specs")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Tools  []industry.ToolSpec `json:"tools"`
		Config industry.Summary    `json:"config"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Tools)
	for _, spec := range body.Tools {
		assert.NotEqual(t, industry.NoopToolName, spec.Name)
	}
	assert.Equal(t, industry.DefaultConfigID, body.Config.ID)
}

func TestConfig_ListAndActivate(t *testing.T) {
	ts, store := newTestServer(t, nil)
	require.NoError(t, store.Add(industry.Config{
		ID:     "bikes",
		Name:   "Bike Shop",
		Prompt: "You answer calls for a bike shop.",
		Tools: []industry.ToolDefinition{{
			Name:        "checkRepair",
			Description: "Check repair status.",
			ArgSchema:   map[string]any{"type": "object"},
		}},
	}, false))

	_, listed := doJSON(t, http.MethodGet, ts.URL+"/api/config", nil)
	configs, ok := listed["configs"].([]any)
	require.True(t, ok)
	assert.Len(t, configs, 2)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/config", map[string]any{"id": "bikes"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	active, ok := body["active"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bikes", active["id"])
	assert.Equal(t, "bikes", store.Active().ID)
}

func TestConfig_ActivateErrors(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/config", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_id", body["error"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/config", map[string]any{"id": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "config_not_found", body["error"])
}

func TestRealtimeToken(t *testing.T) {
	minter := &fakeMinter{secret: openai.ClientSecret{Value: "ek_test", ExpiresAt: 1700000000}}
	ts, store := newTestServer(t, minter)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/realtime-token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ek_test", body["client_secret"])
	assert.EqualValues(t, 1700000000, body["expires_at"])
	assert.Equal(t, "gpt-realtime", minter.got.Model)
	assert.Equal(t, "alloy", minter.got.Voice)
	assert.Equal(t, store.Active().Prompt, minter.got.Instructions)
}

func TestRealtimeToken_Errors(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/realtime-token", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "realtime_token_unavailable", body["error"])

	ts, _ = newTestServer(t, &fakeMinter{err: errors.New("http_401: unauthorized")})
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/realtime-token", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["detail"], "http_401")
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	store, err := industry.NewStore("")
	require.NoError(t, err)
	srv := New(Options{Store: store, Simulator: toolsim.New(toolsim.Options{Store: store})})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, "127.0.0.1:0") }()
	cancel()
	require.NoError(t, <-done)
}
