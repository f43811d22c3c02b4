package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"voice-agent/internal/agent/openai"
	"voice-agent/internal/industry"
	"voice-agent/internal/tools"
	"voice-agent/internal/toolsim"
)

const maxBodyBytes = 1 << 20

type toolRequest struct {
	Tool     string         `json:"tool"`
	Args     map[string]any `json:"args"`
	Scenario string         `json:"scenario"`
}

type configRequest struct {
	ID string `json:"id"`
}

func (s *Server) getScenario(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scenario": s.opts.Simulator.Scenario()})
}

func (s *Server) runTool(w http.ResponseWriter, r *http.Request) {
	var body toolRequest
	if err := decodeBody(r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", map[string]any{"detail": err.Error()})
		return
	}

	resp, err := s.opts.Simulator.Simulate(r.Context(), tools.Request{
		Tool:     body.Tool,
		Args:     body.Args,
		Scenario: body.Scenario,
	})
	if err != nil {
		if errors.Is(err, toolsim.ErrToolNotFound) {
			writeErr(w, http.StatusNotFound, "tool_not_found", map[string]any{
				"tool":         body.Tool,
				"activeConfig": s.opts.Store.Active().ID,
			})
			return
		}
		logRequest(r).Errorf("simulate %s failed: %v", body.Tool, err)
		writeErr(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listToolSpecs(w http.ResponseWriter, _ *http.Request) {
	active := s.opts.Store.Active()
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":  industry.ToolSpecs(active),
		"config": active.Summary(),
	})
}

func (s *Server) getConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":  s.opts.Store.Active(),
		"configs": s.opts.Store.List(),
	})
}

func (s *Server) setConfig(w http.ResponseWriter, r *http.Request) {
	var body configRequest
	if err := decodeBody(r, &body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", map[string]any{"detail": err.Error()})
		return
	}
	id := strings.TrimSpace(body.ID)
	if id == "" {
		writeErr(w, http.StatusBadRequest, "missing_id", nil)
		return
	}
	if err := s.opts.Store.SetActive(id); err != nil {
		if errors.Is(err, industry.ErrConfigNotFound) {
			writeErr(w, http.StatusNotFound, "config_not_found", map[string]any{"id": id})
			return
		}
		logRequest(r).Errorf("activate config %s failed: %v", id, err)
		writeErr(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	logRequest(r).Infof("active config -> %s", id)
	writeJSON(w, http.StatusOK, map[string]any{"active": s.opts.Store.Active()})
}

func (s *Server) mintToken(w http.ResponseWriter, r *http.Request) {
	if s.opts.Tokens == nil {
		writeErr(w, http.StatusServiceUnavailable, "realtime_token_unavailable", map[string]any{"detail": "api key not configured"})
		return
	}
	secret, err := s.opts.Tokens.MintClientSecret(r.Context(), openai.RealtimeSession{
		Model:        s.opts.RealtimeModel,
		Voice:        s.opts.Voice,
		Instructions: s.opts.Store.Active().Prompt,
	})
	if err != nil {
		logRequest(r).Errorf("mint realtime client secret failed: %v", err)
		writeErr(w, http.StatusBadGateway, "realtime_token_failed", map[string]any{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"client_secret": secret.Value,
		"expires_at":    secret.ExpiresAt,
	})
}

func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// writeErr 输出 {"error": code, ...extra}，与工具后端的错误约定一致。
func writeErr(w http.ResponseWriter, code int, errCode string, extra map[string]any) {
	body := map[string]any{"error": errCode}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, code, body)
}
