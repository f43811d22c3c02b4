package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBackendTimeout 是 HTTP 工具后端的默认超时。
const DefaultBackendTimeout = 60 * time.Second

// HTTPBackend 把工具请求 POST 到 /api/tool 风格的接口。
type HTTPBackend struct {
	url    string
	client *http.Client
}

func NewHTTPBackend(url string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = DefaultBackendTimeout
	}
	return &HTTPBackend{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
	}
}

func (b *HTTPBackend) Execute(ctx context.Context, req Request) (any, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode tool request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tool backend: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tool backend response: %w", err)
	}

	var decoded any
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &decoded); err != nil {
			decoded = nil
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tool backend http_%d: %s", resp.StatusCode, describeFailure(decoded, data))
	}
	if decoded == nil {
		return nil, fmt.Errorf("tool backend returned invalid json: %s", sanitizeForLog(data))
	}
	return decoded, nil
}

func describeFailure(decoded any, raw []byte) string {
	if obj, ok := decoded.(map[string]any); ok {
		msg, _ := obj["error"].(string)
		if detail, ok := obj["detail"].(string); ok && detail != "" {
			if msg == "" {
				return detail
			}
			return msg + ": " + detail
		}
		if msg != "" {
			return msg
		}
	}
	return sanitizeForLog(raw)
}
