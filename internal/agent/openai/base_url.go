package openai

import (
	"net/url"
	"strings"
)

// endpointSuffixes 是用户常误填进 base_url 的具体端点路径。
var endpointSuffixes = []string{"/chat/completions", "/completions", "/responses", "/realtime"}

// normalizeBaseURL 把用户填写的地址整理成 openai-go 期望的 .../v1 形式。
// 末尾的 /responses、/realtime 等端点会被去掉；ws/wss 的 realtime 地址换成对应的 http/https，
// 这样 realtime_url 也能直接拿来做 responses 请求或连通性检查。
func normalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	switch strings.ToLower(parsed.Scheme) {
	case "ws":
		parsed.Scheme = "http"
	case "wss":
		parsed.Scheme = "https"
	}

	path := strings.TrimRight(parsed.Path, "/")
	for _, suffix := range endpointSuffixes {
		if strings.HasSuffix(path, suffix) {
			path = strings.TrimRight(strings.TrimSuffix(path, suffix), "/")
			break
		}
	}
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	for strings.Contains(path, "/v1/v1") {
		path = strings.ReplaceAll(path, "/v1/v1", "/v1")
	}

	parsed.Path = path
	return parsed.String()
}
