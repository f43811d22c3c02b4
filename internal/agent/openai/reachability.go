package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

var defaultPorts = map[string]string{"http": "80", "https": "443", "ws": "80", "wss": "443"}

// CheckBaseURLReachable 在发 responses 请求之前确认 base_url 的主机端口可以建立 TCP 连接，
// 便于把“连不上”与“key/模型错误”区分开。base_url 为空时视为使用官方地址，直接通过。
func CheckBaseURLReachable(ctx context.Context, baseURL string) error {
	if strings.TrimSpace(baseURL) == "" {
		return nil
	}
	return dialEndpoint(ctx, "base_url", baseURL, normalizeBaseURL(baseURL))
}

// CheckRealtimeURLReachable 对 realtime_url（ws/wss）做同样的 TCP 检查，不做 websocket 握手。
func CheckRealtimeURLReachable(ctx context.Context, realtimeURL string) error {
	raw := strings.TrimSpace(realtimeURL)
	if raw == "" {
		return errors.New("realtime_url is empty")
	}
	return dialEndpoint(ctx, "realtime_url", realtimeURL, raw)
}

func dialEndpoint(ctx context.Context, label, original, target string) error {
	parsed, err := url.Parse(target)
	if err != nil || parsed == nil {
		return fmt.Errorf("invalid %s %q: %w", label, original, err)
	}
	scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme))
	host := strings.TrimSpace(parsed.Hostname())
	if scheme == "" || host == "" {
		return fmt.Errorf("invalid %s %q: scheme=%q host=%q", label, original, parsed.Scheme, parsed.Host)
	}

	port := strings.TrimSpace(parsed.Port())
	if port == "" {
		def, ok := defaultPorts[scheme]
		if !ok {
			return fmt.Errorf("unsupported %s scheme %q (%s=%q)", label, parsed.Scheme, label, original)
		}
		port = def
	}
	if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("invalid %s port %q (%s=%q): %w", label, port, label, original, err)
	}

	addr := net.JoinHostPort(host, port)
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("cannot connect to %s (%s=%q): %w", addr, label, original, err)
	}
	_ = conn.Close()
	return nil
}
