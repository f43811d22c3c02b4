package openai

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

func listenLocal(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return ln.Addr().(*net.TCPAddr).Port
}

func shortContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestCheckBaseURLReachable_ResponsesEndpointURL(t *testing.T) {
	port := listenLocal(t)
	// 用户把完整的 responses 端点填进 base_url 也能检查
	baseURL := fmt.Sprintf("http://127.0.0.1:%d/v1/responses", port)

	if err := CheckBaseURLReachable(shortContext(t), baseURL); err != nil {
		t.Fatalf("CheckBaseURLReachable(%q) error: %v", baseURL, err)
	}
}

func TestCheckBaseURLReachable_EmptyUsesDefault(t *testing.T) {
	if err := CheckBaseURLReachable(shortContext(t), "  "); err != nil {
		t.Fatalf("CheckBaseURLReachable(empty) = %v, want nil", err)
	}
}

func TestCheckBaseURLReachable_InvalidBaseURL(t *testing.T) {
	err := CheckBaseURLReachable(shortContext(t), "://bad")
	if err == nil || !strings.Contains(err.Error(), "base_url") {
		t.Fatalf("CheckBaseURLReachable() = %v, want base_url error", err)
	}
}

func TestCheckRealtimeURLReachable(t *testing.T) {
	port := listenLocal(t)
	realtimeURL := fmt.Sprintf("ws://127.0.0.1:%d/v1/realtime", port)

	if err := CheckRealtimeURLReachable(shortContext(t), realtimeURL); err != nil {
		t.Fatalf("CheckRealtimeURLReachable(%q) error: %v", realtimeURL, err)
	}
	if err := CheckRealtimeURLReachable(shortContext(t), ""); err == nil {
		t.Fatalf("CheckRealtimeURLReachable(empty) = nil, want error")
	}
	err := CheckRealtimeURLReachable(shortContext(t), "ftp://127.0.0.1/realtime")
	if err == nil || !strings.Contains(err.Error(), "unsupported realtime_url scheme") {
		t.Fatalf("CheckRealtimeURLReachable(ftp) = %v, want unsupported scheme", err)
	}
}

func TestCheckRealtimeURLReachable_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close()

	realtimeURL := fmt.Sprintf("ws://127.0.0.1:%d/v1/realtime", addr.Port)
	err = CheckRealtimeURLReachable(shortContext(t), realtimeURL)
	if err == nil {
		t.Skipf("port %d is reachable; skipping connection-refused assertion", addr.Port)
	}
	if !strings.Contains(err.Error(), "realtime_url") {
		t.Fatalf("error = %v, want it to name realtime_url", err)
	}
}

func TestNormalizeBaseURL_RealtimeAddresses(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "wss://api.openai.com/v1/realtime", want: "https://api.openai.com/v1"},
		{in: "ws://127.0.0.1:9000/realtime/", want: "http://127.0.0.1:9000/v1"},
		{in: "https://example.com/openai/v1/chat/completions", want: "https://example.com/openai/v1"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := normalizeBaseURL(tc.in); got != tc.want {
				t.Fatalf("normalizeBaseURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
