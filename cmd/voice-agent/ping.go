package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"voice-agent/internal/agent/openai"
	"voice-agent/internal/config"
	"voice-agent/internal/industry"
	"voice-agent/internal/tools"

	"github.com/spf13/cobra"
)

type pingArgs struct {
	model          string
	baseURL        string
	apiKey         string
	timeoutSeconds int
	toolBackend    bool
	realtime       bool
}

func newPingCmd(root *rootArgs) *cobra.Command {
	args := &pingArgs{}
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check the model endpoint and, optionally, realtime_url and the HTTP tool backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			return runPing(cmd.Context(), cfg, args, cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&args.model, "model", "", "Model name (default mock_model from config)")
	flags.StringVar(&args.baseURL, "base-url", "", "Override base URL (e.g. http://127.0.0.1:1234; trailing /v1 is ok)")
	flags.StringVar(&args.apiKey, "api-key", "", "Override API key (prefer config.toml)")
	flags.IntVar(&args.timeoutSeconds, "timeout", 30, "Timeout seconds")
	flags.BoolVar(&args.toolBackend, "tool-backend", false, "Also call the noop tool on tool_backend_url")
	flags.BoolVar(&args.realtime, "realtime", false, "Also check that realtime_url accepts connections")
	return cmd
}

func runPing(parent context.Context, cfg config.Config, args *pingArgs, out io.Writer) error {
	model := firstNonEmpty(args.model, cfg.MockModel)
	baseURL := firstNonEmpty(args.baseURL, cfg.BaseURL)
	apiKey := firstNonEmpty(args.apiKey, cfg.APIKey)
	if apiKey == "" {
		return fmt.Errorf("missing api key: set OPENAI_API_KEY or configure api_key in %s", cfg.Source)
	}

	timeout := time.Duration(args.timeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if err := openai.CheckBaseURLReachable(ctx, baseURL); err != nil {
		return err
	}
	got, err := openai.CheckResponsesEndpoint(ctx, baseURL, apiKey, model)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "ok: %s\n", got)

	if args.realtime {
		if err := openai.CheckRealtimeURLReachable(ctx, cfg.RealtimeURL); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "realtime reachable: %s\n", cfg.RealtimeURL)
	}
	if !args.toolBackend {
		return nil
	}
	backend := tools.NewHTTPBackend(cfg.ToolBackendURL, timeout)
	raw, err := backend.Execute(ctx, tools.Request{Tool: industry.NoopToolName, Args: map[string]any{}})
	if err != nil {
		return fmt.Errorf("tool backend %s: %w", cfg.ToolBackendURL, err)
	}
	_, _ = fmt.Fprintf(out, "tool backend ok: %s\n", compactJSON(tools.UnwrapResult(raw)))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
