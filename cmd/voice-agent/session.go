package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"voice-agent/internal/config"
	"voice-agent/internal/events"
	"voice-agent/internal/history"
	"voice-agent/internal/industry"
	"voice-agent/internal/realtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type sessionArgs struct {
	backend  string
	scenario string
}

func newSessionCmd(root *rootArgs) *cobra.Command {
	args := &sessionArgs{}
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Open a realtime session and execute tool calls for the active industry config",
		Long: `Open a realtime session and execute tool calls for the active industry config.

Lines typed on stdin are sent as user messages. Commands:
  /calls   list tool calls of the current session
  /reset   close the session and open a new one
  /stop    close the session
  /start   open a session after /stop
  /update  resend session.update
  /quit    exit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			return runSession(cmd.Context(), cfg, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&args.backend, "backend", backendLocal, "Tool backend: local (in-process simulator) or http (tool_backend_url)")
	cmd.Flags().StringVar(&args.scenario, "scenario", "", "Scenario id of the active config (default: the config's default scenario)")
	return cmd
}

func runSession(parent context.Context, cfg config.Config, args *sessionArgs, in io.Reader, out io.Writer) error {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("missing api key: set OPENAI_API_KEY or api_key in %s", cfg.Source)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	client, err := newOpenAIClient(cfg)
	if err != nil {
		return err
	}
	scenario, err := scenarioText(store.Active(), args.scenario)
	if err != nil {
		return err
	}
	runtime, err := newToolRuntime(cfg, store, args.backend, newSimulator(cfg, store, client))
	if err != nil {
		return err
	}
	policy, err := realtime.ParseCorrelationPolicy(cfg.Correlation)
	if err != nil {
		return err
	}

	observer := events.NewEventQueue(64)
	defer observer.Close()
	sub := observer.Subscribe()

	mgr := realtime.NewManager(realtime.Options{
		Dialer: realtime.WebSocketDialer{
			URL:    cfg.RealtimeURL,
			Model:  cfg.RealtimeModel,
			APIKey: cfg.APIKey,
		},
		Runtime:      runtime,
		Instructions: func() string { return store.Active().Prompt },
		Scenario:     func() string { return scenario },
		Voice:        cfg.Voice,
		Temperature:  cfg.Temperature,
		Forms:        realtime.IDForms{Durable: cfg.DurablePrefix, Transient: cfg.TransientPrefix},
		Correlation:  policy,
		HistoryLimit: cfg.HistoryLimit,
		Observer:     observer,
	})

	ctx, stopSignals := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mgr.Run(gctx) })
	record := newCallRecorder(store)
	g.Go(func() error {
		printEvents(gctx, out, sub, record)
		return nil
	})

	if err := mgr.Start(gctx); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}
	fmt.Fprintf(out, "session open (config %s, epoch %d). Type a message or /quit.\n", store.Active().ID, mgr.Epoch())

	lines := scanLines(gctx, in)
	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				quit, err := handleLine(gctx, mgr, line, out)
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
				}
				if quit {
					return nil
				}
			}
		}
	})
	return ignoreCanceled(g.Wait())
}

// scanLines 在独立 goroutine 中读取输入；读取本身无法取消，ctx 结束后不再投递。
func scanLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func scenarioText(cfg industry.Config, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return cfg.DefaultScenarioText(), nil
	}
	sc, ok := cfg.Scenario(id)
	if !ok {
		return "", fmt.Errorf("unknown scenario %q in config %s", id, cfg.ID)
	}
	return sc.Text, nil
}

type sessionControl interface {
	Start(ctx context.Context) error
	Stop() error
	Reset(ctx context.Context) error
	UpdateSession() error
	SendUserText(text string) error
	Calls() []events.CallSnapshot
	State() realtime.State
}

// handleLine 执行一行输入，返回 quit=true 表示退出。
func handleLine(ctx context.Context, mgr sessionControl, line string, out io.Writer) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, mgr.SendUserText(line)
	}
	switch strings.ToLower(line) {
	case "/quit", "/exit":
		return true, nil
	case "/stop":
		return false, mgr.Stop()
	case "/start":
		return false, mgr.Start(ctx)
	case "/reset":
		return false, mgr.Reset(ctx)
	case "/update":
		return false, mgr.UpdateSession()
	case "/calls":
		calls := mgr.Calls()
		if len(calls) == 0 {
			fmt.Fprintf(out, "no tool calls (session %s)\n", mgr.State())
			return false, nil
		}
		for _, call := range calls {
			fmt.Fprintln(out, formatCall(call))
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown command %s", line)
}

// newCallRecorder 返回把终态调用写入 ~/.voice-agent/calls.jsonl 的回调；无法定位 HOME 时返回 nil。
func newCallRecorder(store *industry.Store) func(events.Event) {
	calls, err := history.NewDefault()
	if err != nil {
		log.Warnf("call history disabled: %v", err)
		return nil
	}
	rec := history.Recorder{Store: calls, Config: func() string { return store.Active().ID }}
	return func(ev events.Event) {
		if err := rec.Record(ev); err != nil {
			log.Warnf("record call history failed: %v", err)
		}
	}
}

func printEvents(ctx context.Context, out io.Writer, sub <-chan events.Event, record func(events.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if record != nil {
				record(ev)
			}
			if text := formatEvent(ev); text != "" {
				fmt.Fprintln(out, text)
			}
		}
	}
}

// formatEvent 渲染一行事件日志；转写增量不逐条输出。
func formatEvent(ev events.Event) string {
	switch payload := ev.Payload.(type) {
	case events.CallSnapshot:
		return fmt.Sprintf("[%s] %s", ev.Type, formatCall(payload))
	case events.Transcript:
		if !payload.Final {
			return ""
		}
		return fmt.Sprintf("assistant: %s", payload.Text)
	case events.ServerError:
		if payload.Code != "" {
			return fmt.Sprintf("[%s] %s: %s", ev.Type, payload.Code, payload.Message)
		}
		return fmt.Sprintf("[%s] %s", ev.Type, payload.Message)
	}
	if reason := ev.Metadata["reason"]; reason != "" {
		return fmt.Sprintf("[%s] epoch=%d reason=%s", ev.Type, ev.Epoch, reason)
	}
	return fmt.Sprintf("[%s] epoch=%d", ev.Type, ev.Epoch)
}

func formatCall(call events.CallSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s status=%s", call.CanonicalID, call.ToolName, call.Status)
	if call.OutboundID != "" && call.OutboundID != call.CanonicalID {
		fmt.Fprintf(&b, " output_id=%s", call.OutboundID)
	}
	if len(call.Arguments) > 0 {
		fmt.Fprintf(&b, " args=%s", compactJSON(call.Arguments))
	}
	if call.Error != "" {
		fmt.Fprintf(&b, " error=%q", call.Error)
	} else if call.Result != nil {
		fmt.Fprintf(&b, " result=%s", compactJSON(call.Result))
	}
	return b.String()
}

func compactJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
