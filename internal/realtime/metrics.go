package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// eventsTotal 按归一化种类统计入站事件。
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_agent",
		Subsystem: "realtime",
		Name:      "events_total",
		Help:      "Inbound realtime events by normalized kind",
	}, []string{"kind"})

	// eventsDropped 统计被丢弃的入站帧或异步完成。
	// reason: stale_epoch, malformed, not_open
	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_agent",
		Subsystem: "realtime",
		Name:      "dropped_total",
		Help:      "Inbound frames or tool completions dropped before processing",
	}, []string{"reason"})

	duplicateCompletions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voice_agent",
		Subsystem: "realtime",
		Name:      "duplicate_completions_total",
		Help:      "Completion signals ignored because the call already executed",
	})

	// toolCalls 按工具与结果统计执行。status: completed, error, missing_name, not_found
	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_agent",
		Subsystem: "realtime",
		Name:      "tool_calls_total",
		Help:      "Tool invocations by tool and outcome",
	}, []string{"tool", "status"})

	toolLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voice_agent",
		Subsystem: "realtime",
		Name:      "tool_latency_seconds",
		Help:      "Tool backend latency as observed by the session",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"tool"})

	// outputsTotal result: sent, channel_closed, send_failed
	outputsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_agent",
		Subsystem: "realtime",
		Name:      "outputs_total",
		Help:      "function_call_output delivery attempts by result",
	}, []string{"result"})

	// correlations 统计输出 call_id 的选择途径。via: canonical, alias, heuristic, fallback
	correlations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voice_agent",
		Subsystem: "realtime",
		Name:      "correlations_total",
		Help:      "Outbound call id selection by strategy",
	}, []string{"via"})

	sessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voice_agent",
		Subsystem: "realtime",
		Name:      "sessions_opened_total",
		Help:      "Realtime sessions that reached the open state",
	})

	sessionOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "voice_agent",
		Subsystem: "realtime",
		Name:      "session_open",
		Help:      "1 while a realtime session is open",
	})
)
