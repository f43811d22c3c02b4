package realtime

import (
	"sort"
	"time"

	"voice-agent/internal/events"
)

// CallStatus 只能单向推进：pending → completed | error。
type CallStatus string

const (
	CallPending   CallStatus = "pending"
	CallCompleted CallStatus = "completed"
	CallError     CallStatus = "error"
)

// CallRecord 是一次工具调用在会话内的全部状态。
type CallRecord struct {
	CanonicalID  string
	Aliases      []string
	ToolName     string
	Arguments    map[string]any
	Status       CallStatus
	Result       any
	Error        string
	ExecutedOnce bool
	OutboundID   string
	OutputSent   bool
	StartedAt    time.Time
	FinishedAt   time.Time
	Epoch        uint64

	seq uint64
}

// Snapshot 返回用于事件广播的只读副本。
func (r *CallRecord) Snapshot() events.CallSnapshot {
	aliases := append([]string(nil), r.Aliases...)
	sort.Strings(aliases)
	return events.CallSnapshot{
		CanonicalID: r.CanonicalID,
		Aliases:     aliases,
		OutboundID:  r.OutboundID,
		ToolName:    r.ToolName,
		Arguments:   r.Arguments,
		Status:      string(r.Status),
		Result:      r.Result,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
}

func (r *CallRecord) finished() bool {
	return r.Status == CallCompleted || r.Status == CallError
}

func (r *CallRecord) addAlias(id string) {
	if id == "" || id == r.CanonicalID {
		return
	}
	for _, a := range r.Aliases {
		if a == id {
			return
		}
	}
	r.Aliases = append(r.Aliases, id)
}

// history 保留最近完成的调用记录。
type history struct {
	limit int
	items []events.CallSnapshot
}

func (h *history) push(s events.CallSnapshot) {
	if h.limit <= 0 {
		return
	}
	h.items = append(h.items, s)
	if over := len(h.items) - h.limit; over > 0 {
		h.items = append([]events.CallSnapshot(nil), h.items[over:]...)
	}
}

func (h *history) list() []events.CallSnapshot {
	return append([]events.CallSnapshot(nil), h.items...)
}

func sortRecords(recs []*CallRecord) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
}
