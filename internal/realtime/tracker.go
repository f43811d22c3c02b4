package realtime

import (
	"strings"
	"time"

	"voice-agent/internal/events"
	"voice-agent/internal/logger"
)

// DefaultHistoryLimit 是保留的已完成调用记录数。
const DefaultHistoryLimit = 50

// Invocation 是参数重建完成、交给执行器的一次调用。ToolName 可能为空。
type Invocation struct {
	ID        string
	ToolName  string
	Arguments map[string]any
}

// Tracker 持有一个会话纪元内的全部调用状态：别名、参数缓冲、执行标记与调用记录。
// 每次会话打开都会新建，所有方法只在会话的事件循环内调用。
type Tracker struct {
	epoch    uint64
	resolver *Resolver
	buffers  *Accumulator
	records  map[string]*CallRecord
	executed map[string]struct{}
	// outbound 记录启发式关联得到的输出 call_id。
	outbound    map[string]string
	transcripts map[string]*strings.Builder
	history     history
	seq         uint64

	// pending 是内部派发队列，item done 桥接出的合成事件在同一轮内排空。
	pending []ServerEvent

	// Invoke 在一次调用重建完成时被同步调用。
	Invoke func(Invocation)
	// Notify 接收调用生命周期与转写事件，可为空。
	Notify func(events.Event)

	now func() time.Time
	log *logger.LogEntry
}

// NewTracker 创建 epoch 对应的新状态。
func NewTracker(epoch uint64, forms IDForms, historyLimit int) *Tracker {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Tracker{
		epoch:       epoch,
		resolver:    NewResolver(forms),
		buffers:     NewAccumulator(),
		records:     make(map[string]*CallRecord),
		executed:    make(map[string]struct{}),
		outbound:    make(map[string]string),
		transcripts: make(map[string]*strings.Builder),
		history:     history{limit: historyLimit},
		now:         time.Now,
		log:         componentLog().WithField("epoch", epoch),
	}
}

// Epoch 返回该状态所属的会话纪元。
func (t *Tracker) Epoch() uint64 {
	return t.epoch
}

// Resolver 返回标识解析器。
func (t *Tracker) Resolver() *Resolver {
	return t.resolver
}

// Record 按任意已知标识查找调用记录。
func (t *Tracker) Record(id string) (*CallRecord, bool) {
	rec, ok := t.records[t.resolver.Canonical(id)]
	return rec, ok
}

// Records 返回当前全部调用记录的快照，按打开顺序排列。
func (t *Tracker) Records() []events.CallSnapshot {
	ordered := t.orderedRecords()
	out := make([]events.CallSnapshot, 0, len(ordered))
	for _, rec := range ordered {
		out = append(out, rec.Snapshot())
	}
	return out
}

// History 返回最近完成的调用记录。
func (t *Tracker) History() []events.CallSnapshot {
	return t.history.list()
}

// Handle 处理一个入站事件，并排空由它产生的内部合成事件。
func (t *Tracker) Handle(ev ServerEvent) {
	t.pending = append(t.pending, ev)
	for len(t.pending) > 0 {
		next := t.pending[0]
		t.pending = t.pending[1:]
		t.dispatch(next)
	}
}

func (t *Tracker) enqueue(ev ServerEvent) {
	ev.Synthetic = true
	t.pending = append(t.pending, ev)
}

func (t *Tracker) dispatch(ev ServerEvent) {
	switch ev.Kind {
	case KindCallCreated:
		t.onCreated(ev.CallRef(), ev.CallID, ev.Name)
	case KindItemAdded:
		if !ev.IsFunctionCallItem() {
			return
		}
		id, callID := ev.ItemRef()
		t.onCreated(id, callID, ev.Item.Name)
	case KindArgumentsDelta:
		t.onFragment(ev, ev.CallRef())
	case KindItemDelta:
		id := ev.CallRef()
		if ev.Item != nil && ev.Item.ID != "" {
			id = ev.Item.ID
		}
		t.onFragment(ev, id)
	case KindArgumentsDone:
		t.onCompletion(ev)
	case KindItemDone:
		if ev.IsFunctionCallItem() {
			t.onItemDone(ev)
		}
	case KindTranscriptDelta:
		t.onTranscriptDelta(ev)
	case KindTranscriptDone:
		t.onTranscriptDone(ev)
	}
}

func (t *Tracker) onCreated(id, callID, name string) {
	if id == "" && callID == "" {
		t.log.WithField("type", "call.created").Debug("creation event without call id ignored")
		return
	}
	res := t.resolver.Open(id, callID)
	t.applyResolution(res, id)
	rec := t.ensureRecord(res.Canonical)
	rec.addAlias(id)
	rec.addAlias(callID)
	if name != "" && rec.ToolName == "" {
		rec.ToolName = name
	}
	t.log.Debugf("call opened canonical=%s id=%s call_id=%s name=%s", res.Canonical, id, callID, name)
}

func (t *Tracker) onFragment(ev ServerEvent, id string) {
	if id == "" {
		t.log.WithField("type", ev.Type).Debug("argument fragment without call id ignored")
		return
	}
	res := t.resolveRef(ev, id)
	if res.Degraded {
		t.log.Debugf("argument fragment for untracked id=%s, buffering best-effort", id)
	}
	rec := t.ensureRecord(res.Canonical)
	rec.addAlias(id)
	t.buffers.Append(res.Canonical, ev.Fragment())
	t.notify(events.EventCallArguments, rec)
}

// resolveRef 解析事件的调用标识。事件同时带有已登记的条目 id 与 call_id 时，
// 按条目 id 定位调用；否则才退回到 Resolve 的最近打开启发。
func (t *Tracker) resolveRef(ev ServerEvent, raw string) Resolution {
	callID := strings.TrimSpace(ev.CallID)
	itemID := strings.TrimSpace(ev.ItemID)
	if itemID == "" && ev.Item != nil {
		itemID = strings.TrimSpace(ev.Item.ID)
	}
	var res Resolution
	if callID != "" && itemID != "" && itemID != callID && t.resolver.Known(itemID) {
		res = t.resolver.Promote(itemID, callID)
	} else {
		res = t.resolver.Resolve(raw)
	}
	t.applyResolution(res, raw)
	return res
}

func (t *Tracker) onCompletion(ev ServerEvent) {
	id := ev.CallRef()
	if id == "" {
		t.log.WithField("type", ev.Type).Debug("completion without call id ignored")
		return
	}
	canonical := t.resolveRef(ev, id).Canonical

	if _, done := t.executed[canonical]; done {
		t.buffers.Take(canonical)
		t.log.Debugf("duplicate completion ignored canonical=%s synthetic=%t", canonical, ev.Synthetic)
		duplicateCompletions.Inc()
		return
	}

	raw, _ := t.buffers.Take(canonical)
	if strings.TrimSpace(raw) == "" {
		raw = ev.ArgumentsText()
	}
	args, nameHint := ParseArguments(raw)

	rec := t.ensureRecord(canonical)
	rec.addAlias(id)
	if rec.ToolName == "" {
		rec.ToolName = nameHint
	}
	if rec.ToolName == "" {
		rec.ToolName = ev.Name
	}
	rec.Arguments = args

	if t.Invoke != nil {
		t.Invoke(Invocation{ID: canonical, ToolName: rec.ToolName, Arguments: args})
	}
}

// onItemDone 把通用的 item done 桥接为参数完成：仍有未完成缓冲，
// 或条目自带完整参数且尚未执行时，排入一个合成的完成事件。
// 未登记过的条目只有自带参数时才作为独立调用接收，不会并入最近打开的调用。
func (t *Tracker) onItemDone(ev ServerEvent) {
	id, callID := ev.ItemRef()
	inline := ev.ArgumentsText()
	var res Resolution
	switch {
	case id != "" && t.resolver.Known(id):
		res = t.resolver.Promote(id, callID)
	case callID != "" && t.resolver.Known(callID):
		res = Resolution{Canonical: t.resolver.Canonical(callID)}
	case inline == "":
		t.log.Debugf("item done for untracked id=%s without arguments ignored", id)
		return
	default:
		res = t.resolver.Adopt(id, callID)
	}
	t.applyResolution(res, id)
	canonical := res.Canonical
	if canonical == "" {
		return
	}
	rec := t.ensureRecord(canonical)
	rec.addAlias(id)
	rec.addAlias(callID)
	if rec.ToolName == "" && ev.Item.Name != "" {
		rec.ToolName = ev.Item.Name
	}

	_, executed := t.executed[canonical]
	if !t.buffers.Pending(canonical) && (executed || inline == "") {
		return
	}
	t.enqueue(ServerEvent{
		Type:      "response.function_call.arguments.done",
		Kind:      KindArgumentsDone,
		CallID:    canonical,
		Name:      ev.Item.Name,
		Arguments: ev.Item.Arguments,
	})
}

// Claim 设置执行标记；已设置时返回 false。
func (t *Tracker) Claim(id string) bool {
	canonical := t.resolver.Canonical(id)
	if _, ok := t.executed[canonical]; ok {
		return false
	}
	t.executed[canonical] = struct{}{}
	rec := t.ensureRecord(canonical)
	rec.ExecutedOnce = true
	return true
}

// Complete 记录成功结果。已结束的记录不会被改写。
func (t *Tracker) Complete(id string, result any) *CallRecord {
	return t.finish(id, CallCompleted, result, "")
}

// Fail 记录失败；错误描述同时作为结果。
func (t *Tracker) Fail(id string, msg string) *CallRecord {
	return t.finish(id, CallError, map[string]any{"error": msg}, msg)
}

func (t *Tracker) finish(id string, status CallStatus, result any, errMsg string) *CallRecord {
	rec := t.ensureRecord(t.resolver.Canonical(id))
	if rec.finished() {
		return rec
	}
	rec.Status = status
	rec.Result = result
	rec.Error = errMsg
	rec.FinishedAt = t.now()
	t.history.push(rec.Snapshot())
	if status == CallError {
		t.notify(events.EventCallFailed, rec)
	} else {
		t.notify(events.EventCallCompleted, rec)
	}
	return rec
}

// MarkSent 记录输出已发出，并清空指向该调用的最近打开指针。
func (t *Tracker) MarkSent(id, outboundID string) {
	canonical := t.resolver.Canonical(id)
	rec := t.ensureRecord(canonical)
	rec.OutboundID = outboundID
	rec.OutputSent = true
	t.resolver.ClearLastOpened(canonical)
	t.notify(events.EventOutputSent, rec)
}

func (t *Tracker) applyResolution(res Resolution, raw string) {
	if res.PromotedFrom == "" || res.PromotedFrom == res.Canonical {
		return
	}
	t.rekey(res.PromotedFrom, res.Canonical)
	t.log.Debugf("call promoted from=%s to=%s via=%s", res.PromotedFrom, res.Canonical, raw)
}

// rekey 把 from 名下的记录、缓冲与执行标记迁到 to。
func (t *Tracker) rekey(from, to string) {
	t.buffers.Move(from, to)
	if _, ok := t.executed[from]; ok {
		delete(t.executed, from)
		t.executed[to] = struct{}{}
	}
	if alt, ok := t.outbound[from]; ok {
		delete(t.outbound, from)
		if _, exists := t.outbound[to]; !exists {
			t.outbound[to] = alt
		}
	}
	src, ok := t.records[from]
	if !ok {
		return
	}
	delete(t.records, from)
	if dst, ok := t.records[to]; ok {
		if dst.ToolName == "" {
			dst.ToolName = src.ToolName
		}
		dst.ExecutedOnce = dst.ExecutedOnce || src.ExecutedOnce
		if src.seq < dst.seq {
			dst.seq = src.seq
			dst.StartedAt = src.StartedAt
		}
		dst.addAlias(from)
		for _, a := range src.Aliases {
			dst.addAlias(a)
		}
		return
	}
	// 先切换规范 id，addAlias 才不会把旧 id 当作规范 id 跳过
	src.CanonicalID = to
	src.addAlias(from)
	t.records[to] = src
}

func (t *Tracker) ensureRecord(canonical string) *CallRecord {
	if rec, ok := t.records[canonical]; ok {
		return rec
	}
	t.seq++
	rec := &CallRecord{
		CanonicalID: canonical,
		Status:      CallPending,
		StartedAt:   t.now(),
		Epoch:       t.epoch,
		seq:         t.seq,
	}
	t.records[canonical] = rec
	t.notify(events.EventCallCreated, rec)
	return rec
}

func (t *Tracker) orderedRecords() []*CallRecord {
	out := make([]*CallRecord, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}
	sortRecords(out)
	return out
}

func (t *Tracker) notify(typ events.EventType, rec *CallRecord) {
	t.publish(typ, rec.Snapshot())
}

func (t *Tracker) publish(typ events.EventType, payload any) {
	if t.Notify == nil {
		return
	}
	t.Notify(events.Event{Type: typ, Epoch: t.epoch, Timestamp: t.now(), Payload: payload})
}
