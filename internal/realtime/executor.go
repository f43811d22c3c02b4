package realtime

import (
	"voice-agent/internal/logger"
	"voice-agent/internal/tools"
)

const (
	errMissingToolName = "missing tool name"
	errToolNotFound    = "tool not found"
)

// beginInvocationLocked 是执行器入口：执行标记在派发前同步设置，
// 重复完成与 item done 桥接产生的第二次调用在这里被挡下。
func (m *Manager) beginInvocationLocked(inv Invocation) {
	t := m.tracker
	if t == nil {
		return
	}
	if !t.Claim(inv.ID) {
		duplicateCompletions.Inc()
		componentLog().Debugf("call already executed canonical=%s", inv.ID)
		return
	}

	if inv.ToolName == "" {
		m.rejectLocked(inv, errMissingToolName, "missing_name")
		return
	}
	if m.opts.Runtime == nil || !m.opts.Runtime.Lookup(inv.ToolName) {
		m.rejectLocked(inv, errToolNotFound, "not_found")
		return
	}

	call := tools.ToolCall{
		ID:        inv.ID,
		Name:      inv.ToolName,
		Arguments: inv.Arguments,
		Scenario:  m.opts.Scenario(),
	}
	epoch := t.Epoch()
	ctx := m.baseCtx
	componentLog().WithFields(logger.Fields{"epoch": epoch, "tool": inv.ToolName}).
		Infof("execute tool canonical=%s", inv.ID)

	go func() {
		result := m.opts.Runtime.Dispatch(ctx, call)
		if err := m.turns.Submit(ctx, turn{epoch: epoch, result: &result}); err != nil {
			componentLog().Warnf("tool result for canonical=%s dropped: %v", call.ID, err)
		}
	}()
}

func (m *Manager) rejectLocked(inv Invocation, reason, status string) {
	componentLog().Warnf("reject call canonical=%s tool=%q: %s", inv.ID, inv.ToolName, reason)
	toolCalls.WithLabelValues(toolLabel(inv.ToolName), status).Inc()
	rec := m.tracker.Fail(inv.ID, reason)
	_, _ = m.emitter.Emit(m.sender(), m.tracker, inv.ID, inv.ToolName, rec.Result)
}

// finishInvocationLocked 在事件循环内落地后端结果；纪元检查已在 apply 中完成。
func (m *Manager) finishInvocationLocked(res tools.ToolResult) {
	t := m.tracker
	toolCalls.WithLabelValues(toolLabel(res.Name), string(res.Status)).Inc()
	toolLatency.WithLabelValues(toolLabel(res.Name)).Observe(res.Duration.Seconds())

	var rec *CallRecord
	if res.Status == tools.StatusError {
		rec = t.Fail(res.ID, res.Error)
	} else {
		rec = t.Complete(res.ID, res.Output)
	}
	_, _ = m.emitter.Emit(m.sender(), t, res.ID, res.Name, rec.Result)
}

// sender 返回当前通道；通道已释放时返回 nil，Emit 会记录并丢弃输出。
func (m *Manager) sender() Sender {
	if m.ch == nil {
		return nil
	}
	return m.ch
}

func toolLabel(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}
