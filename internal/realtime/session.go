package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"voice-agent/internal/events"
	"voice-agent/internal/logger"
	"voice-agent/internal/tools"

	"github.com/google/uuid"
)

var (
	// ErrSessionActive 表示会话已在启动或打开状态。
	ErrSessionActive = errors.New("realtime session already active")
	// ErrSessionStopped 表示启动过程中会话被停止。
	ErrSessionStopped = errors.New("realtime session stopped while starting")
)

// State 是会话生命周期状态。
type State int

const (
	StateIdle State = iota
	StateStarting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options 配置一个会话管理器。
type Options struct {
	Dialer  Dialer
	Runtime *tools.Runtime
	// Instructions 与 Scenario 在每次握手/执行时读取，便于运行中切换行业配置。
	Instructions func() string
	Scenario     func() string
	Voice        string
	Temperature  float64

	Forms        IDForms
	Correlation  CorrelationPolicy
	HistoryLimit int
	QueueSize    int

	// Observer 接收调用生命周期事件，可为空。
	Observer *events.EventQueue
}

// Manager 管理 realtime 会话的生命周期，并在单个事件循环中串行处理入站帧与工具完成。
type Manager struct {
	opts    Options
	emitter *Emitter
	turns   *events.Queue[turn]

	mu      sync.Mutex
	state   State
	epoch   uint64
	token   string
	ch      Channel
	tracker *Tracker
	baseCtx context.Context

	// startGen 每次 Start 递增；拨号返回时代数不符说明期间发生过 Stop 与新的 Start。
	startGen uint64
}

// turn 是事件循环中的一个工作单元：入站帧、通道关闭或工具完成之一。
type turn struct {
	epoch  uint64
	frame  []byte
	closed bool
	result *tools.ToolResult
}

func (t turn) LogFields() logger.Fields {
	fields := logger.Fields{"epoch": t.epoch}
	switch {
	case t.result != nil:
		fields["turn"] = "completion"
		fields["call_id"] = t.result.ID
	case t.closed:
		fields["turn"] = "closed"
	default:
		fields["turn"] = "frame"
		fields["bytes"] = len(t.frame)
	}
	return fields
}

func NewManager(opts Options) *Manager {
	if opts.Forms == (IDForms{}) {
		opts.Forms = DefaultIDForms
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Instructions == nil {
		opts.Instructions = func() string { return "" }
	}
	if opts.Scenario == nil {
		opts.Scenario = func() string { return "" }
	}
	turns := events.NewQueue[turn](opts.QueueSize)
	turns.SetLogger(componentLog())
	return &Manager{
		opts:    opts,
		emitter: NewEmitter(opts.Correlation),
		turns:   turns,
		baseCtx: context.Background(),
	}
}

// Run 运行事件循环，直到 ctx 结束。退出时关闭当前会话。
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()
	defer func() {
		_ = m.Stop()
		m.turns.Close()
	}()

	for {
		t, err := m.turns.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, events.ErrQueueClosed) {
				return nil
			}
			return err
		}
		m.apply(t)
	}
}

// Start 打开新的会话：拨号成功后纪元递增、生成新令牌与新的调用状态，并发送握手。
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrSessionActive
	}
	m.state = StateStarting
	m.startGen++
	gen := m.startGen
	m.mu.Unlock()

	ch, err := m.opts.Dialer.Dial(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.startGen == gen && m.state == StateStarting
	if err != nil {
		if current {
			m.state = StateIdle
		}
		return fmt.Errorf("open realtime channel: %w", err)
	}
	if !current {
		_ = ch.Close()
		return ErrSessionStopped
	}

	m.epoch++
	m.token = uuid.NewString()
	m.ch = ch
	m.tracker = m.newTracker(m.epoch)
	m.state = StateOpen
	sessionsOpened.Inc()
	sessionOpen.Set(1)

	if err := m.sendHandshakeLocked(); err != nil {
		componentLog().Warnf("send session.update failed: %v", err)
	}
	go m.pump(ch, m.epoch)

	componentLog().WithFields(logger.Fields{"epoch": m.epoch, "session": m.token}).Info("realtime session opened")
	m.publishLocked(events.Event{Type: events.EventSessionOpened})
	return nil
}

// Stop 关闭当前会话并丢弃其调用状态。空闲时无操作。
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateIdle {
		return nil
	}
	m.closeLocked("stopped")
	return nil
}

// Reset 先停止再启动新会话。
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.Stop(); err != nil {
		return err
	}
	return m.Start(ctx)
}

// UpdateSession 重新发送握手，用于工具、语音或指令变化后同步。
func (m *Manager) UpdateSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateOpen || m.ch == nil {
		return ErrChannelClosed
	}
	return m.sendHandshakeLocked()
}

// SendUserText 发送一条用户文本消息并请求回复。
func (m *Manager) SendUserText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateOpen || m.ch == nil {
		return ErrChannelClosed
	}
	if err := m.ch.Send(newUserMessage(text)); err != nil {
		return err
	}
	return m.ch.Send(newResponseCreate(""))
}

// State 返回当前生命周期状态。
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Epoch 返回当前会话纪元；从未打开过时为 0。
func (m *Manager) Epoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

// Token 返回当前会话令牌。
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Calls 返回当前会话的调用记录快照。
func (m *Manager) Calls() []events.CallSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tracker == nil {
		return nil
	}
	return m.tracker.Records()
}

// History 返回当前会话最近完成的调用。
func (m *Manager) History() []events.CallSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tracker == nil {
		return nil
	}
	return m.tracker.History()
}

func (m *Manager) newTracker(epoch uint64) *Tracker {
	t := NewTracker(epoch, m.opts.Forms, m.opts.HistoryLimit)
	t.Invoke = m.beginInvocationLocked
	t.Notify = m.publishLocked
	return t
}

func (m *Manager) sendHandshakeLocked() error {
	var specs []tools.FunctionSpec
	if m.opts.Runtime != nil {
		specs = m.opts.Runtime.Registry().FunctionSpecs()
	}
	return m.ch.Send(newSessionUpdate(SessionConfig{
		Instructions: m.opts.Instructions(),
		Voice:        m.opts.Voice,
		Temperature:  m.opts.Temperature,
		Tools:        specs,
	}))
}

// closeLocked 经 Closing 回到 Idle；纪元不变，未完成的异步结果会因纪元或状态检查被丢弃。
func (m *Manager) closeLocked(reason string) {
	m.state = StateClosing
	if m.ch != nil {
		ch := m.ch
		m.ch = nil
		go func() { _ = ch.Close() }()
	}
	m.publishLocked(events.Event{Type: events.EventSessionClosed, Metadata: map[string]string{"reason": reason}})
	m.tracker = nil
	m.state = StateIdle
	sessionOpen.Set(0)
	componentLog().WithFields(logger.Fields{"epoch": m.epoch, "reason": reason}).Info("realtime session closed")
}

// pump 把通道的入站帧打上纪元标记送入事件循环。
func (m *Manager) pump(ch Channel, epoch uint64) {
	ctx := m.context()
	for frame := range ch.Frames() {
		if err := m.turns.Submit(ctx, turn{epoch: epoch, frame: frame}); err != nil {
			return
		}
	}
	_ = m.turns.Submit(ctx, turn{epoch: epoch, closed: true})
}

func (m *Manager) context() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseCtx
}

func (m *Manager) apply(t turn) {
	defer func() {
		if r := recover(); r != nil {
			componentLog().Errorf("recovered panic while handling turn: %v", r)
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	if t.epoch != m.epoch {
		eventsDropped.WithLabelValues("stale_epoch").Inc()
		componentLog().Debugf("drop stale turn epoch=%d current=%d", t.epoch, m.epoch)
		return
	}
	if m.state != StateOpen || m.tracker == nil {
		eventsDropped.WithLabelValues("not_open").Inc()
		return
	}

	switch {
	case t.result != nil:
		m.finishInvocationLocked(*t.result)
	case t.closed:
		m.closeLocked("channel closed")
	default:
		m.handleFrameLocked(t.frame)
	}
}

func (m *Manager) handleFrameLocked(frame []byte) {
	ev, err := DecodeEvent(frame)
	if err != nil {
		eventsDropped.WithLabelValues("malformed").Inc()
		componentLog().Warnf("ignore malformed realtime frame: %v", err)
		return
	}
	eventsTotal.WithLabelValues(ev.Kind.String()).Inc()
	componentLog().WithFields(logger.Fields{"type": ev.Type, "epoch": m.epoch}).Debug("inbound event")

	if ev.Kind == KindError {
		serverErr := events.ServerError{Message: "unknown error"}
		if ev.Error != nil {
			serverErr = events.ServerError{Code: ev.Error.Code, Message: ev.Error.Message}
		}
		componentLog().Warnf("realtime server error code=%s message=%s", serverErr.Code, serverErr.Message)
		m.publishLocked(events.Event{Type: events.EventServerError, Payload: serverErr})
		return
	}
	m.tracker.Handle(ev)
}

func (m *Manager) publishLocked(ev events.Event) {
	if m.opts.Observer == nil {
		return
	}
	ev.Session = m.token
	ev.Epoch = m.epoch
	if err := m.opts.Observer.Publish(context.Background(), ev); err != nil && !errors.Is(err, events.ErrEventDropped) {
		componentLog().Debugf("publish %s failed: %v", ev.Type, err)
	}
}
