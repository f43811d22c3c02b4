package realtime

import (
	"io"
	"sync"

	"voice-agent/internal/logger"
)

// DefaultRealtimeLogPath 是 realtime 事件日志的默认路径。
const DefaultRealtimeLogPath = "logs/realtime.log"

var (
	realtimeLog   = logger.Named("realtime")
	realtimeLogMu sync.Mutex
)

// SetupRealtimeLog 把 realtime 组件日志写入独立文件。
func SetupRealtimeLog(logPath string) (io.Closer, string, error) {
	if logPath == "" {
		logPath = DefaultRealtimeLogPath
	}
	entry, closer, resolved, err := logger.SetupComponentFile("realtime", logPath)
	if err != nil {
		return nil, resolved, err
	}
	realtimeLogMu.Lock()
	realtimeLog = entry
	realtimeLogMu.Unlock()
	return closer, resolved, nil
}

func componentLog() *logger.LogEntry {
	realtimeLogMu.Lock()
	defer realtimeLogMu.Unlock()
	return realtimeLog
}
