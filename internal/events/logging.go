package events

import (
	"io"

	"voice-agent/internal/logger"
)

// DefaultEQLogPath 是 EQ 事件日志的默认文件路径。
const DefaultEQLogPath = "logs/eq.log"

// log 复用全局 logger，标记事件组件。
var log = logger.Named("events")

// NewQueueLogger 创建写入独立文件的队列 logger；path 为空或打开失败时退回全局 logger。
func NewQueueLogger(component, path string) (*logger.LogEntry, io.Closer) {
	if path == "" {
		return logger.Named(component), nil
	}
	entry, closer, _, err := logger.SetupComponentFile(component, path)
	if err != nil {
		log.Warnf("failed to set up %s log file (%s): %v", component, path, err)
		return logger.Named(component), nil
	}
	return entry, closer
}
