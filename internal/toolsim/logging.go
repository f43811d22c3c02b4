package toolsim

import "voice-agent/internal/logger"

func componentLog() *logger.LogEntry {
	return logger.Named("toolsim")
}
