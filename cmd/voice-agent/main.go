package main

import (
	"io"
	"os"

	"voice-agent/internal/logger"
	"voice-agent/internal/realtime"
	"voice-agent/internal/tools"

	"github.com/spf13/cobra"
)

var log = logger.Named("cli")

func main() {
	logger.Configure()
	for _, closer := range setupLogFiles() {
		defer closer.Close()
	}

	if err := newRootCmd().Execute(); err != nil {
		log.Errorf("command failed: %v", err)
		os.Exit(1)
	}
}

// setupLogFiles 把主日志和各组件日志重定向到 logs/ 目录，失败时只告警。
func setupLogFiles() []io.Closer {
	var closers []io.Closer
	if logFile, _, err := logger.SetupFile(logger.DefaultLogPath); err != nil {
		log.Warnf("failed to initialize log file: %v", err)
	} else {
		closers = append(closers, logFile)
	}
	if toolsCloser, _, err := tools.SetupToolsLog(tools.DefaultToolsLogPath); err != nil {
		log.Warnf("failed to initialize tools log (%s): %v", tools.DefaultToolsLogPath, err)
	} else if toolsCloser != nil {
		closers = append(closers, toolsCloser)
	}
	if rtCloser, _, err := realtime.SetupRealtimeLog(realtime.DefaultRealtimeLogPath); err != nil {
		log.Warnf("failed to initialize realtime log (%s): %v", realtime.DefaultRealtimeLogPath, err)
	} else if rtCloser != nil {
		closers = append(closers, rtCloser)
	}
	if llmCloser, _, err := logger.SetupLLMFile(logger.DefaultLLMLogPath); err != nil {
		log.Warnf("failed to initialize llm log (%s): %v", logger.DefaultLLMLogPath, err)
	} else if llmCloser != nil {
		closers = append(closers, llmCloser)
	}
	return closers
}

func newRootCmd() *cobra.Command {
	root := &rootArgs{}
	cmd := &cobra.Command{
		Use:           "voice-agent",
		Short:         "Realtime voice agent with simulated industry tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.bind(cmd)

	cmd.AddCommand(
		newServeCmd(root),
		newSessionCmd(root),
		newToolsCmd(root),
		newPingCmd(root),
		newHistoryCmd(),
		newConfigCmd(root),
	)
	return cmd
}
