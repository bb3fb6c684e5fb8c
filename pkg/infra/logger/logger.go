package logger

import (
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

const logFile = "logs/smsguard.log"

// NewLogger builds the process logger. The returned close function stops the
// file sink and flushes whatever is still buffered; call it after the server
// has shut down so the final log lines reach disk.
func NewLogger() (*logrus.Logger, func()) {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "msg",
		},
	})

	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if err := os.MkdirAll("logs", 0750); err != nil {
		log.Fatalf("failed to create logs directory: %v", err)
	}

	sink, err := newFileSink(logFile, 32*1024)
	if err != nil {
		log.Fatalf("failed to initialize log file sink: %v", err)
	}

	logger.SetOutput(sink)
	logger.AddHook(consoleMirror{})

	return logger, sink.Close
}
