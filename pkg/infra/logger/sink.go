package logger

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	sinkQueueSize     = 1000
	sinkFlushInterval = 2 * time.Second
)

// fileSink buffers log lines through a queue and flushes them to disk on an
// interval, so a slow disk never stalls the request path. A full queue drops
// the line rather than block.
type fileSink struct {
	file    *os.File
	writer  *bufio.Writer
	mu      sync.Mutex
	queue   chan []byte
	done    chan struct{}
	stopped chan struct{}
}

func newFileSink(path string, bufferSize int) (*fileSink, error) {
	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}

	s := &fileSink{
		file:    file,
		writer:  bufio.NewWriterSize(file, bufferSize),
		queue:   make(chan []byte, sinkQueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.drain()
	return s, nil
}

func (s *fileSink) Write(p []byte) (int, error) {
	line := make([]byte, len(p))
	copy(line, p)
	select {
	case s.queue <- line:
	default:
	}
	return len(p), nil
}

func (s *fileSink) drain() {
	defer close(s.stopped)
	ticker := time.NewTicker(sinkFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case line := <-s.queue:
			s.mu.Lock()
			_, _ = s.writer.Write(line)
			s.mu.Unlock()
		case <-ticker.C:
			s.flush()
		case <-s.done:
			// Drain whatever is still queued before the final flush.
			for {
				select {
				case line := <-s.queue:
					s.mu.Lock()
					_, _ = s.writer.Write(line)
					s.mu.Unlock()
				default:
					s.flush()
					return
				}
			}
		}
	}
}

func (s *fileSink) flush() {
	s.mu.Lock()
	_ = s.writer.Flush()
	s.mu.Unlock()
}

func (s *fileSink) Close() {
	close(s.done)
	<-s.stopped
	_ = s.file.Close()
}

// consoleMirror duplicates every entry to stdout so the file sink stays the
// primary output without hiding logs from the terminal.
type consoleMirror struct{}

func (consoleMirror) Fire(entry *logrus.Entry) error {
	line, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(line)
	return err
}

func (consoleMirror) Levels() []logrus.Level {
	return logrus.AllLevels
}
