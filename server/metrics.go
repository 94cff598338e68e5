package server

import (
	"log"
	"time"
)

// FlushObserver receives a callback after every render flush.
type FlushObserver interface {
	ObserveFlush(session *Session, rows int, duration time.Duration)
}

// FlushLogger logs flush metrics to the provided logger.
type FlushLogger struct {
	logger *log.Logger
}

// NewFlushLogger creates an observer that logs flush metrics.
func NewFlushLogger(l *log.Logger) *FlushLogger {
	if l == nil {
		l = log.Default()
	}
	return &FlushLogger{logger: l}
}

func (f *FlushLogger) ObserveFlush(session *Session, rows int, duration time.Duration) {
	if f == nil || f.logger == nil || session == nil {
		return
	}
	if rows == 0 {
		return
	}
	f.logger.Printf("flush session=%s rows=%d duration=%s", session.Name(), rows, duration)
}

// nopObserver discards metrics when no observer is configured.
type nopObserver struct{}

func (nopObserver) ObserveFlush(*Session, int, time.Duration) {}
