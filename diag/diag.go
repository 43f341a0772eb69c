// Package diag provides the diagnostic sink the rendering core logs through.
// The sink is injected into components instead of being reached through a
// package global, so the process entry point owns its lifecycle.
package diag

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Severity grades a diagnostic message.
type Severity int

// Severities, ordered from chattiest to most serious.
const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

// Sink accepts diagnostic messages. Implementations must be safe
// for concurrent use and must never block indefinitely, it gets
// called from the GPU debug callback as well as the control thread.
type Sink interface {
	Message(severity Severity, source, message string)
}

// NewLogrusSink creates a Sink that forwards everything to a logrus logger.
func NewLogrusSink(logger *log.Logger) *LogrusSink {
	return &LogrusSink{
		logger: logger,
	}
}

// LogrusSink is a mutex guarded Sink backed by logrus.
type LogrusSink struct {
	mutex  sync.Mutex
	logger *log.Logger
}

// Message implements Sink.
func (s *LogrusSink) Message(severity Severity, source, message string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry := s.logger.WithField("source", source)
	switch severity {
	case SeverityDebug:
		entry.Debug(message)
	case SeverityInfo:
		entry.Info(message)
	case SeverityWarning:
		entry.Warning(message)
	default:
		entry.Error(message)
	}
}

// Discard is a Sink that drops every message. Useful as a default
// when no sink was injected.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Message(Severity, string, string) {}
