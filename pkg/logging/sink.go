package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Sink receives diagnostics from library code. Passing a nil Sink selects
// strict behavior: conditions that would otherwise be warnings (such as a
// deep-merge type conflict) become errors instead.
type Sink interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// zerologSink adapts a zerolog.Logger to the Sink interface.
type zerologSink struct {
	logger *zerolog.Logger
}

// NewSink returns a Sink backed by the given zerolog logger.
// A nil logger falls back to the default logger.
func NewSink(logger *zerolog.Logger) Sink {
	if logger == nil {
		logger = Default()
	}
	return &zerologSink{logger: logger}
}

// Infof implements Sink.
func (s *zerologSink) Infof(format string, args ...any) {
	s.logger.Info().Msgf(format, args...)
}

// Warnf implements Sink.
func (s *zerologSink) Warnf(format string, args ...any) {
	s.logger.Warn().Msgf(format, args...)
}

// RecordingSink captures diagnostics for inspection in tests.
type RecordingSink struct {
	Infos    []string
	Warnings []string
}

// Infof implements Sink.
func (s *RecordingSink) Infof(format string, args ...any) {
	s.Infos = append(s.Infos, fmt.Sprintf(format, args...))
}

// Warnf implements Sink.
func (s *RecordingSink) Warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}
