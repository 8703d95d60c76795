// Package logging adapts log/slog to ports.Logger.
package logging

import (
	"context"
	"log/slog"

	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
)

// SlogLogger sends component logs to an slog.Logger. Args are alternating
// keys and values.
type SlogLogger struct {
	l *slog.Logger
}

var _ ports.Logger = (*SlogLogger)(nil)

var discard = slog.New(slog.DiscardHandler)

// New wraps l. A nil l drops every record, which is the library default.
func New(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = discard
	}
	return &SlogLogger{l: l}
}

// With tags every record with args, such as the component name.
func (s *SlogLogger) With(args ...any) *SlogLogger {
	return &SlogLogger{l: s.l.With(args...)}
}

func (s *SlogLogger) Debug(msg string, args ...any) { s.log(slog.LevelDebug, msg, args) }
func (s *SlogLogger) Info(msg string, args ...any)  { s.log(slog.LevelInfo, msg, args) }
func (s *SlogLogger) Warn(msg string, args ...any)  { s.log(slog.LevelWarn, msg, args) }
func (s *SlogLogger) Error(msg string, args ...any) { s.log(slog.LevelError, msg, args) }

func (s *SlogLogger) log(level slog.Level, msg string, args []any) {
	s.l.Log(context.Background(), level, msg, args...)
}
