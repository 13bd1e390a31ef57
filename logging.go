package moemail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Log levels passed to a LogFunc.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// LogFunc receives every diagnostic the client produces. A panic inside
// the callback is recovered and discarded.
type LogFunc func(level, message string)

// SlogLogger adapts a slog.Logger to a LogFunc. A nil logger means
// slog.Default().
func SlogLogger(l *slog.Logger) LogFunc {
	if l == nil {
		l = slog.Default()
	}
	return func(level, message string) {
		l.Log(context.Background(), slogLevel(level), message, slog.String("component", "moemail"))
	}
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn, "warning":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// log routes a message to the configured LogFunc.
func (c *Client) log(level, message string) {
	if c.logger == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	c.logger(level, message)
}

func (c *Client) logf(level, format string, args ...any) {
	if c.logger == nil {
		return
	}
	c.log(level, fmt.Sprintf(format, args...))
}
