// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package log

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

type ctxKey struct{}

var (
	debugEnabled atomic.Bool
	mu           sync.Mutex
	out          io.Writer = color.Output
)

// SetDebug toggles Debug output.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether Debug output is on.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetOutput redirects all log output. Used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// WithRequestID adds request ID to context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID retrieves the request ID stored by WithRequestID.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}

// formatLog formats log message with optional request ID
func formatLog(level string, requestID string, format string, a ...interface{}) string {
	msg := fmt.Sprintf(format, a...)
	if requestID != "" {
		return fmt.Sprintf("[%s] [req_id=%s] %s", level, requestID, msg)
	}
	return fmt.Sprintf("[%s] %s", level, msg)
}

func write(label string, msg string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "%s %s\n", label, msg)
}

var (
	infoLabel  = color.New(color.FgWhite, color.BgGreen).SprintFunc()
	warnLabel  = color.New(color.FgWhite, color.BgYellow).SprintFunc()
	errorLabel = color.New(color.FgRed).SprintFunc()
	debugLabel = color.New(color.FgCyan).SprintFunc()
)

// Debug logs only when debug output is enabled.
func Debug(format string, a ...interface{}) {
	if !DebugEnabled() {
		return
	}
	write(debugLabel("[DEBUG]"), fmt.Sprintf(format, a...))
}

// DebugWithContext logs debug output with the request ID if available
func DebugWithContext(ctx context.Context, format string, a ...interface{}) {
	if !DebugEnabled() {
		return
	}
	write(debugLabel("[DEBUG]"), formatLog("DEBUG", RequestID(ctx), format, a...))
}

// Info log information
func Info(format string, a ...interface{}) {
	write(infoLabel("[INFO] "), fmt.Sprintf(format, a...))
}

// InfoWithContext logs information with context (includes request ID if available)
func InfoWithContext(ctx context.Context, format string, a ...interface{}) {
	write(infoLabel("[INFO] "), formatLog("INFO", RequestID(ctx), format, a...))
}

// Warn log warning
func Warn(format string, a ...interface{}) {
	write(warnLabel("[WARN] "), fmt.Sprintf(format, a...))
}

// WarnWithContext logs warning with context (includes request ID if available)
func WarnWithContext(ctx context.Context, format string, a ...interface{}) {
	write(warnLabel("[WARN] "), formatLog("WARN", RequestID(ctx), format, a...))
}

// Error log error
func Error(format string, a ...interface{}) {
	write(errorLabel("[Error]"), fmt.Sprintf(format, a...))
}

// ErrorWithContext logs error with context (includes request ID if available)
func ErrorWithContext(ctx context.Context, format string, a ...interface{}) {
	write(errorLabel("[Error]"), formatLog("ERROR", RequestID(ctx), format, a...))
}

// DebugStruct dumps values when debug output is enabled.
func DebugStruct(a ...interface{}) {
	if !DebugEnabled() {
		return
	}
	write(debugLabel("[DEBUG]"), spew.Sdump(a...))
}
