package log

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Reporter receives one formatted log line together with the source location
// of the call that produced it.
type Reporter func(isError bool, file string, line int, function, msg string)

// ReporterLogger implements Logger by forwarding every message to a Reporter.
// Warn and Error are reported as errors.
type ReporterLogger struct {
	report Reporter
	level  Level
	skip   int
}

// Level is the minimum severity a ReporterLogger forwards.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// NewReporterLogger creates a logger that calls report. Messages below
// LevelInfo are dropped.
func NewReporterLogger(report Reporter) *ReporterLogger {
	return &ReporterLogger{report: report, level: LevelInfo}
}

// WithLevel returns a copy that forwards messages at or above level.
func (r *ReporterLogger) WithLevel(level Level) *ReporterLogger {
	c := *r
	c.level = level
	return &c
}

// WithCallerSkip returns a copy that reports the caller n frames further up.
// Wrappers around the logger use it to point at their own callers.
func (r *ReporterLogger) WithCallerSkip(n int) *ReporterLogger {
	c := *r
	c.skip += n
	return &c
}

// Debug reports a debug-level message.
func (r *ReporterLogger) Debug(msg string, fields ...Field) { r.emit(LevelDebug, msg, fields) }

// Info reports an info-level message.
func (r *ReporterLogger) Info(msg string, fields ...Field) { r.emit(LevelInfo, msg, fields) }

// Warn reports a warning as an error.
func (r *ReporterLogger) Warn(msg string, fields ...Field) { r.emit(LevelWarn, msg, fields) }

// Error reports an error-level message.
func (r *ReporterLogger) Error(msg string, fields ...Field) { r.emit(LevelError, msg, fields) }

func (r *ReporterLogger) emit(level Level, msg string, fields []Field) {
	if r.report == nil || level < r.level {
		return
	}
	file, line, function := "???", 0, "???"
	// emit <- Debug/Info/... <- caller
	if pc, f, l, ok := runtime.Caller(2 + r.skip); ok {
		file, line = filepath.Base(f), l
		if fn := runtime.FuncForPC(pc); fn != nil {
			function = shortFuncName(fn.Name())
		}
	}
	r.report(level >= LevelWarn, file, line, function, formatLine(msg, fields))
}

// shortFuncName trims the package path from a qualified function name.
func shortFuncName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// formatLine renders msg followed by key=value pairs.
func formatLine(msg string, fields []Field) string {
	if len(fields) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		switch v := f.Value.(type) {
		case string:
			if strings.ContainsAny(v, " \t\"=") {
				fmt.Fprintf(&b, "%q", v)
			} else {
				b.WriteString(v)
			}
		default:
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}
