package log

import "time"

// Logger is the structured logger used throughout the runtime. The zerolog
// adapter backs it by default; the reporter adapter forwards each message to
// a host callback.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key-value pair attached to a message.
type Field struct {
	Key   string
	Value any
}

// Stream tags a message with a video stream slot.
func Stream(index int) Field { return Field{Key: "stream", Value: index} }

func String(key, value string) Field                 { return Field{Key: key, Value: value} }
func Int(key string, value int) Field                { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field            { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field          { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field        { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field              { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Err attaches err under the "error" key.
func Err(err error) Field { return Field{Key: "error", Value: err} }

// Any attaches a value of any type; adapters fall back to its default
// formatting.
func Any(key string, value any) Field { return Field{Key: key, Value: value} }
