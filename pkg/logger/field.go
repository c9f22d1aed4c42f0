package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is a typed key/value attached to a log event.
type Field interface {
	AddTo(event *zerolog.Event)
	AddToContext(ctx zerolog.Context) zerolog.Context
	GetKeyValue() (string, any)
}

type StringField struct {
	Key   string
	Value string
}

func (f StringField) AddTo(e *zerolog.Event)                         { e.Str(f.Key, f.Value) }
func (f StringField) AddToContext(c zerolog.Context) zerolog.Context { return c.Str(f.Key, f.Value) }
func (f StringField) GetKeyValue() (string, any)                     { return f.Key, f.Value }

type IntField struct {
	Key   string
	Value int
}

func (f IntField) AddTo(e *zerolog.Event)                         { e.Int(f.Key, f.Value) }
func (f IntField) AddToContext(c zerolog.Context) zerolog.Context { return c.Int(f.Key, f.Value) }
func (f IntField) GetKeyValue() (string, any)                     { return f.Key, f.Value }

type Int64Field struct {
	Key   string
	Value int64
}

func (f Int64Field) AddTo(e *zerolog.Event)                         { e.Int64(f.Key, f.Value) }
func (f Int64Field) AddToContext(c zerolog.Context) zerolog.Context { return c.Int64(f.Key, f.Value) }
func (f Int64Field) GetKeyValue() (string, any)                     { return f.Key, f.Value }

type Float64Field struct {
	Key   string
	Value float64
}

func (f Float64Field) AddTo(e *zerolog.Event)                         { e.Float64(f.Key, f.Value) }
func (f Float64Field) AddToContext(c zerolog.Context) zerolog.Context { return c.Float64(f.Key, f.Value) }
func (f Float64Field) GetKeyValue() (string, any)                     { return f.Key, f.Value }

type ErrorField struct {
	Key   string
	Value error
}

func (f ErrorField) AddTo(e *zerolog.Event)                         { e.AnErr(f.Key, f.Value) }
func (f ErrorField) AddToContext(c zerolog.Context) zerolog.Context { return c.AnErr(f.Key, f.Value) }
func (f ErrorField) GetKeyValue() (string, any) {
	if f.Value == nil {
		return f.Key, nil
	}
	return f.Key, f.Value.Error()
}

type AnyField struct {
	Key   string
	Value any
}

func (f AnyField) AddTo(e *zerolog.Event)                         { e.Interface(f.Key, f.Value) }
func (f AnyField) AddToContext(c zerolog.Context) zerolog.Context { return c.Interface(f.Key, f.Value) }
func (f AnyField) GetKeyValue() (string, any)                     { return f.Key, f.Value }

type BoolField struct {
	Key   string
	Value bool
}

func (f BoolField) AddTo(e *zerolog.Event)                         { e.Bool(f.Key, f.Value) }
func (f BoolField) AddToContext(c zerolog.Context) zerolog.Context { return c.Bool(f.Key, f.Value) }
func (f BoolField) GetKeyValue() (string, any)                     { return f.Key, f.Value }

func String(key, value string) Field       { return StringField{Key: key, Value: value} }
func Int(key string, value int) Field      { return IntField{Key: key, Value: value} }
func Int64(key string, value int64) Field  { return Int64Field{Key: key, Value: value} }
func Float64(key string, v float64) Field  { return Float64Field{Key: key, Value: v} }
func Bool(key string, value bool) Field    { return BoolField{Key: key, Value: value} }
func Any(key string, value any) Field      { return AnyField{Key: key, Value: value} }
func Error(err error) Field                { return ErrorField{Key: "error", Value: err} }
func Strings(key string, v []string) Field { return String(key, strings.Join(v, ", ")) }

// Duration is logged in milliseconds.
func Duration(key string, value time.Duration) Field {
	return Int64Field{Key: key, Value: value.Milliseconds()}
}

// Date is logged as YYYY-MM-DD.
func Date(key string, value time.Time) Field {
	return StringField{Key: key, Value: value.Format("2006-01-02")}
}
