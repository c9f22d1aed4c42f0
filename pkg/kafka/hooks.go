package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	applogger "FinCast/pkg/logger"
)

// ConsumerHook wraps message handling. BeforeHandle may rewrite the context,
// message or payload; a non-nil error skips the handler and sends the message
// through error processing (OnError, DLQ, commit).
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
	OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook does nothing.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return ctx, km, data, nil
}

func (NoopHook) AfterHandle(context.Context, string, kafka.Message, []byte, error) {}

func (NoopHook) OnError(context.Context, string, kafka.Message, []byte, error) {}

// HookError classifies an error raised by a hook, e.g. "ERR_VALIDATION".
type HookError struct {
	Code string
	Err  error
}

func (e *HookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *HookError) Unwrap() error { return e.Err }

// HookFuncs adapts plain functions to ConsumerHook. Nil functions are no-ops.
type HookFuncs struct {
	Before func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error)
	After  func(context.Context, string, kafka.Message, []byte, error)
	Err    func(context.Context, string, kafka.Message, []byte, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	if h.Before == nil {
		return ctx, km, data, nil
	}
	return h.Before(ctx, topic, km, data)
}

func (h HookFuncs) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.After != nil {
		h.After(ctx, topic, km, data, err)
	}
}

func (h HookFuncs) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.Err != nil {
		h.Err(ctx, topic, km, data, err)
	}
}

// CodePanic marks a HookError raised from a recovered hook panic.
const CodePanic = "ERR_PANIC"

// HookChain runs hooks in order for BeforeHandle and in reverse for
// AfterHandle. A panicking hook never reaches the consumer loop.
type HookChain []ConsumerHook

// NewHookChain drops nil hooks.
func NewHookChain(hooks ...ConsumerHook) HookChain {
	chain := make(HookChain, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			chain = append(chain, h)
		}
	}
	return chain
}

func (c HookChain) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	for _, h := range c {
		var (
			nctx  context.Context
			nmsg  kafka.Message
			ndata []byte
			herr  error
		)
		if err := guard(func() { nctx, nmsg, ndata, herr = h.BeforeHandle(ctx, topic, km, data) }); err != nil {
			herr = err
		}
		if herr != nil {
			c.OnError(ctx, topic, km, data, herr)
			return ctx, km, data, herr
		}
		ctx, km, data = nctx, nmsg, ndata
	}
	return ctx, km, data, nil
}

func (c HookChain) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	for i := len(c) - 1; i >= 0; i-- {
		h := c[i]
		_ = guard(func() { h.AfterHandle(ctx, topic, km, data, err) })
	}
}

func (c HookChain) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	for _, h := range c {
		_ = guard(func() { h.OnError(ctx, topic, km, data, err) })
	}
}

// guard runs fn and converts a panic into a CodePanic HookError.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HookError{Code: CodePanic, Err: fmt.Errorf("hook panic: %v", r)}
		}
	}()
	fn()
	return nil
}

// TraceHeader is the message header that carries the correlation id.
const TraceHeader = "trace_id"

// ExtractTraceID reads the TraceHeader header.
func ExtractTraceID(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == TraceHeader && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return ""
}

type handling struct {
	start   time.Time
	traceID string
}

type handlingKey struct{}

func handlingFrom(ctx context.Context) (handling, bool) {
	h, ok := ctx.Value(handlingKey{}).(handling)
	return h, ok
}

// TraceIDFrom returns the trace id LoggingHook took from the message headers.
func TraceIDFrom(ctx context.Context) string {
	h, _ := handlingFrom(ctx)
	return h.traceID
}

// StartedAt returns when LoggingHook began handling the message.
func StartedAt(ctx context.Context) (time.Time, bool) {
	h, ok := handlingFrom(ctx)
	return h.start, ok
}

// PayloadFields extracts log fields from a message payload. It returns nil
// for payloads it cannot read.
type PayloadFields func(data []byte) []applogger.Field

// LoggingHook records the start time and trace id, then logs each handled
// message with its partition, offset, latency and the fields Describe pulls
// out of the payload.
type LoggingHook struct {
	L        *applogger.Logger
	Describe PayloadFields
	now      func() time.Time
}

func (h LoggingHook) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

func (h LoggingHook) BeforeHandle(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	ctx = context.WithValue(ctx, handlingKey{}, handling{start: h.clock(), traceID: ExtractTraceID(km)})
	return ctx, km, data, nil
}

func (h LoggingHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.L == nil {
		return
	}
	fields := []applogger.Field{
		applogger.String("topic", topic),
		applogger.Int("partition", km.Partition),
		applogger.Int64("offset", km.Offset),
	}
	if hd, ok := handlingFrom(ctx); ok {
		if hd.traceID != "" {
			fields = append(fields, applogger.String("trace_id", hd.traceID))
		}
		fields = append(fields, applogger.Duration("took", h.clock().Sub(hd.start)))
	}
	if h.Describe != nil {
		fields = append(fields, h.Describe(data)...)
	}
	if err != nil {
		h.L.Warn("forecast job failed", append(fields, applogger.Error(err))...)
		return
	}
	h.L.Info("forecast job handled", fields...)
}

func (LoggingHook) OnError(context.Context, string, kafka.Message, []byte, error) {}
