package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook runs around each handler invocation. An error from BeforeHandle skips the
// handler and counts as a failed attempt.
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, error)
	AfterHandle(ctx context.Context, km kafka.Message, err error)
}

type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, _ kafka.Message) (context.Context, error) {
	return ctx, nil
}

func (NoopHook) AfterHandle(context.Context, kafka.Message, error) {}

// HookFuncs adapts plain functions; nil fields are no-ops.
type HookFuncs struct {
	Before func(context.Context, kafka.Message) (context.Context, error)
	After  func(context.Context, kafka.Message, error)
}

func (h HookFuncs) BeforeHandle(ctx context.Context, km kafka.Message) (context.Context, error) {
	if h.Before == nil {
		return ctx, nil
	}
	return h.Before(ctx, km)
}

func (h HookFuncs) AfterHandle(ctx context.Context, km kafka.Message, err error) {
	if h.After != nil {
		h.After(ctx, km, err)
	}
}

type ctxKey string

const ctxTraceID ctxKey = "kafka_trace_id"

// TraceHook copies the trace_id header into the handler context.
func TraceHook() ConsumerHook {
	return HookFuncs{Before: func(ctx context.Context, km kafka.Message) (context.Context, error) {
		for _, h := range km.Headers {
			if h.Key == "trace_id" && len(h.Value) > 0 {
				return context.WithValue(ctx, ctxTraceID, string(h.Value)), nil
			}
		}
		return ctx, nil
	}}
}

// TraceID returns the trace id set by TraceHook, if any.
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(ctxTraceID).(string)
	return v
}

// safeBefore shields the consumer from panicking hooks.
func safeBefore(h ConsumerHook, ctx context.Context, km kafka.Message) (out context.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = ctx, fmt.Errorf("hook panic: %v", r)
		}
	}()
	return h.BeforeHandle(ctx, km)
}

func safeAfter(h ConsumerHook, ctx context.Context, km kafka.Message, err error) {
	defer func() { _ = recover() }()
	h.AfterHandle(ctx, km, err)
}
