package eino

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"

	"newslk/internal/logger"
)

// CallObserver receives one event per model call: operation is the call
// name ("categorize", "analyze", "imagen") and result is "ok" or "error".
type CallObserver interface {
	ObserveLLMCall(operation, result string, elapsed time.Duration)
}

// Tracer times model calls. Chat model calls report through eino callbacks;
// direct genai calls go through Observe.
type Tracer struct {
	observer CallObserver
	log      *logger.Logger
}

type traceStartKey struct{ name string }

func NewTracer(observer CallObserver) *Tracer {
	return &Tracer{observer: observer, log: logger.New("GeminiTrace")}
}

// Handler builds the eino callback handler.
func (t *Tracer) Handler() callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(t.onStart).
		OnEndFn(t.onEnd).
		OnErrorFn(t.onError).
		Build()
}

// Attach makes chat model calls made with the returned context report as name.
func (t *Tracer) Attach(ctx context.Context, name string) context.Context {
	return callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      name,
		Type:      "Gemini",
		Component: components.ComponentOfChatModel,
	}, t.Handler())
}

// Observe reports a call made outside eino.
func (t *Tracer) Observe(operation string, start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		t.log.LogWarnf("%s failed after %v: %v", operation, elapsed.Round(time.Millisecond), err)
		t.report(operation, "error", elapsed)
		return
	}
	t.log.LogDebugf("%s done in %v", operation, elapsed.Round(time.Millisecond))
	t.report(operation, "ok", elapsed)
}

func (t *Tracer) onStart(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
	t.log.LogDebugf("%s started (%s)", nodeName(info), componentName(info))
	return context.WithValue(ctx, traceStartKey{nodeName(info)}, time.Now())
}

func (t *Tracer) onEnd(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackOutput) context.Context {
	t.Observe(nodeName(info), startedAt(ctx, info), nil)
	return ctx
}

func (t *Tracer) onError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	t.Observe(nodeName(info), startedAt(ctx, info), err)
	return ctx
}

func (t *Tracer) report(operation, result string, elapsed time.Duration) {
	if t.observer != nil {
		t.observer.ObserveLLMCall(operation, result, elapsed)
	}
}

func startedAt(ctx context.Context, info *callbacks.RunInfo) time.Time {
	if start, ok := ctx.Value(traceStartKey{nodeName(info)}).(time.Time); ok {
		return start
	}
	return time.Now()
}

func nodeName(info *callbacks.RunInfo) string {
	if info == nil {
		return "unknown"
	}
	if info.Name != "" {
		return info.Name
	}
	return string(info.Component)
}

func componentName(info *callbacks.RunInfo) string {
	if info == nil {
		return ""
	}
	return string(info.Component)
}
