// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// SynchronousMultiTracingProcessor forwards all calls to a list of Processors,
// in order of registration. A failing processor is logged and skipped, so
// that one broken sink neither affects the others nor the traced code.
type SynchronousMultiTracingProcessor struct {
	mu         sync.RWMutex
	processors []Processor
}

func NewSynchronousMultiTracingProcessor() *SynchronousMultiTracingProcessor {
	return &SynchronousMultiTracingProcessor{}
}

// AddProcessor adds a processor to the list of processors.
func (p *SynchronousMultiTracingProcessor) AddProcessor(processor Processor) {
	p.mu.Lock()
	p.processors = append(p.processors, processor)
	p.mu.Unlock()
}

// SetProcessors replaces the current list of processors.
func (p *SynchronousMultiTracingProcessor) SetProcessors(processors []Processor) {
	p.mu.Lock()
	p.processors = slices.Clone(processors)
	p.mu.Unlock()
}

func (p *SynchronousMultiTracingProcessor) each(event string, fn func(Processor) error) {
	p.mu.RLock()
	processors := slices.Clone(p.processors)
	p.mu.RUnlock()

	for _, processor := range processors {
		if err := callProcessor(processor, fn); err != nil {
			Logger().Error("Trace processor failed",
				slog.String("event", event),
				slog.String("processor", fmt.Sprintf("%T", processor)),
				slog.String("error", err.Error()))
		}
	}
}

func callProcessor(processor Processor, fn func(Processor) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panicked: %v", r)
		}
	}()
	return fn(processor)
}

func (p *SynchronousMultiTracingProcessor) OnTraceStart(ctx context.Context, trace Trace) error {
	p.each("trace_start", func(pr Processor) error { return pr.OnTraceStart(ctx, trace) })
	return nil
}

func (p *SynchronousMultiTracingProcessor) OnTraceEnd(ctx context.Context, trace Trace) error {
	p.each("trace_end", func(pr Processor) error { return pr.OnTraceEnd(ctx, trace) })
	return nil
}

func (p *SynchronousMultiTracingProcessor) OnSpanStart(ctx context.Context, span Span) error {
	p.each("span_start", func(pr Processor) error { return pr.OnSpanStart(ctx, span) })
	return nil
}

func (p *SynchronousMultiTracingProcessor) OnSpanEnd(ctx context.Context, span Span) error {
	p.each("span_end", func(pr Processor) error { return pr.OnSpanEnd(ctx, span) })
	return nil
}

func (p *SynchronousMultiTracingProcessor) Shutdown(ctx context.Context) error {
	p.each("shutdown", func(pr Processor) error { return pr.Shutdown(ctx) })
	return nil
}

func (p *SynchronousMultiTracingProcessor) ForceFlush(ctx context.Context) error {
	p.each("force_flush", func(pr Processor) error { return pr.ForceFlush(ctx) })
	return nil
}

// TraceProvider is an interface for creating traces and spans.
type TraceProvider interface {
	// RegisterProcessor adds a processor that will receive all traces and spans.
	RegisterProcessor(processor Processor)

	// SetProcessors replaces the list of processors with the given value.
	SetProcessors(processors []Processor)

	// GetCurrentTrace returns the currently active trace, if any.
	GetCurrentTrace(context.Context) Trace

	// GetCurrentSpan returns the currently active span, if any.
	GetCurrentSpan(context.Context) Span

	// SetDisabled enable or disable tracing globally.
	SetDisabled(disabled bool)

	// CreateTrace creates a new trace.
	CreateTrace(params TraceParams) Trace

	// CreateSpan creates a new span.
	// A nil parent means the current span, or the current trace, of ctx.
	CreateSpan(ctx context.Context, spanData SpanData, spanID string, parent any, disabled bool) Span

	// Shutdown cleans up any resources used by the provider.
	Shutdown(context.Context)
}

// DisableTracingEnv is the environment variable that, set to "true" or "1",
// disables tracing globally.
const DisableTracingEnv = "AGENTLAB_DISABLE_TRACING"

type DefaultTraceProvider struct {
	multiProcessor *SynchronousMultiTracingProcessor
	disabled       atomic.Bool
}

func NewDefaultTraceProvider() *DefaultTraceProvider {
	p := &DefaultTraceProvider{
		multiProcessor: NewSynchronousMultiTracingProcessor(),
	}
	v := strings.ToLower(os.Getenv(DisableTracingEnv))
	p.disabled.Store(v == "true" || v == "1")
	return p
}

func (p *DefaultTraceProvider) RegisterProcessor(processor Processor) {
	p.multiProcessor.AddProcessor(processor)
}

func (p *DefaultTraceProvider) SetProcessors(processors []Processor) {
	p.multiProcessor.SetProcessors(processors)
}

func (p *DefaultTraceProvider) GetCurrentTrace(ctx context.Context) Trace {
	return GetCurrentTraceFromContextScope(ctx)
}

func (p *DefaultTraceProvider) GetCurrentSpan(ctx context.Context) Span {
	return GetCurrentSpanFromContextScope(ctx)
}

func (p *DefaultTraceProvider) SetDisabled(disabled bool) {
	p.disabled.Store(disabled)
}

func (p *DefaultTraceProvider) CreateTrace(params TraceParams) Trace {
	if p.disabled.Load() || params.Disabled {
		Logger().Debug("Tracing is disabled. Not creating trace", slog.String("name", params.WorkflowName))
		return NewNoOpTrace()
	}

	traceID := params.TraceID
	if traceID == "" {
		traceID = GenTraceID()
	}

	Logger().Debug("Creating trace", slog.String("name", params.WorkflowName), slog.String("ID", traceID))

	return NewTraceImpl(params.WorkflowName, traceID, params.GroupID, params.Metadata, p.multiProcessor)
}

func (p *DefaultTraceProvider) CreateSpan(
	ctx context.Context,
	spanData SpanData,
	spanID string,
	parent any,
	disabled bool,
) Span {
	if p.disabled.Load() || disabled {
		return NewNoOpSpan(spanData)
	}

	var parentID, traceID string

	switch parent := parent.(type) {
	case nil:
		currentTrace := GetCurrentTraceFromContextScope(ctx)
		currentSpan := GetCurrentSpanFromContextScope(ctx)

		if currentTrace == nil {
			// Spans outside of a trace are silently dropped.
			return NewNoOpSpan(spanData)
		}
		if _, ok := currentTrace.(*NoOpTrace); ok {
			return NewNoOpSpan(spanData)
		}
		if _, ok := currentSpan.(*NoOpSpan); ok {
			return NewNoOpSpan(spanData)
		}
		if currentSpan != nil {
			parentID = currentSpan.SpanID()
		}
		traceID = currentTrace.TraceID()
	case *NoOpTrace, *NoOpSpan:
		return NewNoOpSpan(spanData)
	case Trace:
		traceID = parent.TraceID()
	case Span:
		parentID = parent.SpanID()
		traceID = parent.TraceID()
	default:
		Logger().Error(fmt.Sprintf("Unexpected parent type %T. Returning NoOpSpan.", parent))
		return NewNoOpSpan(spanData)
	}

	if spanID == "" {
		spanID = GenSpanID()
	}
	Logger().Debug("Creating span", slog.String("type", spanData.Type()), slog.String("ID", spanID))

	return NewSpanImpl(traceID, spanID, parentID, p.multiProcessor, spanData)
}

func (p *DefaultTraceProvider) Shutdown(ctx context.Context) {
	Logger().Debug("Shutting down trace provider")
	_ = p.multiProcessor.Shutdown(ctx)
}
