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

package tracingtesting

import (
	"cmp"
	"context"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nlpodyssey/agentlab/tracing"
)

type SpanProcessorEvent string

const (
	TraceStart SpanProcessorEvent = "trace_start"
	TraceEnd   SpanProcessorEvent = "trace_end"
	SpanStart  SpanProcessorEvent = "span_start"
	SpanEnd    SpanProcessorEvent = "span_end"
)

// SpanProcessorForTests stores started traces and finished spans in memory.
type SpanProcessorForTests struct {
	mu     sync.RWMutex
	spans  []tracing.Span
	traces []tracing.Trace
	events []SpanProcessorEvent
}

func NewSpanProcessorForTests() *SpanProcessorForTests {
	return &SpanProcessorForTests{}
}

func (p *SpanProcessorForTests) record(ev SpanProcessorEvent, trace tracing.Trace, span tracing.Span) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	if trace != nil {
		p.traces = append(p.traces, trace)
	}
	if span != nil {
		p.spans = append(p.spans, span)
	}
}

func (p *SpanProcessorForTests) OnTraceStart(_ context.Context, trace tracing.Trace) error {
	p.record(TraceStart, trace, nil)
	return nil
}

func (p *SpanProcessorForTests) OnTraceEnd(context.Context, tracing.Trace) error {
	p.record(TraceEnd, nil, nil)
	return nil
}

func (p *SpanProcessorForTests) OnSpanStart(context.Context, tracing.Span) error {
	p.record(SpanStart, nil, nil)
	return nil
}

func (p *SpanProcessorForTests) OnSpanEnd(_ context.Context, span tracing.Span) error {
	p.record(SpanEnd, nil, span)
	return nil
}

func (p *SpanProcessorForTests) Shutdown(context.Context) error   { return nil }
func (p *SpanProcessorForTests) ForceFlush(context.Context) error { return nil }

// GetOrderedSpans returns the finished spans, sorted by start time or by ID.
func (p *SpanProcessorForTests) GetOrderedSpans(includingEmpty, sortSpansByID bool) []tracing.Span {
	p.mu.RLock()
	spans := slices.Clone(p.spans)
	p.mu.RUnlock()

	if !includingEmpty {
		spans = slices.DeleteFunc(spans, func(span tracing.Span) bool {
			return len(span.Export()) == 0
		})
	}

	if sortSpansByID {
		slices.SortStableFunc(spans, func(a, b tracing.Span) int {
			return cmp.Compare(a.SpanID(), b.SpanID())
		})
	} else {
		slices.SortStableFunc(spans, func(a, b tracing.Span) int {
			return a.StartedAt().Compare(b.StartedAt())
		})
	}
	return spans
}

func (p *SpanProcessorForTests) GetTraces(includingEmpty bool) []tracing.Trace {
	p.mu.RLock()
	traces := slices.Clone(p.traces)
	p.mu.RUnlock()

	if !includingEmpty {
		traces = slices.DeleteFunc(traces, func(trace tracing.Trace) bool {
			return len(trace.Export()) == 0
		})
	}
	return traces
}

func (p *SpanProcessorForTests) Events() []SpanProcessorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.events)
}

func (p *SpanProcessorForTests) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spans = nil
	p.traces = nil
	p.events = nil
}

var spanProcessorTesting = NewSpanProcessorForTests()

func SpanProcessorTesting() *SpanProcessorForTests {
	return spanProcessorTesting
}

func FetchOrderedSpans(sortSpansByID bool) []tracing.Span {
	return SpanProcessorTesting().GetOrderedSpans(false, sortSpansByID)
}

func FetchTraces() []tracing.Trace {
	return SpanProcessorTesting().GetTraces(false)
}

func FetchEvents() []SpanProcessorEvent {
	return SpanProcessorTesting().Events()
}

func RequireNoSpans(t *testing.T) {
	t.Helper()
	if spans := FetchOrderedSpans(false); len(spans) > 0 {
		t.Fatalf("expected 0 spans, got %d", len(spans))
	}
}

func RequireNoTraces(t *testing.T) {
	t.Helper()
	if traces := FetchTraces(); len(traces) > 0 {
		t.Fatalf("expected 0 traces, got %d", len(traces))
	}
	RequireNoSpans(t)
}

// FetchNormalizedSpans returns the recorded traces as trees of maps, with
// timestamps removed and nil values dropped, so that they can be compared
// with a literal expectation.
func FetchNormalizedSpans(t *testing.T, keepSpanID, keepTraceID, sortSpansByID bool) []map[string]any {
	t.Helper()

	nodes := make(map[[2]string]map[string]any)
	var traces []map[string]any

	for _, traceObj := range FetchTraces() {
		trace := traceObj.Export()
		if trace["object"] != "trace" {
			t.Fatalf(`expected "object": "trace" in trace %+v`, trace)
		}
		delete(trace, "object")

		if v, ok := trace["id"].(string); !ok || !strings.HasPrefix(v, "trace_") {
			t.Fatalf(`expected "id": "trace_..." in trace %+v`, trace)
		}
		if !keepTraceID {
			delete(trace, "id")
		}

		deleteNilFromMap(trace)
		nodes[[2]string{traceObj.TraceID(), ""}] = trace
		traces = append(traces, trace)
	}

	if len(traces) == 0 {
		t.Fatal("expected traces, got none (use RequireNoTraces() to check for empty traces)")
	}

	for _, spanObj := range FetchOrderedSpans(sortSpansByID) {
		span := spanObj.Export()
		if span["object"] != "trace.span" {
			t.Fatalf(`expected "object": "trace.span" in span %+v`, span)
		}
		delete(span, "object")

		if v, ok := span["id"].(string); !ok || !strings.HasPrefix(v, "span_") {
			t.Fatalf(`expected "id": "span_..." in span %+v`, span)
		}
		if !keepSpanID {
			delete(span, "id")
		}

		for _, key := range []string{"started_at", "ended_at"} {
			if v, ok := span[key].(string); !ok || !canParseRFC3339NanoTime(v) {
				t.Fatalf(`expected %q RFC3339Nano time value in span %+v`, key, span)
			}
			delete(span, key)
		}

		if _, ok := span["parent_id"]; !ok {
			t.Fatalf(`expected "parent_id" in span %+v`, span)
		}
		parentID, _ := span["parent_id"].(string)
		delete(span, "parent_id")

		spanData, ok := span["span_data"].(map[string]any)
		if !ok {
			t.Fatalf(`expected map[string]any "span_data" in span %+v`, span)
		}
		delete(span, "span_data")

		span["type"] = spanData["type"]
		delete(spanData, "type")

		deleteNilFromMap(span)
		deleteNilFromMap(spanData)
		if len(spanData) > 0 {
			span["data"] = spanData
		}

		nodes[[2]string{spanObj.TraceID(), spanObj.SpanID()}] = span

		traceID, ok := span["trace_id"].(string)
		if !ok {
			t.Fatalf(`expected string "trace_id" in span %+v`, span)
		}
		delete(span, "trace_id")

		node, ok := nodes[[2]string{traceID, parentID}]
		if !ok {
			t.Fatalf("node for [%q, %q] not found", traceID, parentID)
		}
		children, _ := node["children"].([]map[string]any)
		node["children"] = append(children, span)
	}

	return traces
}

func canParseRFC3339NanoTime(v string) bool {
	_, err := time.Parse(time.RFC3339Nano, v)
	return err == nil
}

func deleteNilFromMap[M ~map[K]V, K comparable, V any](m M) {
	maps.DeleteFunc(m, func(_ K, value V) bool {
		v := reflect.ValueOf(value)
		switch v.Kind() {
		case reflect.Invalid:
			return true
		case reflect.Interface, reflect.Slice, reflect.Map, reflect.Pointer:
			return v.IsNil()
		default:
			return false
		}
	})
}
