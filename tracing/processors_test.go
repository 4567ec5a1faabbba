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

package tracing_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nlpodyssey/agentlab/tracing"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockedExporter struct {
	mu        sync.Mutex
	callItems [][]any
	err       error
}

func (e *mockedExporter) Export(_ context.Context, items []any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callItems = append(e.callItems, items)
	return e.err
}

func (e *mockedExporter) calls() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]any(nil), e.callItems...)
}

func (e *mockedExporter) totalItems() int {
	n := 0
	for _, items := range e.calls() {
		n += len(items)
	}
	return n
}

func getSpan(processor tracing.Processor) *tracing.SpanImpl {
	return tracing.NewSpanImpl("test_trace_id", "test_span_id", "", processor, &tracing.AgentSpanData{Name: "test_agent"})
}

func getTrace(processor tracing.Processor) *tracing.TraceImpl {
	return tracing.NewTraceImpl("test_trace", "test_trace_id", "test_session_id", nil, processor)
}

func TestBatchTraceProcessor_Enqueue(t *testing.T) {
	ctx := t.Context()
	exporter := &mockedExporter{}
	processor := tracing.NewBatchTraceProcessor(tracing.BatchTraceProcessorParams{
		Exporter:      exporter,
		ScheduleDelay: param.NewOpt(time.Hour),
	})
	t.Cleanup(func() { require.NoError(t, processor.Shutdown(context.Background())) })

	require.NoError(t, processor.OnTraceStart(ctx, getTrace(processor)))
	require.NoError(t, processor.OnSpanStart(ctx, getSpan(processor)))
	assert.Equal(t, 1, processor.QueueSize())

	require.NoError(t, processor.OnSpanEnd(ctx, getSpan(processor)))
	require.NoError(t, processor.OnTraceEnd(ctx, getTrace(processor)))
	assert.Equal(t, 2, processor.QueueSize())
}

func TestBatchTraceProcessor_ForceFlush(t *testing.T) {
	ctx := t.Context()
	exporter := &mockedExporter{}
	processor := tracing.NewBatchTraceProcessor(tracing.BatchTraceProcessorParams{
		Exporter:      exporter,
		MaxBatchSize:  param.NewOpt(2),
		ScheduleDelay: param.NewOpt(time.Hour),
	})
	t.Cleanup(func() { require.NoError(t, processor.Shutdown(context.Background())) })

	for range 5 {
		require.NoError(t, processor.OnSpanEnd(ctx, getSpan(processor)))
	}
	require.NoError(t, processor.ForceFlush(ctx))

	calls := exporter.calls()
	require.Len(t, calls, 3)
	assert.Len(t, calls[0], 2)
	assert.Len(t, calls[1], 2)
	assert.Len(t, calls[2], 1)
	assert.Equal(t, 0, processor.QueueSize())
}

func TestBatchTraceProcessor_ShutdownDrainsQueue(t *testing.T) {
	ctx := t.Context()
	exporter := &mockedExporter{}
	processor := tracing.NewBatchTraceProcessor(tracing.BatchTraceProcessorParams{
		Exporter:      exporter,
		ScheduleDelay: param.NewOpt(time.Hour),
	})

	require.NoError(t, processor.OnTraceStart(ctx, getTrace(processor)))
	require.NoError(t, processor.OnSpanEnd(ctx, getSpan(processor)))
	require.NoError(t, processor.Shutdown(ctx))
	assert.Equal(t, 2, exporter.totalItems())

	// Items received after shutdown are ignored.
	require.NoError(t, processor.OnSpanEnd(ctx, getSpan(processor)))
	assert.Equal(t, 0, processor.QueueSize())
	require.NoError(t, processor.Shutdown(ctx))
}

func TestBatchTraceProcessor_QueueFullDropsItems(t *testing.T) {
	ctx := t.Context()
	processor := tracing.NewBatchTraceProcessor(tracing.BatchTraceProcessorParams{
		Exporter:           &mockedExporter{},
		MaxQueueSize:       param.NewOpt(3),
		ScheduleDelay:      param.NewOpt(time.Hour),
		ExportTriggerRatio: param.NewOpt(10.0),
	})
	t.Cleanup(func() { require.NoError(t, processor.Shutdown(context.Background())) })

	for range 5 {
		require.NoError(t, processor.OnSpanEnd(ctx, getSpan(processor)))
	}
	assert.Equal(t, 3, processor.QueueSize())
}

func TestBatchTraceProcessor_TriggerRatioExportsEarly(t *testing.T) {
	ctx := t.Context()
	exporter := &mockedExporter{}
	processor := tracing.NewBatchTraceProcessor(tracing.BatchTraceProcessorParams{
		Exporter:           exporter,
		MaxQueueSize:       param.NewOpt(10),
		ExportTriggerRatio: param.NewOpt(0.3),
		ScheduleDelay:      param.NewOpt(time.Hour),
	})
	t.Cleanup(func() { require.NoError(t, processor.Shutdown(context.Background())) })

	for range 3 {
		require.NoError(t, processor.OnSpanEnd(ctx, getSpan(processor)))
	}
	assert.Eventually(t, func() bool { return exporter.totalItems() == 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestBatchTraceProcessor_ScheduledExport(t *testing.T) {
	ctx := t.Context()
	exporter := &mockedExporter{}
	processor := tracing.NewBatchTraceProcessor(tracing.BatchTraceProcessorParams{
		Exporter:      exporter,
		ScheduleDelay: param.NewOpt(20 * time.Millisecond),
	})
	t.Cleanup(func() { require.NoError(t, processor.Shutdown(context.Background())) })

	require.NoError(t, processor.OnSpanEnd(ctx, getSpan(processor)))
	assert.Eventually(t, func() bool { return exporter.totalItems() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestBatchTraceProcessor_ExportError(t *testing.T) {
	ctx := t.Context()
	errExport := errors.New("export failed")
	processor := tracing.NewBatchTraceProcessor(tracing.BatchTraceProcessorParams{
		Exporter:      &mockedExporter{err: errExport},
		ScheduleDelay: param.NewOpt(time.Hour),
	})
	t.Cleanup(func() { _ = processor.Shutdown(context.Background()) })

	require.NoError(t, processor.OnSpanEnd(ctx, getSpan(processor)))
	assert.ErrorIs(t, processor.ForceFlush(ctx), errExport)
}

func TestConsoleSpanExporter(t *testing.T) {
	var buf bytes.Buffer
	exporter := tracing.ConsoleSpanExporter{Writer: &buf}

	noop := tracing.NewSynchronousMultiTracingProcessor()
	err := exporter.Export(t.Context(), []any{getTrace(noop), getSpan(noop)})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[Exporter] Export trace_id=test_trace_id, name=test_trace")
	assert.Contains(t, out, `"id":"test_span_id"`)
	assert.Contains(t, out, `"name":"test_agent"`)

	assert.Error(t, exporter.Export(t.Context(), []any{42}))
}
