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

package tracestore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nlpodyssey/agentlab/tracing"
	"github.com/nlpodyssey/agentlab/tracing/tracestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteExporter(t *testing.T) *tracestore.SQLiteExporter {
	t.Helper()
	e, err := tracestore.NewSQLiteExporter(t.Context(), tracestore.SQLiteExporterParams{
		DBDataSourceName: filepath.Join(t.TempDir(), "traces.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, e.Close()) })
	return e
}

// finishedTraceAndSpans builds a started trace with an agent span and a
// child function span, both finished.
func finishedTraceAndSpans(t *testing.T) (*tracing.TraceImpl, []*tracing.SpanImpl) {
	t.Helper()
	ctx := t.Context()
	processor := tracing.NewSynchronousMultiTracingProcessor()

	trace := tracing.NewTraceImpl("content_pipeline", "", "group-1", map[string]any{"topic": "go"}, processor)
	require.NoError(t, trace.Start(ctx, false))

	agentSpan := tracing.NewSpanImpl(trace.TraceID(), "", "", processor, &tracing.AgentSpanData{
		Name:  "Writer",
		Tools: []string{"search"},
	})
	require.NoError(t, agentSpan.Start(ctx, false))

	toolSpan := tracing.NewSpanImpl(trace.TraceID(), "", agentSpan.SpanID(), processor, &tracing.FunctionSpanData{
		Name:   "search",
		Input:  `{"q":"go"}`,
		Output: "results",
	})
	require.NoError(t, toolSpan.Start(ctx, false))
	toolSpan.SetError(tracing.SpanError{Message: "partial results"})
	require.NoError(t, toolSpan.Finish(ctx, false))
	require.NoError(t, agentSpan.Finish(ctx, false))
	require.NoError(t, trace.Finish(ctx, false))

	return trace, []*tracing.SpanImpl{agentSpan, toolSpan}
}

func TestSQLiteExporter_ExportAndQuery(t *testing.T) {
	e := newTestSQLiteExporter(t)
	trace, spans := finishedTraceAndSpans(t)

	err := e.Export(t.Context(), []any{trace, spans[0], spans[1]})
	require.NoError(t, err)

	traces, err := e.Traces(t.Context())
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, tracestore.TraceRecord{
		TraceID:      trace.TraceID(),
		WorkflowName: "content_pipeline",
		GroupID:      "group-1",
		Metadata:     map[string]any{"topic": "go"},
	}, traces[0])

	records, err := e.Spans(t.Context(), trace.TraceID())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, spans[0].SpanID(), records[0].SpanID)
	assert.Equal(t, "agent", records[0].SpanType)
	assert.Empty(t, records[0].ParentID)
	assert.Contains(t, records[0].Data, `"name":"Writer"`)
	assert.Empty(t, records[0].Error)
	assert.False(t, records[0].StartedAt.IsZero())
	assert.False(t, records[0].EndedAt.IsZero())

	assert.Equal(t, spans[1].SpanID(), records[1].SpanID)
	assert.Equal(t, "function", records[1].SpanType)
	assert.Equal(t, spans[0].SpanID(), records[1].ParentID)
	assert.Contains(t, records[1].Error, "partial results")
}

func TestSQLiteExporter_ReexportReplaces(t *testing.T) {
	e := newTestSQLiteExporter(t)
	trace, spans := finishedTraceAndSpans(t)

	require.NoError(t, e.Export(t.Context(), []any{trace, spans[1]}))
	require.NoError(t, e.Export(t.Context(), []any{trace, spans[1]}))

	traces, err := e.Traces(t.Context())
	require.NoError(t, err)
	assert.Len(t, traces, 1)

	records, err := e.Spans(t.Context(), trace.TraceID())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSQLiteExporter_UnexpectedItem(t *testing.T) {
	e := newTestSQLiteExporter(t)
	trace, _ := finishedTraceAndSpans(t)

	err := e.Export(t.Context(), []any{trace, 42})
	require.Error(t, err)

	// The whole batch is rolled back.
	traces, err := e.Traces(t.Context())
	require.NoError(t, err)
	assert.Empty(t, traces)
}

func TestSQLiteExporter_WithBatchProcessor(t *testing.T) {
	e := newTestSQLiteExporter(t)
	bp := tracing.NewBatchTraceProcessor(tracing.BatchTraceProcessorParams{Exporter: e})

	provider := tracing.NewDefaultTraceProvider()
	provider.SetDisabled(false)
	provider.RegisterProcessor(bp)

	ctx := context.Background()
	trace := provider.CreateTrace(tracing.TraceParams{WorkflowName: "lesson"})
	err := trace.Run(ctx, func(ctx context.Context, tr tracing.Trace) error {
		span := provider.CreateSpan(ctx, &tracing.CustomSpanData{Name: "step"}, "", nil, false)
		return span.Run(ctx, func(context.Context, tracing.Span) error { return nil })
	})
	require.NoError(t, err)
	require.NoError(t, bp.Shutdown(ctx))

	records, err := e.Spans(ctx, trace.TraceID())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "custom", records[0].SpanType)
}
