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
	"context"
	"errors"
	"testing"

	"github.com/nlpodyssey/agentlab/tracing"
	"github.com/nlpodyssey/agentlab/tracing/tracingtesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type m = map[string]any

func TestSimpleTracing(t *testing.T) {
	tracingtesting.Setup(t)
	ctx := t.Context()

	x := tracing.NewTrace(ctx, tracing.TraceParams{WorkflowName: "test"})
	require.NoError(t, x.Start(ctx, false))

	span1 := tracing.NewAgentSpan(ctx, tracing.AgentSpanParams{Name: "agent_1", SpanID: "span_1", Parent: x})
	require.NoError(t, span1.Start(ctx, false))
	require.NoError(t, span1.Finish(ctx, false))

	span2 := tracing.NewCustomSpan(ctx, tracing.CustomSpanParams{Name: "custom_1", SpanID: "span_2", Parent: x})
	require.NoError(t, span2.Start(ctx, false))

	span3 := tracing.NewCustomSpan(ctx, tracing.CustomSpanParams{Name: "custom_2", SpanID: "span_3", Parent: span2})
	require.NoError(t, span3.Start(ctx, false))
	require.NoError(t, span3.Finish(ctx, false))

	require.NoError(t, span2.Finish(ctx, false))
	require.NoError(t, x.Finish(ctx, false))

	assert.Equal(t, []m{
		{
			"workflow_name": "test",
			"children": []m{
				{"type": "agent", "id": "span_1", "data": m{"name": "agent_1"}},
				{
					"type": "custom",
					"id":   "span_2",
					"data": m{"name": "custom_1"},
					"children": []m{
						{"type": "custom", "id": "span_3", "data": m{"name": "custom_2"}},
					},
				},
			},
		},
	}, tracingtesting.FetchNormalizedSpans(t, true, false, false))
}

func TestRunTraceNestsSpansThroughContext(t *testing.T) {
	tracingtesting.Setup(t)

	err := tracing.RunTrace(
		t.Context(), tracing.TraceParams{WorkflowName: "geography-quiz", TraceID: "trace_123", GroupID: "456"},
		func(ctx context.Context, tr tracing.Trace) error {
			assert.Same(t, tr, tracing.GetCurrentTrace(ctx))

			err := tracing.FunctionSpan(
				ctx, tracing.FunctionSpanParams{Name: "lookup_capital", Input: `{"country":"France"}`, SpanID: "span_1"},
				func(ctx context.Context, s tracing.Span) error {
					assert.Same(t, s, tracing.GetCurrentSpan(ctx))
					s.SpanData().(*tracing.FunctionSpanData).Output = "Paris"
					return tracing.GuardrailSpan(
						ctx, tracing.GuardrailSpanParams{Name: "check", SpanID: "span_1_inner"},
						func(context.Context, tracing.Span) error { return nil },
					)
				},
			)
			if err != nil {
				return err
			}
			assert.Nil(t, tracing.GetCurrentSpan(ctx))

			return tracing.HandoffSpan(
				ctx, tracing.HandoffSpanParams{FromAgent: "a", ToAgent: "b", SpanID: "span_2"},
				func(context.Context, tracing.Span) error { return nil },
			)
		},
	)
	require.NoError(t, err)

	assert.Equal(t, []m{
		{
			"id":            "trace_123",
			"workflow_name": "geography-quiz",
			"group_id":      "456",
			"children": []m{
				{
					"type": "function",
					"id":   "span_1",
					"data": m{"name": "lookup_capital", "input": `{"country":"France"}`, "output": "Paris"},
					"children": []m{
						{"type": "guardrail", "id": "span_1_inner", "data": m{"name": "check", "triggered": false}},
					},
				},
				{"type": "handoff", "id": "span_2", "data": m{"from_agent": "a", "to_agent": "b"}},
			},
		},
	}, tracingtesting.FetchNormalizedSpans(t, true, true, false))

	assert.Equal(t, []tracingtesting.SpanProcessorEvent{
		tracingtesting.TraceStart,
		tracingtesting.SpanStart,
		tracingtesting.SpanStart,
		tracingtesting.SpanEnd,
		tracingtesting.SpanEnd,
		tracingtesting.SpanStart,
		tracingtesting.SpanEnd,
		tracingtesting.TraceEnd,
	}, tracingtesting.FetchEvents())
}

func TestSpanErrorIsExported(t *testing.T) {
	tracingtesting.Setup(t)

	errBoom := errors.New("boom")
	err := tracing.RunTrace(t.Context(), tracing.TraceParams{WorkflowName: "test"},
		func(ctx context.Context, _ tracing.Trace) error {
			return tracing.CustomSpan(ctx, tracing.CustomSpanParams{Name: "c", SpanID: "span_c"},
				func(_ context.Context, s tracing.Span) error {
					s.SetError(tracing.SpanError{Message: "failed", Data: map[string]any{"k": "v"}})
					return errBoom
				})
		})
	require.ErrorIs(t, err, errBoom)

	spans := tracingtesting.FetchOrderedSpans(false)
	require.Len(t, spans, 1)
	assert.Equal(t, map[string]any{"message": "failed", "data": map[string]any{"k": "v"}}, spans[0].Export()["error"])
}

func TestDisabledTracingRecordsNothing(t *testing.T) {
	tracingtesting.Setup(t)
	tracing.SetTracingDisabled(true)
	t.Cleanup(func() { tracing.SetTracingDisabled(false) })

	err := tracing.RunTrace(t.Context(), tracing.TraceParams{WorkflowName: "test"},
		func(ctx context.Context, tr tracing.Trace) error {
			assert.IsType(t, &tracing.NoOpTrace{}, tr)
			return tracing.AgentSpan(ctx, tracing.AgentSpanParams{Name: "a"},
				func(_ context.Context, s tracing.Span) error {
					assert.IsType(t, &tracing.NoOpSpan{}, s)
					return nil
				})
		})
	require.NoError(t, err)
	tracingtesting.RequireNoTraces(t)
}

func TestTraceParamsDisabled(t *testing.T) {
	tracingtesting.Setup(t)

	tr := tracing.NewTrace(t.Context(), tracing.TraceParams{WorkflowName: "test", Disabled: true})
	assert.IsType(t, &tracing.NoOpTrace{}, tr)
	assert.Nil(t, tr.Export())
}

func TestSpanWithoutTraceIsNoOp(t *testing.T) {
	tracingtesting.Setup(t)

	span := tracing.NewCustomSpan(t.Context(), tracing.CustomSpanParams{Name: "orphan"})
	assert.IsType(t, &tracing.NoOpSpan{}, span)
	require.NoError(t, span.Run(t.Context(), func(context.Context, tracing.Span) error { return nil }))
	tracingtesting.RequireNoSpans(t)
}

type failingProcessor struct {
	tracingtesting.SpanProcessorForTests
}

func (failingProcessor) OnSpanStart(context.Context, tracing.Span) error {
	return errors.New("sink unavailable")
}

func (failingProcessor) OnSpanEnd(context.Context, tracing.Span) error {
	panic("sink exploded")
}

func TestProcessorFailuresDoNotAffectTracedCode(t *testing.T) {
	tracingtesting.Setup(t)
	tracing.SetTraceProcessors([]tracing.Processor{
		&failingProcessor{},
		tracingtesting.SpanProcessorTesting(),
	})

	called := false
	err := tracing.RunTrace(t.Context(), tracing.TraceParams{WorkflowName: "test"},
		func(ctx context.Context, _ tracing.Trace) error {
			return tracing.CustomSpan(ctx, tracing.CustomSpanParams{Name: "c"},
				func(context.Context, tracing.Span) error {
					called = true
					return nil
				})
		})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Len(t, tracingtesting.FetchOrderedSpans(false), 1)
}

func TestGenIDs(t *testing.T) {
	assert.Regexp(t, `^trace_[0-9a-f]{32}$`, tracing.GenTraceID())
	assert.Regexp(t, `^span_[0-9a-f]{24}$`, tracing.GenSpanID())
	assert.Regexp(t, `^group_[0-9a-f]{24}$`, tracing.GenGroupID())
}
