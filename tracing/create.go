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

import "context"

type TraceParams struct {
	// The name of the logical app or workflow, e.g. "content_pipeline".
	WorkflowName string

	// Optional trace ID. If empty, one is generated with GenTraceID.
	TraceID string

	// Optional grouping identifier to link multiple traces from the same
	// conversation or process.
	GroupID string

	// Optional additional metadata to attach to the trace.
	Metadata map[string]any

	// If true, a Trace is returned but it will not be recorded.
	Disabled bool
}

// NewTrace creates a new trace.
//
// The trace is not started; use RunTrace, Trace.Run, or call Trace.Start
// and Trace.Finish manually.
func NewTrace(ctx context.Context, params TraceParams) Trace {
	if GetTraceProvider().GetCurrentTrace(ctx) != nil {
		Logger().Warn("Trace already exists. Creating a new trace, but this is probably a mistake.")
	}
	return GetTraceProvider().CreateTrace(params)
}

// RunTrace creates a trace, makes it current for the duration of fn, then
// finishes it. Agent runs started inside fn are attributed to this trace.
func RunTrace(ctx context.Context, params TraceParams, fn func(context.Context, Trace) error) error {
	return NewTrace(ctx, params).Run(ctx, fn)
}

// GetCurrentTrace returns the currently active trace, if present.
func GetCurrentTrace(ctx context.Context) Trace {
	return GetTraceProvider().GetCurrentTrace(ctx)
}

// GetCurrentSpan returns the currently active span, if present.
func GetCurrentSpan(ctx context.Context) Span {
	return GetTraceProvider().GetCurrentSpan(ctx)
}

// Every XSpanParams type below accepts these optional fields:
//   - SpanID: if empty, one is generated with GenSpanID.
//   - Parent: a Trace or Span; if nil, the current span or trace of ctx is used.
//   - Disabled: if true, the span is not recorded.

type AgentSpanParams struct {
	Name       string
	Handoffs   []string
	Tools      []string
	OutputType string
	SpanID     string
	Parent     any
	Disabled   bool
}

func NewAgentSpan(ctx context.Context, params AgentSpanParams) Span {
	return GetTraceProvider().CreateSpan(ctx, &AgentSpanData{
		Name:       params.Name,
		Handoffs:   params.Handoffs,
		Tools:      params.Tools,
		OutputType: params.OutputType,
	}, params.SpanID, params.Parent, params.Disabled)
}

func AgentSpan(ctx context.Context, params AgentSpanParams, fn func(context.Context, Span) error) error {
	return NewAgentSpan(ctx, params).Run(ctx, fn)
}

type FunctionSpanParams struct {
	Name     string
	Input    string
	Output   string
	SpanID   string
	Parent   any
	Disabled bool
}

func NewFunctionSpan(ctx context.Context, params FunctionSpanParams) Span {
	spanData := &FunctionSpanData{
		Name:  params.Name,
		Input: params.Input,
	}
	if params.Output != "" {
		spanData.Output = params.Output
	}
	return GetTraceProvider().CreateSpan(ctx, spanData, params.SpanID, params.Parent, params.Disabled)
}

func FunctionSpan(ctx context.Context, params FunctionSpanParams, fn func(context.Context, Span) error) error {
	return NewFunctionSpan(ctx, params).Run(ctx, fn)
}

type GenerationSpanParams struct {
	Input       []map[string]any
	Output      []map[string]any
	Model       string
	ModelConfig map[string]any
	Usage       map[string]any
	SpanID      string
	Parent      any
	Disabled    bool
}

// NewGenerationSpan creates a span capturing the details of a model call:
// input messages, outputs, model name and configuration, and usage.
func NewGenerationSpan(ctx context.Context, params GenerationSpanParams) Span {
	return GetTraceProvider().CreateSpan(ctx, &GenerationSpanData{
		Input:       params.Input,
		Output:      params.Output,
		Model:       params.Model,
		ModelConfig: params.ModelConfig,
		Usage:       params.Usage,
	}, params.SpanID, params.Parent, params.Disabled)
}

func GenerationSpan(ctx context.Context, params GenerationSpanParams, fn func(context.Context, Span) error) error {
	return NewGenerationSpan(ctx, params).Run(ctx, fn)
}

type HandoffSpanParams struct {
	FromAgent string
	ToAgent   string
	SpanID    string
	Parent    any
	Disabled  bool
}

func NewHandoffSpan(ctx context.Context, params HandoffSpanParams) Span {
	return GetTraceProvider().CreateSpan(ctx, &HandoffSpanData{
		FromAgent: params.FromAgent,
		ToAgent:   params.ToAgent,
	}, params.SpanID, params.Parent, params.Disabled)
}

func HandoffSpan(ctx context.Context, params HandoffSpanParams, fn func(context.Context, Span) error) error {
	return NewHandoffSpan(ctx, params).Run(ctx, fn)
}

type CustomSpanParams struct {
	Name     string
	Data     map[string]any
	SpanID   string
	Parent   any
	Disabled bool
}

// NewCustomSpan creates a new custom span, to which you can add your own metadata.
func NewCustomSpan(ctx context.Context, params CustomSpanParams) Span {
	return GetTraceProvider().CreateSpan(ctx, &CustomSpanData{
		Name: params.Name,
		Data: params.Data,
	}, params.SpanID, params.Parent, params.Disabled)
}

func CustomSpan(ctx context.Context, params CustomSpanParams, fn func(context.Context, Span) error) error {
	return NewCustomSpan(ctx, params).Run(ctx, fn)
}

type GuardrailSpanParams struct {
	Name      string
	Triggered bool
	SpanID    string
	Parent    any
	Disabled  bool
}

func NewGuardrailSpan(ctx context.Context, params GuardrailSpanParams) Span {
	return GetTraceProvider().CreateSpan(ctx, &GuardrailSpanData{
		Name:      params.Name,
		Triggered: params.Triggered,
	}, params.SpanID, params.Parent, params.Disabled)
}

func GuardrailSpan(ctx context.Context, params GuardrailSpanParams, fn func(context.Context, Span) error) error {
	return NewGuardrailSpan(ctx, params).Run(ctx, fn)
}

type MCPToolsSpanParams struct {
	Server   string
	Result   []string
	SpanID   string
	Parent   any
	Disabled bool
}

func NewMCPToolsSpan(ctx context.Context, params MCPToolsSpanParams) Span {
	return GetTraceProvider().CreateSpan(ctx, &MCPListToolsSpanData{
		Server: params.Server,
		Result: params.Result,
	}, params.SpanID, params.Parent, params.Disabled)
}

func MCPToolsSpan(ctx context.Context, params MCPToolsSpanParams, fn func(context.Context, Span) error) error {
	return NewMCPToolsSpan(ctx, params).Run(ctx, fn)
}
