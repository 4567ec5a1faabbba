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

// Package traceloop forwards agent traces to Traceloop: every trace becomes
// a workflow, every span a task, and generation spans also log their prompt
// and completion.
package traceloop

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nlpodyssey/agentlab/tracing"
	sdk "github.com/traceloop/go-openllmetry/traceloop-sdk"
)

// TracingProcessor implements tracing.Processor to send traces to Traceloop
type TracingProcessor struct {
	client *sdk.Traceloop
	vendor string

	workflows map[string]*sdk.Workflow
	tasks     map[string]*sdk.Task
	llmSpans  map[string]*sdk.LLMSpan
	mu        sync.Mutex
}

type ProcessorParams struct {
	// Traceloop API key. Required.
	APIKey string
	// Traceloop Base URL. Defaults to api.traceloop.com
	BaseURL string
	// Optional vendor reported with prompts. Defaults to "openai".
	Vendor string
}

func NewTracingProcessor(ctx context.Context, params ProcessorParams) (*TracingProcessor, error) {
	client, err := sdk.NewClient(ctx, sdk.Config{
		BaseURL: cmp.Or(params.BaseURL, "api.traceloop.com"),
		APIKey:  params.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Traceloop client: %w", err)
	}
	return newTracingProcessor(client, params.Vendor), nil
}

func newTracingProcessor(client *sdk.Traceloop, vendor string) *TracingProcessor {
	return &TracingProcessor{
		client:    client,
		vendor:    cmp.Or(vendor, "openai"),
		workflows: make(map[string]*sdk.Workflow),
		tasks:     make(map[string]*sdk.Task),
		llmSpans:  make(map[string]*sdk.LLMSpan),
	}
}

func (p *TracingProcessor) OnTraceStart(ctx context.Context, trace tracing.Trace) error {
	if p.client == nil {
		return nil
	}
	workflow := p.client.NewWorkflow(ctx, workflowAttributes(trace))

	p.mu.Lock()
	p.workflows[trace.TraceID()] = workflow
	p.mu.Unlock()
	return nil
}

func (p *TracingProcessor) OnTraceEnd(_ context.Context, trace tracing.Trace) error {
	p.mu.Lock()
	workflow, ok := p.workflows[trace.TraceID()]
	delete(p.workflows, trace.TraceID())
	p.mu.Unlock()

	if ok && workflow != nil {
		workflow.End()
	}
	return nil
}

func (p *TracingProcessor) OnSpanStart(_ context.Context, span tracing.Span) error {
	p.mu.Lock()
	workflow := p.workflows[span.TraceID()]
	p.mu.Unlock()

	if workflow == nil {
		tracing.Logger().Debug("traceloop: no workflow for span", slog.String("span_id", span.SpanID()))
		return nil
	}

	task := workflow.NewTask(taskName(span.SpanData()))

	p.mu.Lock()
	p.tasks[span.SpanID()] = task
	p.mu.Unlock()

	data, ok := span.SpanData().(*tracing.GenerationSpanData)
	if !ok {
		return nil
	}
	llmSpan, err := task.LogPrompt(p.prompt(data))
	if err != nil {
		return fmt.Errorf("traceloop: failed to log prompt: %w", err)
	}

	p.mu.Lock()
	p.llmSpans[span.SpanID()] = &llmSpan
	p.mu.Unlock()
	return nil
}

func (p *TracingProcessor) OnSpanEnd(ctx context.Context, span tracing.Span) error {
	p.mu.Lock()
	task := p.tasks[span.SpanID()]
	llmSpan := p.llmSpans[span.SpanID()]
	delete(p.tasks, span.SpanID())
	delete(p.llmSpans, span.SpanID())
	p.mu.Unlock()

	// Generation output is only known once the span ends.
	if data, ok := span.SpanData().(*tracing.GenerationSpanData); ok && llmSpan != nil {
		llmSpan.LogCompletion(ctx, completion(data), usageOf(data))
	}
	if task != nil {
		task.End()
	}
	return nil
}

func (p *TracingProcessor) Shutdown(ctx context.Context) error {
	if p.client != nil {
		p.client.Shutdown(ctx)
	}
	return nil
}

// ForceFlush does nothing: the Traceloop SDK flushes on its own.
func (p *TracingProcessor) ForceFlush(context.Context) error { return nil }

func workflowAttributes(trace tracing.Trace) sdk.WorkflowAttributes {
	attrs := sdk.WorkflowAttributes{
		Name:                  cmp.Or(trace.Name(), "Agent workflow"),
		AssociationProperties: make(map[string]string),
	}
	if impl, ok := trace.(*tracing.TraceImpl); ok {
		if impl.GroupID != "" {
			attrs.AssociationProperties["group_id"] = impl.GroupID
		}
		for k, v := range impl.Metadata {
			attrs.AssociationProperties[k] = fmt.Sprint(v)
		}
	}
	return attrs
}

func taskName(spanData tracing.SpanData) string {
	switch data := spanData.(type) {
	case nil:
		return "unknown_task"
	case *tracing.AgentSpanData:
		return "agent_" + data.Name
	case *tracing.FunctionSpanData:
		return "function_" + data.Name
	case *tracing.GuardrailSpanData:
		return "guardrail_" + data.Name
	case *tracing.HandoffSpanData:
		return fmt.Sprintf("handoff_%s_to_%s", data.FromAgent, data.ToAgent)
	case *tracing.GenerationSpanData:
		if data.Model != "" {
			return "llm_" + data.Model
		}
		return "llm_generation"
	default:
		return spanData.Type()
	}
}

func (p *TracingProcessor) prompt(data *tracing.GenerationSpanData) sdk.Prompt {
	return sdk.Prompt{
		Vendor:   p.vendor,
		Mode:     "chat",
		Model:    data.Model,
		Messages: convertMessages(data.Input),
	}
}

func completion(data *tracing.GenerationSpanData) sdk.Completion {
	return sdk.Completion{
		Model:    data.Model,
		Messages: convertMessages(data.Output),
	}
}

func usageOf(data *tracing.GenerationSpanData) sdk.Usage {
	prompt := intValue(data.Usage["input_tokens"])
	compl := intValue(data.Usage["output_tokens"])
	total := intValue(data.Usage["total_tokens"])
	if total == 0 {
		total = prompt + compl
	}
	return sdk.Usage{
		PromptTokens:     prompt,
		CompletionTokens: compl,
		TotalTokens:      total,
	}
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func convertMessages(items []map[string]any) []sdk.Message {
	if len(items) == 0 {
		return nil
	}
	messages := make([]sdk.Message, len(items))
	for i, item := range items {
		role, _ := item["role"].(string)
		content, ok := item["content"].(string)
		if !ok && item["content"] != nil {
			content = fmt.Sprint(item["content"])
		}
		messages[i] = sdk.Message{
			Index:   i,
			Role:    cmp.Or(role, "user"),
			Content: content,
		}
	}
	return messages
}
