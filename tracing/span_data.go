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

import "fmt"

// SpanData is the type-specific payload of a span.
type SpanData interface {
	Type() string
	Export() map[string]any
}

// AgentSpanData covers the time an agent is active within a run.
type AgentSpanData struct {
	Name       string
	Handoffs   []string
	Tools      []string
	OutputType string
}

func (AgentSpanData) Type() string { return "agent" }

func (sd AgentSpanData) Export() map[string]any {
	return map[string]any{
		"type":        sd.Type(),
		"name":        sd.Name,
		"handoffs":    sd.Handoffs,
		"tools":       sd.Tools,
		"output_type": nilIfEmpty(sd.OutputType),
	}
}

// FunctionSpanData covers one tool invocation.
type FunctionSpanData struct {
	Name    string
	Input   string
	Output  any
	MCPData map[string]any
}

func (FunctionSpanData) Type() string { return "function" }

func (sd FunctionSpanData) Export() map[string]any {
	var output any
	if sd.Output != nil {
		output = fmt.Sprintf("%+v", sd.Output)
	}
	return map[string]any{
		"type":     sd.Type(),
		"name":     sd.Name,
		"input":    nilIfEmpty(sd.Input),
		"output":   output,
		"mcp_data": sd.MCPData,
	}
}

// GenerationSpanData covers one model backend call, with its token usage.
type GenerationSpanData struct {
	Input       []map[string]any
	Output      []map[string]any
	Model       string
	ModelConfig map[string]any
	Usage       map[string]any
}

func (GenerationSpanData) Type() string { return "generation" }

func (sd GenerationSpanData) Export() map[string]any {
	return map[string]any{
		"type":         sd.Type(),
		"input":        sd.Input,
		"output":       sd.Output,
		"model":        nilIfEmpty(sd.Model),
		"model_config": sd.ModelConfig,
		"usage":        sd.Usage,
	}
}

type HandoffSpanData struct {
	FromAgent string
	ToAgent   string
}

func (HandoffSpanData) Type() string { return "handoff" }

func (sd HandoffSpanData) Export() map[string]any {
	return map[string]any{
		"type":       sd.Type(),
		"from_agent": nilIfEmpty(sd.FromAgent),
		"to_agent":   nilIfEmpty(sd.ToAgent),
	}
}

// CustomSpanData carries a name and a free-form property bag.
type CustomSpanData struct {
	Name string
	Data map[string]any
}

func (CustomSpanData) Type() string { return "custom" }

func (sd CustomSpanData) Export() map[string]any {
	return map[string]any{
		"type": sd.Type(),
		"name": sd.Name,
		"data": sd.Data,
	}
}

type GuardrailSpanData struct {
	Name      string
	Triggered bool
}

func (GuardrailSpanData) Type() string { return "guardrail" }

func (sd GuardrailSpanData) Export() map[string]any {
	return map[string]any{
		"type":      sd.Type(),
		"name":      sd.Name,
		"triggered": sd.Triggered,
	}
}

// MCPListToolsSpanData covers listing the tools of an MCP server.
type MCPListToolsSpanData struct {
	Server string
	Result []string
}

func (MCPListToolsSpanData) Type() string { return "mcp_tools" }

func (sd MCPListToolsSpanData) Export() map[string]any {
	return map[string]any{
		"type":   sd.Type(),
		"server": nilIfEmpty(sd.Server),
		"result": sd.Result,
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
