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

package agents

import (
	"context"
	"strings"

	"github.com/nlpodyssey/agentlab/modelsettings"
	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/nlpodyssey/agentlab/usage"
	"github.com/openai/openai-go/v2/packages/param"
)

// Model is the base interface for calling an LLM.
type Model interface {
	// GetResponse returns the full model response from the model.
	// Transient transport failures should be returned as RetryableError.
	GetResponse(context.Context, ModelRequest) (*ModelResponse, error)
}

// ModelProvider is the base interface for a model provider.
// It is responsible for looking up Models by name.
type ModelProvider interface {
	// GetModel returns a model by name.
	GetModel(modelName string) (Model, error)
}

type ModelRequest struct {
	// The system instructions to use.
	SystemInstructions param.Opt[string]

	// The conversation so far.
	Input Conversation

	// The model settings to use.
	ModelSettings modelsettings.ModelSettings

	// The tools available to the model.
	Tools []ToolDefinition

	// The handoffs available to the model, exposed as tools.
	Handoffs []HandoffDefinition

	// Optional output type. Nil or plain text means free text.
	OutputType OutputTypeInterface

	// The run context of the current run.
	RunContext *runcontext.Wrapper
}

// ToolDefinition is the manifest entry describing a tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
	Strict      bool
}

// HandoffDefinition is the manifest entry describing a handoff target.
type HandoffDefinition struct {
	ToolName        string
	ToolDescription string
	AgentName       string
	Parameters      map[string]any
}

// ToolDefinition returns the handoff as a tool manifest entry.
func (h HandoffDefinition) ToolDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        h.ToolName,
		Description: h.ToolDescription,
		Parameters:  h.Parameters,
		Strict:      true,
	}
}

type ResponseKind string

const (
	ResponseKindText      ResponseKind = "text"
	ResponseKindToolCalls ResponseKind = "tool_calls"
	ResponseKindHandoff   ResponseKind = "handoff"
)

// HandoffCall is the tool call through which the model asks for a handoff.
type HandoffCall struct {
	ToolCall ToolCall
}

// ModelResponse is the outcome of a single model call.
type ModelResponse struct {
	Kind ResponseKind

	// Text produced by the model. For text responses, the terminal candidate.
	Text string

	// Every tool call of the response, in the order the model listed them.
	// For handoff responses it includes the handoff call itself.
	ToolCalls []ToolCall

	// Set when Kind is ResponseKindHandoff: the first handoff call.
	Handoff *HandoffCall

	// Token usage of this call.
	Usage *usage.Usage

	// Optional backend identifier of the response.
	ResponseID string
}

// HandoffToolPrefix is the prefix of every handoff tool name.
const HandoffToolPrefix = "transfer_to_"

// IsHandoffToolName reports whether a tool name designates a handoff, either
// because it is one of the declared handoffs or because it uses the handoff
// naming convention. A declared function tool is never a handoff, whatever
// its name.
func IsHandoffToolName(name string, handoffs []HandoffDefinition, tools []ToolDefinition) bool {
	for _, h := range handoffs {
		if h.ToolName == name {
			return true
		}
	}
	for _, t := range tools {
		if t.Name == name {
			return false
		}
	}
	return strings.HasPrefix(name, HandoffToolPrefix)
}

// NewModelResponse classifies a raw backend reply into a ModelResponse.
func NewModelResponse(text string, calls []ToolCall, handoffs []HandoffDefinition, tools []ToolDefinition, u *usage.Usage) *ModelResponse {
	resp := &ModelResponse{
		Kind:      ResponseKindText,
		Text:      text,
		ToolCalls: calls,
		Usage:     u,
	}
	if resp.Usage == nil {
		resp.Usage = usage.NewUsage()
	}
	if len(calls) == 0 {
		return resp
	}
	resp.Kind = ResponseKindToolCalls
	for _, call := range calls {
		if IsHandoffToolName(call.Name, handoffs, tools) {
			resp.Kind = ResponseKindHandoff
			resp.Handoff = &HandoffCall{ToolCall: call}
			break
		}
	}
	return resp
}
