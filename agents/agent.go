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
	"fmt"

	"github.com/nlpodyssey/agentlab/modelsettings"
	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/nlpodyssey/agentlab/util/transforms"
	"github.com/openai/openai-go/v2/packages/param"
)

// An Agent is a language model configured with instructions, tools, guardrails and handoffs.
//
// Agents are shared by pointer and never mutated by the Runner. The handoff
// graph may contain cycles; runs are bounded by RunConfig.MaxHandoffs.
type Agent struct {
	// The name of the agent, used for attribution, logging and handoff tool names.
	Name string

	// Optional system directive. Resolved every time the agent takes a turn.
	Instructions InstructionsGetter

	// Optional description of the agent, shown to other agents' models in
	// their handoff manifest so they know when to transfer to it.
	HandoffDescription string

	// The model implementation or model name to use when invoking the LLM.
	// When missing, the run-wide model or the provider default is used.
	Model param.Opt[AgentModel]

	// Configures model-specific tuning parameters (e.g. temperature, top_p).
	ModelSettings modelsettings.ModelSettings

	// The tools that the agent can use. Names must be unique, MCP tools included.
	Tools []Tool

	// Optional MCP servers whose tools are added to Tools at run time. The
	// servers must be connected by the caller.
	MCPServers []MCPServer

	// Optional output type. If nil, the output is the model's free text.
	OutputType OutputTypeInterface

	// Agents this agent may transfer control to. Empty means the agent is terminal.
	Handoffs []*Agent

	// Checks run on the user input before the first model call. They only
	// run when this agent starts the run.
	InputGuardrails []InputGuardrail

	// Checks run on the final output. They only run when this agent produces
	// the final output.
	OutputGuardrails []OutputGuardrail
}

// GetSystemPrompt resolves the agent's instructions.
func (a *Agent) GetSystemPrompt(ctx context.Context, rc *runcontext.Wrapper) (param.Opt[string], error) {
	if a.Instructions == nil {
		return param.Null[string](), nil
	}
	v, err := a.Instructions.GetInstructions(ctx, rc, a)
	if err != nil {
		return param.Null[string](), err
	}
	return param.NewOpt(v), nil
}

// GetAllTools returns the agent's own tools followed by the tools of its MCP servers.
func (a *Agent) GetAllTools(ctx context.Context) ([]Tool, error) {
	if len(a.MCPServers) == 0 {
		return a.Tools, nil
	}
	mcpTools, err := MCPFunctionTools(ctx, a.MCPServers, a)
	if err != nil {
		return nil, err
	}
	return append(a.Tools[:len(a.Tools):len(a.Tools)], mcpTools...), nil
}

type AgentAsToolParams struct {
	// Optional name of the tool. If not provided, the agent's name will be used.
	ToolName string

	// Optional description of the tool, which should indicate what it does and when to use it.
	ToolDescription string

	// Optional function that extracts the output from the agent's run.
	// If not provided, the final output is used.
	CustomOutputExtractor func(*RunResult) (string, error)
}

// AsTool transforms this agent into a tool, callable by other agents.
//
// This is different from handoffs in two ways:
//  1. In handoffs, the new agent receives the conversation history. In this tool, the new agent
//     receives generated input.
//  2. In handoffs, the new agent takes over the conversation. In this tool, the new agent is
//     called as a tool, and the conversation is continued by the original agent.
//
// The nested run shares the caller's run context, so token usage accumulates
// in the same Wrapper.
func (a *Agent) AsTool(params AgentAsToolParams) FunctionTool {
	name := params.ToolName
	if name == "" {
		name = transforms.TransformStringFunctionStyle(a.Name)
	}

	type argsType struct {
		Input string `json:"input" jsonschema:"description=The input to send to the agent"`
	}

	runAgent := func(ctx context.Context, args argsType) (string, error) {
		rc, _ := runcontext.FromContext(ctx)
		result, err := DefaultRunner.Run(ctx, a, args.Input, rc)
		if err != nil {
			return "", fmt.Errorf("failed to run agent %s as tool: %w", a.Name, err)
		}
		if params.CustomOutputExtractor != nil {
			return params.CustomOutputExtractor(result)
		}
		return stringifyToolOutput(result.FinalOutput), nil
	}

	return NewFunctionTool(name, params.ToolDescription, runAgent)
}
