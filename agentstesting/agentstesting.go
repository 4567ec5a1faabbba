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
// Package agentstesting provides fakes and helpers to test agents without
// contacting a model backend.
package agentstesting

import (
	"context"

	"github.com/nlpodyssey/agentlab/agents"
	"github.com/nlpodyssey/agentlab/runcontext"
)

// GetTextMessage scripts a final text reply.
func GetTextMessage(content string) FakeModelTurnOutput {
	return FakeModelTurnOutput{Text: content}
}

// GetToolCallsMessage scripts a reply requesting the given tool calls.
func GetToolCallsMessage(calls ...agents.ToolCall) FakeModelTurnOutput {
	return FakeModelTurnOutput{ToolCalls: calls}
}

// GetErrorMessage scripts a failing model call.
func GetErrorMessage(err error) FakeModelTurnOutput {
	return FakeModelTurnOutput{Error: err}
}

func GetFunctionToolCall(name string, arguments string) agents.ToolCall {
	return agents.ToolCall{Name: name, Arguments: arguments}
}

// GetHandoffToolCall returns a call to the handoff tool of toAgent, or to
// overrideName when not empty.
func GetHandoffToolCall(toAgent *agents.Agent, overrideName string) agents.ToolCall {
	name := overrideName
	if name == "" {
		name = agents.DefaultHandoffToolName(toAgent)
	}
	return GetFunctionToolCall(name, "{}")
}

func emptyParamsSchema(name string) map[string]any {
	return map[string]any{
		"title":                name + "_args",
		"type":                 "object",
		"required":             []string{},
		"additionalProperties": false,
		"properties":           map[string]any{},
	}
}

// GetFunctionTool returns a tool without parameters always returning returnValue.
func GetFunctionTool(name string, returnValue string) agents.FunctionTool {
	return agents.FunctionTool{
		Name:             name,
		ParamsJSONSchema: emptyParamsSchema(name),
		OnInvokeTool: func(context.Context, *runcontext.Wrapper, string) (any, error) {
			return returnValue, nil
		},
	}
}

// GetFunctionToolErr returns a tool without parameters always failing with returnErr.
func GetFunctionToolErr(name string, returnErr error) agents.FunctionTool {
	return agents.FunctionTool{
		Name:             name,
		ParamsJSONSchema: emptyParamsSchema(name),
		OnInvokeTool: func(context.Context, *runcontext.Wrapper, string) (any, error) {
			return nil, returnErr
		},
	}
}

// GetFunctionToolFunc returns a tool without parameters invoking fn.
func GetFunctionToolFunc(name string, fn func(context.Context) (any, error)) agents.FunctionTool {
	return agents.FunctionTool{
		Name:             name,
		ParamsJSONSchema: emptyParamsSchema(name),
		OnInvokeTool: func(ctx context.Context, _ *runcontext.Wrapper, _ string) (any, error) {
			return fn(ctx)
		},
	}
}
