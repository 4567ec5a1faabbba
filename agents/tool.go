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

	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/openai/openai-go/v2/packages/param"
)

// A Tool that can be used in an agent.
type Tool interface {
	ToolName() string
	isTool()
}

// FunctionTool is a tool that wraps a function.
type FunctionTool struct {
	// The name of the tool, as shown to the LLM. Generally the name of the function.
	Name string

	// A description of the tool, as shown to the LLM.
	Description string

	// The JSON schema for the tool's parameters. Fields listed in "required"
	// must be present in the arguments.
	ParamsJSONSchema map[string]any

	// A function that invokes the tool with the given context and parameters.
	// The arguments are the JSON string produced by the LLM, already validated
	// against ParamsJSONSchema.
	//
	// A returned string is sent to the LLM unchanged; other values are
	// JSON-encoded. A returned error is reported to the LLM, unless it wraps
	// ErrFatalTool, in which case the run fails.
	OnInvokeTool func(ctx context.Context, contextWrapper *runcontext.Wrapper, arguments string) (any, error)

	// Whether the JSON schema is in strict mode.
	// Defaults to true if omitted.
	StrictJSONSchema param.Opt[bool]
}

func (t FunctionTool) ToolName() string { return t.Name }

func (FunctionTool) isTool() {}
