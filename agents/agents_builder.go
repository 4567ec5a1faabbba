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
	"github.com/nlpodyssey/agentlab/modelsettings"
	"github.com/openai/openai-go/v2/packages/param"
)

// New creates a new Agent with the given name.
//
// The returned Agent can be further configured using the builder methods.
func New(name string) *Agent {
	return &Agent{Name: name}
}

func (a *Agent) WithInstructions(instr string) *Agent {
	a.Instructions = InstructionsStr(instr)
	return a
}

// WithInstructionsFunc sets instructions computed at every turn.
func (a *Agent) WithInstructionsFunc(fn InstructionsFunc) *Agent {
	a.Instructions = fn
	return a
}

func (a *Agent) WithHandoffDescription(desc string) *Agent {
	a.HandoffDescription = desc
	return a
}

// WithHandoffs replaces the handoff targets.
func (a *Agent) WithHandoffs(agents ...*Agent) *Agent {
	a.Handoffs = append([]*Agent{}, agents...)
	return a
}

// WithModel sets the model to use by name.
func (a *Agent) WithModel(name string) *Agent {
	a.Model = param.NewOpt(NewAgentModelName(name))
	return a
}

// WithModelInstance sets the model using a Model implementation.
func (a *Agent) WithModelInstance(m Model) *Agent {
	a.Model = param.NewOpt(NewAgentModel(m))
	return a
}

func (a *Agent) WithModelSettings(settings modelsettings.ModelSettings) *Agent {
	a.ModelSettings = settings
	return a
}

// WithTools replaces the tool list.
func (a *Agent) WithTools(t ...Tool) *Agent {
	a.Tools = append([]Tool{}, t...)
	return a
}

func (a *Agent) AddTool(t Tool) *Agent {
	a.Tools = append(a.Tools, t)
	return a
}

func (a *Agent) WithMCPServers(servers ...MCPServer) *Agent {
	a.MCPServers = append([]MCPServer{}, servers...)
	return a
}

func (a *Agent) WithInputGuardrails(gr ...InputGuardrail) *Agent {
	a.InputGuardrails = append([]InputGuardrail{}, gr...)
	return a
}

func (a *Agent) WithOutputGuardrails(gr ...OutputGuardrail) *Agent {
	a.OutputGuardrails = append([]OutputGuardrail{}, gr...)
	return a
}

func (a *Agent) WithOutputType(outputType OutputTypeInterface) *Agent {
	a.OutputType = outputType
	return a
}
