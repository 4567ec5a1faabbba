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

import "fmt"

// AgentModel is either a Model value or the name of a model to be looked up
// through the run's ModelProvider.
//
// The Model is held by pointer so that AgentModel stays comparable whatever
// the dynamic type of the Model.
type AgentModel struct {
	name  string
	model *Model
}

func NewAgentModelName(modelName string) AgentModel {
	return AgentModel{name: modelName}
}

func NewAgentModel(m Model) AgentModel {
	if m == nil {
		panic("Model cannot be nil")
	}
	return AgentModel{model: &m}
}

func (am AgentModel) IsModel() bool { return am.model != nil }

// ModelName returns the model name, or the empty string for a Model value.
func (am AgentModel) ModelName() string { return am.name }

// Model returns the Model value, or nil for a model name.
func (am AgentModel) Model() Model {
	if am.model == nil {
		return nil
	}
	return *am.model
}

// String returns a label suitable for logs and traces.
func (am AgentModel) String() string {
	if am.model != nil {
		return fmt.Sprintf("%T", *am.model)
	}
	return am.name
}

// resolveModel returns the Model the agent should call. A run-wide model
// overrides the agent's own setting. Names are resolved through the
// provider, which is also asked for its default model ("") when neither is set.
func resolveModel(agent *Agent, runModel AgentModel, hasRunModel bool, provider ModelProvider) (Model, string, error) {
	am := runModel
	if !hasRunModel {
		if !agent.Model.Valid() && provider == nil {
			return nil, "", UserErrorf("agent %s has no model and no model provider is configured", agent.Name)
		}
		am = agent.Model.Value
	}
	if am.IsModel() {
		return am.Model(), am.String(), nil
	}
	if provider == nil {
		return nil, "", UserErrorf("cannot resolve model name %q: no model provider configured", am.ModelName())
	}
	m, err := provider.GetModel(am.ModelName())
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve model %q: %w", am.ModelName(), err)
	}
	return m, am.ModelName(), nil
}
