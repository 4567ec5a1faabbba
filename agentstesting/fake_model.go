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
package agentstesting

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nlpodyssey/agentlab/agents"
	"github.com/nlpodyssey/agentlab/usage"
)

var ErrNoScriptedOutput = errors.New("FakeModel: no scripted output left")

// FakeModel is a Model replaying scripted turn outputs, one per call.
// It records every request it receives. It is safe for concurrent use.
type FakeModel struct {
	mu             sync.Mutex
	turnOutputs    []FakeModelTurnOutput
	requests       []agents.ModelRequest
	hardcodedUsage *usage.Usage
}

// FakeModelTurnOutput is the scripted reply to one model call.
type FakeModelTurnOutput struct {
	Text      string
	ToolCalls []agents.ToolCall
	Error     error

	// Optional latency. The call returns ctx.Err() if ctx expires first.
	Delay time.Duration

	// Optional usage, overriding the hardcoded usage of the model.
	Usage *usage.Usage
}

func NewFakeModel(outputs ...FakeModelTurnOutput) *FakeModel {
	return &FakeModel{turnOutputs: outputs}
}

// SetHardcodedUsage sets the usage reported by every call without its own.
func (m *FakeModel) SetHardcodedUsage(input, output, total uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hardcodedUsage = usage.FromCounts(input, output, total)
}

func (m *FakeModel) SetNextOutput(output FakeModelTurnOutput) {
	m.AddMultipleTurnOutputs(output)
}

func (m *FakeModel) AddMultipleTurnOutputs(outputs ...FakeModelTurnOutput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnOutputs = append(m.turnOutputs, outputs...)
}

// Calls returns the number of GetResponse calls received so far.
func (m *FakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received so far.
func (m *FakeModel) Requests() []agents.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}

// LastRequest returns the most recent request, or the zero value.
func (m *FakeModel) LastRequest() agents.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return agents.ModelRequest{}
	}
	return m.requests[len(m.requests)-1]
}

// Remaining returns the number of scripted outputs not consumed yet.
func (m *FakeModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turnOutputs)
}

func (m *FakeModel) next(req agents.ModelRequest) (FakeModelTurnOutput, *usage.Usage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.Input = req.Input.Clone()
	m.requests = append(m.requests, req)
	if len(m.turnOutputs) == 0 {
		return FakeModelTurnOutput{}, nil, false
	}
	v := m.turnOutputs[0]
	m.turnOutputs = m.turnOutputs[1:]
	return v, m.hardcodedUsage, true
}

func (m *FakeModel) GetResponse(ctx context.Context, req agents.ModelRequest) (*agents.ModelResponse, error) {
	output, hardcoded, ok := m.next(req)
	if !ok {
		return nil, ErrNoScriptedOutput
	}

	if output.Delay > 0 {
		timer := time.NewTimer(output.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if output.Error != nil {
		return nil, output.Error
	}

	calls := slices.Clone(output.ToolCalls)
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + uuid.NewString()
		}
	}

	u := output.Usage
	if u == nil && hardcoded != nil {
		snap := hardcoded.Snapshot()
		u = usage.FromCounts(snap.InputTokens, snap.OutputTokens, snap.TotalTokens)
	}
	resp := agents.NewModelResponse(output.Text, calls, req.Handoffs, req.Tools, u)
	resp.ResponseID = "resp_" + uuid.NewString()
	return resp, nil
}

// FakeModelProvider resolves model names to registered models.
type FakeModelProvider struct {
	Models map[string]agents.Model
	// Returned for names not found in Models, when not nil.
	Default agents.Model
}

func (p FakeModelProvider) GetModel(name string) (agents.Model, error) {
	if m, ok := p.Models[name]; ok {
		return m, nil
	}
	if p.Default != nil {
		return p.Default, nil
	}
	return nil, agents.UserErrorf("unknown model %q", name)
}
