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

package agents_test

import (
	"context"
	"strings"
	"testing"

	"github.com/nlpodyssey/agentlab/agents"
	"github.com/nlpodyssey/agentlab/agentstesting"
	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDemoLoopRW(t *testing.T) {
	model := agentstesting.NewFakeModel(
		agentstesting.GetTextMessage("hello"),
		agentstesting.GetTextMessage("good"),
	)
	agent := agents.New("test").WithModelInstance(model)

	in := strings.NewReader(strings.Join([]string{"Hi", "", "How are you?", "quit"}, "\n"))
	var sb strings.Builder

	err := agents.DefaultRunner.RunDemoLoopRW(t.Context(), agent, nil, in, &sb)
	require.NoError(t, err)

	assert.Equal(t, "> hello\n> > good\n> ", sb.String())
	assert.Equal(t, agents.Conversation{
		agents.UserMessage("Hi"),
		agents.AssistantMessage("test", "hello"),
		agents.UserMessage("How are you?"),
	}, model.LastRequest().Input)
}

func TestRunDemoLoopRW_ToolsHandoffsAndEOF(t *testing.T) {
	specialistModel := agentstesting.NewFakeModel(
		agentstesting.GetToolCallsMessage(agentstesting.GetFunctionToolCall("lookup", "{}")),
		agentstesting.GetTextMessage("specialist answer"),
		agentstesting.GetTextMessage("still the specialist"),
	)
	specialist := agents.New("specialist").
		WithTools(agentstesting.GetFunctionTool("lookup", "42")).
		WithModelInstance(specialistModel)

	triageModel := agentstesting.NewFakeModel(
		agentstesting.GetToolCallsMessage(agentstesting.GetHandoffToolCall(specialist, "")),
	)
	triage := agents.New("triage").WithHandoffs(specialist).WithModelInstance(triageModel)

	in := strings.NewReader("question\nfollow-up\n")
	var sb strings.Builder

	err := agents.DefaultRunner.RunDemoLoopRW(t.Context(), triage, nil, in, &sb)
	require.NoError(t, err)

	assert.Equal(t,
		"> [tool lookup: 42]\n[agent updated: specialist]\nspecialist answer\n"+
			"> still the specialist\n"+
			"> \n",
		sb.String())
	assert.Equal(t, 1, triageModel.Calls())
}

func TestRunDemoLoopRW_GuardrailBlock(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.GetTextMessage("fine"))
	agent := agents.New("a").
		WithInputGuardrails(agents.InputGuardrail{
			Name: "no_shouting",
			GuardrailFunction: func(_ context.Context, _ *runcontext.Wrapper, _ *agents.Agent, input string) (agents.GuardrailFunctionOutput, error) {
				return agents.GuardrailFunctionOutput{TripwireTriggered: input == strings.ToUpper(input)}, nil
			},
		}).
		WithModelInstance(model)

	in := strings.NewReader("HELLO\nhello\nexit\n")
	var sb strings.Builder

	err := agents.DefaultRunner.RunDemoLoopRW(t.Context(), agent, nil, in, &sb)
	require.NoError(t, err)
	assert.Equal(t, "> [blocked by guardrail \"no_shouting\"]\n> fine\n> ", sb.String())

	// the blocked message is not part of the conversation
	assert.Equal(t, agents.Conversation{agents.UserMessage("hello")}, model.LastRequest().Input)
}
