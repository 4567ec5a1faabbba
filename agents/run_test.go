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
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nlpodyssey/agentlab/agents"
	"github.com/nlpodyssey/agentlab/agentstesting"
	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SimpleReply(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.GetTextMessage("Hello! How can I help?"))
	agent := agents.New("assistant").
		WithInstructions("You are a helpful assistant.").
		WithModelInstance(model)

	result, err := agents.Run(t.Context(), agent, "Hi", nil)
	require.NoError(t, err)

	assert.Equal(t, "Hello! How can I help?", result.FinalOutput)
	assert.Same(t, agent, result.LastAgent)
	assert.Equal(t, agents.Conversation{agents.UserMessage("Hi")}, result.Input)
	assert.Equal(t, agents.Conversation{
		agents.AssistantMessage("assistant", "Hello! How can I help?"),
	}, result.NewMessages)
	assert.Equal(t, append(result.Input.Clone(), result.NewMessages...), result.History)
	assert.Len(t, result.RawResponses, 1)
	assert.Zero(t, result.HandoffCount)
	assert.Zero(t, result.OutputRepairs)

	req := model.LastRequest()
	assert.Equal(t, param.NewOpt("You are a helpful assistant."), req.SystemInstructions)
	assert.Equal(t, agents.Conversation{agents.UserMessage("Hi")}, req.Input)
	assert.Empty(t, req.Tools)
	assert.Empty(t, req.Handoffs)
}

func TestRun_NilAgent(t *testing.T) {
	_, err := agents.Run(t.Context(), nil, "Hi", nil)
	assert.ErrorAs(t, err, &agents.UserError{})
}

func TestRun_NoModel(t *testing.T) {
	_, err := agents.Run(t.Context(), agents.New("orphan"), "Hi", nil)
	assert.ErrorAs(t, err, &agents.UserError{})
	assert.Equal(t, agents.OutcomeFailed, agents.OutcomeOf(err))
}

func TestRun_DynamicInstructions(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.GetTextMessage("ok"))
	agent := agents.New("assistant").
		WithInstructionsFunc(func(_ context.Context, rc *runcontext.Wrapper, a *agents.Agent) (string, error) {
			user, _ := runcontext.ContextAs[string](rc)
			return "You are " + a.Name + ", talking to " + user + ".", nil
		}).
		WithModelInstance(model)

	_, err := agents.Run(t.Context(), agent, "Hi", runcontext.NewWrapper("Ada"))
	require.NoError(t, err)
	assert.Equal(t, "You are assistant, talking to Ada.", model.LastRequest().SystemInstructions.Value)
}

func TestRun_ModelResolvedThroughProvider(t *testing.T) {
	fast := agentstesting.NewFakeModel(agentstesting.GetTextMessage("from fast"))
	runner := agents.Runner{Config: agents.RunConfig{
		ModelProvider: agentstesting.FakeModelProvider{
			Models: map[string]agents.Model{"fast": fast},
		},
	}}

	result, err := runner.Run(t.Context(), agents.New("a").WithModel("fast"), "Hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "from fast", result.FinalOutput)

	_, err = runner.Run(t.Context(), agents.New("a").WithModel("slow"), "Hi", nil)
	assert.ErrorAs(t, err, &agents.UserError{})
}

func TestRun_RunModelOverridesAgentModel(t *testing.T) {
	agentModel := agentstesting.NewFakeModel(agentstesting.GetTextMessage("agent model"))
	runModel := agentstesting.NewFakeModel(agentstesting.GetTextMessage("run model"))
	runner := agents.Runner{Config: agents.RunConfig{
		Model: param.NewOpt(agents.NewAgentModel(runModel)),
	}}

	result, err := runner.Run(t.Context(), agents.New("a").WithModelInstance(agentModel), "Hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "run model", result.FinalOutput)
	assert.Zero(t, agentModel.Calls())
}

func TestRun_ToolRoundTrip(t *testing.T) {
	model := agentstesting.NewFakeModel(
		agentstesting.GetToolCallsMessage(agents.ToolCall{ID: "call_1", Name: "add", Arguments: `{"a":2,"b":3}`}),
		agentstesting.GetTextMessage("2 + 3 = 5"),
	)
	agent := agents.New("calculator").WithTools(addTool()).WithModelInstance(model)

	result, err := agents.Run(t.Context(), agent, "What is 2 + 3?", nil)
	require.NoError(t, err)
	assert.Equal(t, "2 + 3 = 5", result.FinalOutput)

	call := agents.ToolCall{ID: "call_1", Name: "add", Arguments: `{"a":2,"b":3}`}
	assert.Equal(t, agents.Conversation{
		agents.AssistantMessage("calculator", "", call),
		agents.ToolResultMessage("calculator", call, "5", false),
		agents.AssistantMessage("calculator", "2 + 3 = 5"),
	}, result.NewMessages)

	requests := model.Requests()
	require.Len(t, requests, 2)
	require.Len(t, requests[0].Tools, 1)
	assert.Equal(t, "add", requests[0].Tools[0].Name)
	assert.Equal(t, result.History[:3], requests[1].Input)
}

func TestRun_ToolFailuresAreReportedToTheModel(t *testing.T) {
	model := agentstesting.NewFakeModel(
		agentstesting.GetToolCallsMessage(
			agents.ToolCall{ID: "1", Name: "missing", Arguments: "{}"},
			agents.ToolCall{ID: "2", Name: "add", Arguments: `{"a":"x"}`},
			agents.ToolCall{ID: "3", Name: "broken", Arguments: "{}"},
		),
		agentstesting.GetTextMessage("sorry"),
	)
	agent := agents.New("a").
		WithTools(addTool(), agentstesting.GetFunctionToolErr("broken", errors.New("disk full"))).
		WithModelInstance(model)

	result, err := agents.Run(t.Context(), agent, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "sorry", result.FinalOutput)

	results := result.History.ToolResults()
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.IsError)
	}
	assert.Equal(t, `Error: unknown tool "missing"`, results[0].Content)
	assert.Contains(t, results[1].Content, `Error: invalid arguments for tool "add"`)
	assert.Equal(t, `Error: tool "broken" failed: disk full`, results[2].Content)
}

func TestRun_FatalToolError(t *testing.T) {
	model := agentstesting.NewFakeModel(
		agentstesting.GetToolCallsMessage(agents.ToolCall{ID: "1", Name: "charge", Arguments: "{}"}),
		agentstesting.GetTextMessage("never reached"),
	)
	fatal := fmt.Errorf("payment gateway unreachable: %w", agents.ErrFatalTool)
	agent := agents.New("a").
		WithTools(agentstesting.GetFunctionToolErr("charge", fatal)).
		WithModelInstance(model)

	_, err := agents.Run(t.Context(), agent, "pay", nil)
	assert.ErrorAs(t, err, &agents.ExecutionError{})
	assert.ErrorIs(t, err, agents.ErrFatalTool)
	assert.Equal(t, 1, model.Calls())
}

func TestRun_ToolResultsKeepListedOrder(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			model := agentstesting.NewFakeModel(
				agentstesting.GetToolCallsMessage(
					agents.ToolCall{ID: "1", Name: "slow", Arguments: "{}"},
					agents.ToolCall{ID: "2", Name: "fast", Arguments: "{}"},
				),
				agentstesting.GetTextMessage("done"),
			)
			slow := agentstesting.GetFunctionToolFunc("slow", func(ctx context.Context) (any, error) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(30 * time.Millisecond):
					return "slow result", nil
				}
			})
			fast := agentstesting.GetFunctionTool("fast", "fast result")
			agent := agents.New("a").WithTools(slow, fast).WithModelInstance(model)

			runner := agents.Runner{Config: agents.RunConfig{ParallelToolCalls: parallel}}
			result, err := runner.Run(t.Context(), agent, "go", nil)
			require.NoError(t, err)

			results := result.History.ToolResults()
			require.Len(t, results, 2)
			assert.Equal(t, "1", results[0].ToolCallID)
			assert.Equal(t, "slow result", results[0].Content)
			assert.Equal(t, "2", results[1].ToolCallID)
			assert.Equal(t, "fast result", results[1].Content)
		})
	}
}

func TestRun_ParallelToolCallsRunConcurrently(t *testing.T) {
	started := make(chan struct{})
	waiter := agentstesting.GetFunctionToolFunc("waiter", func(ctx context.Context) (any, error) {
		select {
		case <-started:
			return "met", nil
		case <-time.After(5 * time.Second):
			return "alone", nil
		}
	})
	signaler := agentstesting.GetFunctionToolFunc("signaler", func(context.Context) (any, error) {
		close(started)
		return "signaled", nil
	})

	model := agentstesting.NewFakeModel(
		agentstesting.GetToolCallsMessage(
			agents.ToolCall{ID: "1", Name: "waiter", Arguments: "{}"},
			agents.ToolCall{ID: "2", Name: "signaler", Arguments: "{}"},
		),
		agentstesting.GetTextMessage("done"),
	)
	agent := agents.New("a").WithTools(waiter, signaler).WithModelInstance(model)

	runner := agents.Runner{Config: agents.RunConfig{ParallelToolCalls: true}}
	result, err := runner.Run(t.Context(), agent, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "met", result.History.ToolResults()[0].Content)
}

func TestRun_MaxToolRounds(t *testing.T) {
	model := agentstesting.NewFakeModel()
	for range 3 {
		model.AddMultipleTurnOutputs(agentstesting.GetToolCallsMessage(
			agents.ToolCall{Name: "ping", Arguments: "{}"},
		))
	}
	agent := agents.New("looper").
		WithTools(agentstesting.GetFunctionTool("ping", "pong")).
		WithModelInstance(model)

	runner := agents.Runner{Config: agents.RunConfig{MaxToolRounds: 2}}
	_, err := runner.Run(t.Context(), agent, "go", nil)
	assert.ErrorAs(t, err, &agents.MaxTurnsExceededError{})
	assert.Equal(t, 3, model.Calls())

	details, ok := agents.RunErrorDetailsOf(err)
	require.True(t, ok)
	assert.Len(t, details.History.ToolResults(), 2)
}

type cityInfo struct {
	City       string `json:"city"`
	Population int    `json:"population"`
}

func TestRun_StructuredOutput(t *testing.T) {
	model := agentstesting.NewFakeModel(
		agentstesting.GetTextMessage("```json\n{\"city\":\"Turin\",\"population\":850000}\n```"),
	)
	agent := agents.New("geo").
		WithOutputType(agents.OutputType[cityInfo]()).
		WithModelInstance(model)

	result, err := agents.Run(t.Context(), agent, "Tell me about Turin", nil)
	require.NoError(t, err)
	assert.Equal(t, cityInfo{City: "Turin", Population: 850000}, agents.MustFinalOutputAs[cityInfo](result))
	assert.NotNil(t, model.LastRequest().OutputType)

	_, err = agents.FinalOutputAs[string](result)
	assert.ErrorAs(t, err, &agents.UserError{})
}

func TestRun_OutputRepair(t *testing.T) {
	model := agentstesting.NewFakeModel(
		agentstesting.GetTextMessage("Turin has about 850k inhabitants."),
		agentstesting.GetTextMessage(`{"city":"Turin","population":850000}`),
	)
	agent := agents.New("geo").
		WithOutputType(agents.OutputType[cityInfo]()).
		WithModelInstance(model)

	result, err := agents.Run(t.Context(), agent, "Tell me about Turin", nil)
	require.NoError(t, err)
	assert.Equal(t, cityInfo{City: "Turin", Population: 850000}, result.FinalOutput)
	assert.Equal(t, 1, result.OutputRepairs)

	// the invalid reply and the corrective message stay in the history
	require.Len(t, result.NewMessages, 3)
	assert.Equal(t, agents.RoleUser, result.NewMessages[1].Role)
	assert.Contains(t, result.NewMessages[1].Content, "does not match the required output format")
	assert.Equal(t, result.History[:3], model.LastRequest().Input)
}

func TestRun_OutputSchemaViolation(t *testing.T) {
	model := agentstesting.NewFakeModel(
		agentstesting.GetTextMessage("not json"),
		agentstesting.GetTextMessage(`{"city":"Turin"}`),
		agentstesting.GetTextMessage("never reached"),
	)
	agent := agents.New("geo").
		WithOutputType(agents.OutputType[cityInfo]()).
		WithModelInstance(model)

	runner := agents.Runner{Config: agents.RunConfig{MaxOutputRepairs: param.NewOpt(1)}}
	_, err := runner.Run(t.Context(), agent, "Tell me about Turin", nil)

	var violation agents.OutputSchemaViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, 1, violation.Attempts)
	assert.ErrorAs(t, err, new(*agents.OutputValidationError))
	assert.Equal(t, 2, model.Calls())
}

func TestRun_InputGuardrailBlocksBeforeAnyModelCall(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.GetTextMessage("never reached"))
	agent := agents.New("a").
		WithInputGuardrails(inputGuardrail("blocklist", 0, true, nil)).
		WithModelInstance(model)

	_, err := agents.Run(t.Context(), agent, "forbidden", nil)

	var tripwire agents.InputGuardrailTripwireTriggeredError
	require.ErrorAs(t, err, &tripwire)
	assert.Equal(t, "blocklist", tripwire.GuardrailResult.Guardrail.Name)
	assert.Equal(t, agents.OutcomeInputBlocked, agents.OutcomeOf(err))
	assert.Zero(t, model.Calls())

	details, ok := agents.RunErrorDetailsOf(err)
	require.True(t, ok)
	assert.Same(t, agent, details.LastAgent)
	assert.Len(t, details.InputGuardrailResults, 1)
}

func TestRun_InputGuardrailsFromRunConfig(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.GetTextMessage("ok"))
	agent := agents.New("a").
		WithInputGuardrails(inputGuardrail("agent_level", 0, false, nil)).
		WithModelInstance(model)

	runner := agents.Runner{Config: agents.RunConfig{
		InputGuardrails: []agents.InputGuardrail{inputGuardrail("run_level", 0, false, nil)},
	}}
	result, err := runner.Run(t.Context(), agent, "hi", nil)
	require.NoError(t, err)
	require.Len(t, result.InputGuardrailResults, 2)
	assert.Equal(t, "agent_level", result.InputGuardrailResults[0].Guardrail.Name)
	assert.Equal(t, "run_level", result.InputGuardrailResults[1].Guardrail.Name)
}

func TestRun_OutputGuardrail(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.GetTextMessage("my password is hunter2"))
	noSecrets := agents.OutputGuardrail{
		Name: "no_secrets",
		GuardrailFunction: func(_ context.Context, _ *runcontext.Wrapper, _ *agents.Agent, output string) (agents.GuardrailFunctionOutput, error) {
			return agents.GuardrailFunctionOutput{
				OutputInfo:        "password detected",
				TripwireTriggered: strings.Contains(output, "password"),
			}, nil
		},
	}
	agent := agents.New("a").WithOutputGuardrails(noSecrets).WithModelInstance(model)

	_, err := agents.Run(t.Context(), agent, "hi", nil)
	var tripwire agents.OutputGuardrailTripwireTriggeredError
	require.ErrorAs(t, err, &tripwire)
	assert.Equal(t, "my password is hunter2", tripwire.GuardrailResult.AgentOutput)
	assert.Equal(t, "password detected", tripwire.GuardrailResult.Output.OutputInfo)
	assert.Equal(t, agents.OutcomeOutputBlocked, agents.OutcomeOf(err))
}

func TestRun_ModelError(t *testing.T) {
	boom := errors.New("backend exploded")
	model := agentstesting.NewFakeModel(agentstesting.GetErrorMessage(boom))
	agent := agents.New("a").WithModelInstance(model)

	_, err := agents.Run(t.Context(), agent, "hi", nil)
	assert.ErrorAs(t, err, &agents.ExecutionError{})
	assert.ErrorIs(t, err, boom)

	details, ok := agents.RunErrorDetailsOf(err)
	require.True(t, ok)
	assert.Equal(t, agents.Conversation{agents.UserMessage("hi")}, details.History)
	assert.Contains(t, details.String(), "Last agent: a")
}

func TestRun_ModelTimeout(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.FakeModelTurnOutput{Text: "late", Delay: time.Minute})
	agent := agents.New("a").WithModelInstance(model)

	runner := agents.Runner{Config: agents.RunConfig{ModelTimeout: 10 * time.Millisecond}}
	_, err := runner.Run(t.Context(), agent, "hi", nil)

	var timeout agents.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "model", timeout.Operation)
	assert.False(t, agents.IsRetryable(err))
}

func TestRun_ToolTimeout(t *testing.T) {
	model := agentstesting.NewFakeModel(
		agentstesting.GetToolCallsMessage(agents.ToolCall{ID: "1", Name: "sleepy", Arguments: "{}"}),
		agentstesting.GetTextMessage("never reached"),
	)
	sleepy := agentstesting.GetFunctionToolFunc("sleepy", func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	agent := agents.New("a").WithTools(sleepy).WithModelInstance(model)

	runner := agents.Runner{Config: agents.RunConfig{ToolTimeout: 10 * time.Millisecond}}
	_, err := runner.Run(t.Context(), agent, "hi", nil)

	var timeout agents.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "tool", timeout.Operation)
	assert.Equal(t, 10*time.Millisecond, timeout.Timeout)
}

func TestRun_Canceled(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.FakeModelTurnOutput{Text: "late", Delay: time.Minute})
	agent := agents.New("a").WithModelInstance(model)

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := agents.Run(ctx, agent, "hi", nil)
	assert.ErrorAs(t, err, &agents.CanceledError{})
	assert.ErrorIs(t, err, context.Canceled)

	_, ok := agents.RunErrorDetailsOf(err)
	assert.True(t, ok)
}

func TestRun_UsageAccumulates(t *testing.T) {
	model := agentstesting.NewFakeModel(
		agentstesting.GetToolCallsMessage(agents.ToolCall{ID: "1", Name: "ping", Arguments: "{}"}),
		agentstesting.GetTextMessage("done"),
	)
	model.SetHardcodedUsage(10, 5, 15)
	agent := agents.New("a").
		WithTools(agentstesting.GetFunctionTool("ping", "pong")).
		WithModelInstance(model)

	rc := runcontext.NewWrapper(nil)
	_, err := agents.Run(t.Context(), agent, "hi", rc)
	require.NoError(t, err)

	u := rc.Usage.Snapshot()
	assert.Equal(t, uint64(2), u.Requests)
	assert.Equal(t, uint64(20), u.InputTokens)
	assert.Equal(t, uint64(10), u.OutputTokens)
	assert.Equal(t, uint64(30), u.TotalTokens)

	// a second run with the same wrapper keeps adding
	model.AddMultipleTurnOutputs(agentstesting.GetTextMessage("again"))
	_, err = agents.Run(t.Context(), agent, "hi", rc)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rc.Usage.Snapshot().Requests)
}

func TestRun_ToolContext(t *testing.T) {
	var seen *agents.ToolContextData
	whoami := agentstesting.GetFunctionToolFunc("whoami", func(ctx context.Context) (any, error) {
		seen = agents.ToolDataFromContext(ctx)
		return "ok", nil
	})
	model := agentstesting.NewFakeModel(
		agentstesting.GetToolCallsMessage(agents.ToolCall{ID: "call_42", Name: "whoami", Arguments: "{}"}),
		agentstesting.GetTextMessage("done"),
	)
	agent := agents.New("introspective").WithTools(whoami).WithModelInstance(model)

	_, err := agents.Run(t.Context(), agent, "hi", nil)
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, agents.ToolContextData{
		ToolName:   "whoami",
		ToolCallID: "call_42",
		AgentName:  "introspective",
	}, *seen)
}

func TestRunConversation_Continues(t *testing.T) {
	model := agentstesting.NewFakeModel(
		agentstesting.GetTextMessage("Nice to meet you, Ada."),
		agentstesting.GetTextMessage("Your name is Ada."),
	)
	agent := agents.New("a").WithModelInstance(model)

	first, err := agents.Run(t.Context(), agent, "I am Ada", nil)
	require.NoError(t, err)

	conv := append(first.ToConversation(), agents.UserMessage("What is my name?"))
	second, err := agents.DefaultRunner.RunConversation(t.Context(), first.LastAgent, conv, nil)
	require.NoError(t, err)
	assert.Equal(t, "Your name is Ada.", second.FinalOutput)
	assert.Equal(t, conv, second.Input)
	assert.Equal(t, conv, model.LastRequest().Input)
	assert.Len(t, second.NewMessages, 1)
}

func TestAgentAsTool(t *testing.T) {
	translatorModel := agentstesting.NewFakeModel(agentstesting.GetTextMessage("Bonjour"))
	translator := agents.New("French Translator").
		WithInstructions("Translate to French.").
		WithModelInstance(translatorModel)

	tool := translator.AsTool(agents.AgentAsToolParams{ToolDescription: "Translate text to French"})
	assert.Equal(t, "french_translator", tool.Name)

	orchestratorModel := agentstesting.NewFakeModel(
		agentstesting.GetToolCallsMessage(agents.ToolCall{ID: "1", Name: "french_translator", Arguments: `{"input":"Hello"}`}),
		agentstesting.GetTextMessage("In French: Bonjour"),
	)
	translatorModel.SetHardcodedUsage(3, 2, 5)
	orchestrator := agents.New("orchestrator").WithTools(tool).WithModelInstance(orchestratorModel)

	rc := runcontext.NewWrapper(nil)
	result, err := agents.Run(t.Context(), orchestrator, "Say hello in French", rc)
	require.NoError(t, err)
	assert.Equal(t, "In French: Bonjour", result.FinalOutput)
	assert.Equal(t, "Bonjour", result.History.ToolResults()[0].Content)
	assert.Equal(t, agents.Conversation{agents.UserMessage("Hello")}, translatorModel.LastRequest().Input)
	assert.Equal(t, uint64(5), rc.Usage.Snapshot().TotalTokens)
}

func TestAgentAsTool_CustomOutputExtractor(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.GetTextMessage("raw"))
	tool := agents.New("inner").WithModelInstance(model).AsTool(agents.AgentAsToolParams{
		ToolName: "inner_tool",
		CustomOutputExtractor: func(r *agents.RunResult) (string, error) {
			return "extracted: " + r.FinalOutput.(string), nil
		},
	})

	out, err := tool.OnInvokeTool(t.Context(), runcontext.NewWrapper(nil), `{"input":"x"}`)
	require.NoError(t, err)
	assert.Equal(t, "extracted: raw", out)
}
