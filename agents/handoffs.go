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
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nlpodyssey/agentlab/util/transforms"
)

// skippedToolCallContent answers the tool calls a model emitted alongside a
// handoff call, so that every call of the turn has a result.
const skippedToolCallContent = "Skipped: a handoff was requested in the same turn."

// DefaultHandoffToolName returns the name of the tool through which a model
// transfers control to the agent, e.g. "transfer_to_billing_agent".
func DefaultHandoffToolName(agent *Agent) string {
	return transforms.TransformStringFunctionStyle(HandoffToolPrefix + agent.Name)
}

func DefaultHandoffToolDescription(agent *Agent) string {
	return fmt.Sprintf("Handoff to the %s agent to handle the request. %s", agent.Name, agent.HandoffDescription)
}

// HandoffDefinitions returns the handoff manifest of an agent, one entry
// per allowed target, in declared order.
func HandoffDefinitions(agent *Agent) []HandoffDefinition {
	defs := make([]HandoffDefinition, len(agent.Handoffs))
	for i, target := range agent.Handoffs {
		defs[i] = HandoffDefinition{
			ToolName:        DefaultHandoffToolName(target),
			ToolDescription: DefaultHandoffToolDescription(target),
			AgentName:       target.Name,
			Parameters:      newEmptyJSONSchema(),
		}
	}
	return defs
}

func handoffTransferMessage(target *Agent) string {
	b, _ := json.Marshal(map[string]string{"assistant": target.Name})
	return string(b)
}

// HandoffState tracks handoff attempts across a run.
type HandoffState struct {
	// Handoff attempts so far, legal or not.
	Count int

	// Maximum number of attempts.
	Limit int

	// Agents visited by the current chain of consecutive handoffs. The chain
	// is reset by the runner whenever tools are dispatched.
	Chain []*Agent
}

// ResetChain forgets the agents visited since the last progress.
func (s *HandoffState) ResetChain() { s.Chain = nil }

// HandoffDecision is the outcome of ResolveHandoff: either HandoffContinue
// or HandoffTransfer.
type HandoffDecision interface {
	isHandoffDecision()
}

// HandoffContinue means the response is not a handoff; the active agent keeps control.
type HandoffContinue struct{}

// HandoffTransfer moves control to Next. Conversation is the history
// carried verbatim, followed by the results of the transferring turn.
type HandoffTransfer struct {
	Next         *Agent
	Conversation Conversation
}

func (HandoffContinue) isHandoffDecision() {}
func (HandoffTransfer) isHandoffDecision() {}

// ResolveHandoff decides what a response means for the active agent.
//
// An attempt that names an agent outside current.Handoffs returns
// UnknownHandoffTargetError; one that would revisit an agent of the current
// chain returns HandoffCycleError. Both are meant to be reported to the model.
// Every attempt counts towards the limit; exceeding it returns
// HandoffLimitExceededError, which is fatal.
//
// history is the conversation so far, ending with the assistant message that
// carries the handoff call. A legal transfer carries it verbatim, followed by
// the results of that message's tool calls.
func ResolveHandoff(current *Agent, history Conversation, response *ModelResponse, state *HandoffState) (HandoffDecision, error) {
	if response.Kind != ResponseKindHandoff {
		return HandoffContinue{}, nil
	}
	if response.Handoff == nil {
		return nil, NewModelBehaviorError("handoff response without a handoff call")
	}

	state.Count++
	if state.Count > state.Limit {
		return nil, NewHandoffLimitExceededError(state.Limit)
	}

	call := response.Handoff.ToolCall
	idx := slices.IndexFunc(current.Handoffs, func(a *Agent) bool {
		return DefaultHandoffToolName(a) == call.Name
	})
	if idx < 0 {
		allowed := make([]string, len(current.Handoffs))
		for i, a := range current.Handoffs {
			allowed[i] = DefaultHandoffToolName(a)
		}
		return nil, UnknownHandoffTargetError{ToolName: call.Name, Allowed: allowed}
	}
	target := current.Handoffs[idx]

	chain := state.Chain
	if len(chain) == 0 {
		chain = []*Agent{current}
	}
	if slices.Contains(chain, target) {
		names := make([]string, len(chain))
		for i, a := range chain {
			names[i] = a.Name
		}
		return nil, HandoffCycleError{Target: target.Name, Chain: names}
	}
	state.Chain = append(slices.Clip(chain), target)

	Logger().Debug("Handoff", slog.String("from", current.Name), slog.String("to", target.Name))

	conversation := history.Clone()
	conversation = append(conversation, handoffTurnResults(current, response, handoffTransferMessage(target), false)...)
	return HandoffTransfer{Next: target, Conversation: conversation}, nil
}

// handoffResponseCalls returns the tool calls of a handoff response, making
// sure the handoff call itself is among them.
func handoffResponseCalls(response *ModelResponse) []ToolCall {
	if slices.Contains(response.ToolCalls, response.Handoff.ToolCall) {
		return response.ToolCalls
	}
	return slices.Concat([]ToolCall{response.Handoff.ToolCall}, response.ToolCalls)
}

// handoffTurnResults answers every tool call of a handoff response, in
// listed order: the handoff call with content, the others as skipped.
func handoffTurnResults(agent *Agent, response *ModelResponse, content string, isError bool) []Message {
	calls := handoffResponseCalls(response)
	results := make([]Message, len(calls))
	for i, call := range calls {
		if call == response.Handoff.ToolCall {
			results[i] = ToolResultMessage(agent.Name, call, content, isError)
		} else {
			results[i] = ToolResultMessage(agent.Name, call, skippedToolCallContent, true)
		}
	}
	return results
}
