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
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nlpodyssey/agentlab/asynctask"
	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/nlpodyssey/agentlab/tracing"
	"github.com/nlpodyssey/agentlab/usage"
)

// runState is the mutable state of one run. The history is only extended
// with complete turns: an assistant message together with the results of
// all its tool calls.
type runState struct {
	config RunConfig
	rc     *runcontext.Wrapper

	input        Conversation
	history      Conversation
	currentAgent *Agent

	rawResponses           []ModelResponse
	inputGuardrailResults  []InputGuardrailResult
	outputGuardrailResults []OutputGuardrailResult

	handoffs    HandoffState
	repairs     int
	finalOutput any
}

func newRunState(startingAgent *Agent, input Conversation, rc *runcontext.Wrapper, config RunConfig) *runState {
	return &runState{
		config:       config,
		rc:           rc,
		input:        input.Clone(),
		history:      input.Clone(),
		currentAgent: startingAgent,
		handoffs:     HandoffState{Limit: config.maxHandoffs()},
	}
}

func (s *runState) errorDetails() *RunErrorDetails {
	return &RunErrorDetails{
		Input:                  s.input.Clone(),
		LastAgent:              s.currentAgent,
		History:                s.history.Clone(),
		RawResponses:           slices.Clone(s.rawResponses),
		InputGuardrailResults:  slices.Clone(s.inputGuardrailResults),
		OutputGuardrailResults: slices.Clone(s.outputGuardrailResults),
	}
}

func (s *runState) result() *RunResult {
	return &RunResult{
		Input:                  s.input.Clone(),
		NewMessages:            s.history[len(s.input):].Clone(),
		History:                s.history.Clone(),
		RawResponses:           s.rawResponses,
		FinalOutput:            s.finalOutput,
		LastAgent:              s.currentAgent,
		InputGuardrailResults:  s.inputGuardrailResults,
		OutputGuardrailResults: s.outputGuardrailResults,
		HandoffCount:           s.handoffs.Count,
		OutputRepairs:          s.repairs,
	}
}

func (r Runner) run(ctx context.Context, state *runState) (*RunResult, error) {
	if err := r.runInputGuardrails(ctx, state); err != nil {
		return nil, err
	}

	for {
		agent := state.currentAgent
		var next *Agent
		err := tracing.AgentSpan(
			ctx, tracing.AgentSpanParams{
				Name:       agent.Name,
				Handoffs:   agentNames(agent.Handoffs),
				OutputType: outputTypeName(agent.OutputType),
			},
			func(ctx context.Context, span tracing.Span) error {
				err := r.Config.hooks().OnAgentStart(ctx, agent)
				if err == nil {
					next, err = r.runAgent(ctx, span, state)
				}
				if err != nil {
					AttachErrorToSpan(span, tracing.SpanError{
						Message: "Agent run failed",
						Data:    map[string]any{"error": err.Error()},
					})
				}
				return err
			},
		)
		if err != nil {
			return nil, err
		}
		if next == nil {
			if err = r.Config.hooks().OnAgentEnd(ctx, agent, state.finalOutput); err != nil {
				return nil, err
			}
			return state.result(), nil
		}
		if err = r.Config.hooks().OnHandoff(ctx, agent, next); err != nil {
			return nil, err
		}
		state.currentAgent = next
	}
}

func (r Runner) runInputGuardrails(ctx context.Context, state *runState) error {
	agent := state.currentAgent
	guardrails := slices.Concat(agent.InputGuardrails, r.Config.InputGuardrails)
	if len(guardrails) == 0 {
		return nil
	}

	outcome, err := r.Config.guardrailPipeline().RunInput(ctx, state.rc, agent, guardrails, lastUserText(state.input))
	state.inputGuardrailResults = outcome.Results
	if err != nil {
		return err
	}
	if outcome.Triggered != nil {
		Logger().Info("Input guardrail tripwire triggered", slog.String("guardrail", outcome.Triggered.Guardrail.Name))
		return NewInputGuardrailTripwireTriggeredError(*outcome.Triggered)
	}
	return nil
}

// runAgent drives the active agent until it hands off (returning the next
// agent) or produces the final output (returning nil).
func (r Runner) runAgent(ctx context.Context, span tracing.Span, state *runState) (*Agent, error) {
	agent := state.currentAgent

	allTools, err := agent.GetAllTools(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := NewToolRegistry(allTools...)
	if err != nil {
		return nil, err
	}
	span.SpanData().(*tracing.AgentSpanData).Tools = registry.Names()

	model, modelName, err := resolveModel(agent, r.Config.Model.Value, r.Config.Model.Valid(), r.Config.ModelProvider)
	if err != nil {
		return nil, err
	}

	request := ModelRequest{
		ModelSettings: agent.ModelSettings.Resolve(r.Config.ModelSettings),
		Tools:         registry.Describe(),
		Handoffs:      HandoffDefinitions(agent),
		OutputType:    agent.OutputType,
		RunContext:    state.rc,
	}

	var toolRounds uint64
	maxToolRounds := r.Config.maxToolRounds()

	for {
		request.SystemInstructions, err = agent.GetSystemPrompt(ctx, state.rc)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve instructions of agent %s: %w", agent.Name, err)
		}
		request.Input = state.history.Clone()

		Logger().Debug("Calling model", slog.String("agent", agent.Name), slog.Int("messages", len(request.Input)))
		resp, err := r.callModel(ctx, model, modelName, request)
		if err != nil {
			return nil, err
		}
		state.rawResponses = append(state.rawResponses, *resp)
		state.rc.Usage.Add(resp.Usage)

		switch resp.Kind {
		case ResponseKindHandoff:
			next, err := r.handleHandoff(ctx, state, agent, resp)
			if err != nil || next != nil {
				return next, err
			}

		case ResponseKindToolCalls:
			toolRounds++
			if toolRounds > maxToolRounds {
				AttachErrorToSpan(span, tracing.SpanError{
					Message: "Max tool rounds exceeded",
					Data:    map[string]any{"max_tool_rounds": maxToolRounds},
				})
				return nil, MaxTurnsExceededErrorf("agent %s exceeded %d consecutive tool rounds", agent.Name, maxToolRounds)
			}
			results, err := r.dispatchTools(ctx, state, registry, agent, resp.ToolCalls)
			if err != nil {
				return nil, err
			}
			state.history = append(state.history, AssistantMessage(agent.Name, resp.Text, resp.ToolCalls...))
			state.history = append(state.history, results...)
			state.handoffs.ResetChain()

		default:
			state.history = append(state.history, AssistantMessage(agent.Name, resp.Text))
			done, err := r.finishAgent(ctx, state, agent, resp.Text)
			if err != nil || done {
				return nil, err
			}
			toolRounds = 0
		}
	}
}

// handleHandoff processes a handoff response. It returns the next agent on a
// legal transfer, nil when the attempt was rejected and reported to the model.
func (r Runner) handleHandoff(ctx context.Context, state *runState, agent *Agent, resp *ModelResponse) (*Agent, error) {
	if resp.Handoff == nil {
		return nil, NewModelBehaviorError("handoff response without a handoff call")
	}
	assistant := AssistantMessage(agent.Name, resp.Text, handoffResponseCalls(resp)...)
	history := append(state.history.Clone(), assistant)

	decision, err := ResolveHandoff(agent, history, resp, &state.handoffs)
	if err != nil {
		var unknown UnknownHandoffTargetError
		var cycle HandoffCycleError
		if !errors.As(err, &unknown) && !errors.As(err, &cycle) {
			return nil, err
		}
		Logger().Warn("Handoff rejected", slog.String("agent", agent.Name), slog.String("error", err.Error()))
		recordHandoffSpan(ctx, agent.Name, strings.TrimPrefix(resp.Handoff.ToolCall.Name, HandoffToolPrefix), err)
		state.history = append(history, handoffTurnResults(agent, resp, toolErrorContent(err), true)...)
		return nil, nil
	}

	transfer, ok := decision.(HandoffTransfer)
	if !ok {
		return nil, NewModelBehaviorError("handoff response did not resolve to a transfer")
	}
	recordHandoffSpan(ctx, agent.Name, transfer.Next.Name, nil)
	state.history = transfer.Conversation
	return transfer.Next, nil
}

func recordHandoffSpan(ctx context.Context, from, to string, err error) {
	_ = tracing.HandoffSpan(
		ctx, tracing.HandoffSpanParams{FromAgent: from, ToAgent: to},
		func(ctx context.Context, span tracing.Span) error {
			if err != nil {
				AttachErrorToSpan(span, tracing.SpanError{
					Message: "Handoff rejected",
					Data:    map[string]any{"error": err.Error()},
				})
			}
			return nil
		},
	)
}

// finishAgent runs the output guardrails on a text response, then validates
// it. It reports whether the run is done; false means a corrective message
// was appended and the model must be called again.
func (r Runner) finishAgent(ctx context.Context, state *runState, agent *Agent, text string) (bool, error) {
	guardrails := slices.Concat(agent.OutputGuardrails, r.Config.OutputGuardrails)
	if len(guardrails) > 0 {
		outcome, err := r.Config.guardrailPipeline().RunOutput(ctx, state.rc, agent, guardrails, text)
		state.outputGuardrailResults = outcome.Results
		if err != nil {
			return false, err
		}
		if outcome.Triggered != nil {
			Logger().Info("Output guardrail tripwire triggered", slog.String("guardrail", outcome.Triggered.Guardrail.Name))
			return false, NewOutputGuardrailTripwireTriggeredError(*outcome.Triggered)
		}
	}

	output, err := ValidateOutput(ctx, agent.OutputType, text)
	if err == nil {
		state.finalOutput = output
		return true, nil
	}

	var validationErr *OutputValidationError
	if !errors.As(err, &validationErr) {
		return false, err
	}
	if state.repairs >= r.Config.maxOutputRepairs() {
		return false, NewOutputSchemaViolationError(state.repairs, err)
	}
	state.repairs++
	Logger().Debug("Output rejected, asking for a repair",
		slog.String("agent", agent.Name),
		slog.Int("attempt", state.repairs),
		slog.String("error", err.Error()))
	state.history = append(state.history, UserMessage(repairMessage(agent.OutputType, validationErr)))
	return false, nil
}

func repairMessage(outputType OutputTypeInterface, err *OutputValidationError) string {
	var sb strings.Builder
	sb.WriteString("Your previous response does not match the required output format:\n")
	for _, v := range err.Violations {
		sb.WriteString("- ")
		sb.WriteString(v)
		sb.WriteByte('\n')
	}
	if schema, e := outputType.JSONSchema(); e == nil {
		if s, e := PrettyJSONMarshal(schema); e == nil {
			sb.WriteString("Respond again with only a JSON value matching this schema:\n")
			sb.WriteString(s)
			return sb.String()
		}
	}
	sb.WriteString("Respond again with only a JSON value matching the required schema.")
	return sb.String()
}

// callModel calls the model within a generation span, under the model timeout.
func (r Runner) callModel(ctx context.Context, model Model, modelName string, request ModelRequest) (*ModelResponse, error) {
	sensitive := r.Config.includeSensitiveData()
	params := tracing.GenerationSpanParams{
		Model:       modelName,
		ModelConfig: modelConfigForTrace(request),
	}
	if sensitive {
		params.Input = messagesForTrace(request.SystemInstructions.Or(""), request.Input)
	}

	var resp *ModelResponse
	err := tracing.GenerationSpan(ctx, params, func(ctx context.Context, span tracing.Span) error {
		callCtx, cancel := withOptionalTimeout(ctx, r.Config.ModelTimeout)
		defer cancel()

		var err error
		resp, err = model.GetResponse(callCtx, request)
		if err == nil && resp == nil {
			err = NewModelBehaviorError("model returned no response")
		}
		if err == nil && resp.Usage == nil {
			resp.Usage = usage.NewUsage()
		}
		if timedOut(ctx, callCtx) {
			err = NewTimeoutError("model", r.Config.ModelTimeout, firstErr(err, callCtx.Err()))
		}
		if err != nil {
			AttachErrorToSpan(span, tracing.SpanError{
				Message: "Error getting response",
				Data:    map[string]any{"error": err.Error()},
			})
			return err
		}

		data := span.SpanData().(*tracing.GenerationSpanData)
		u := resp.Usage.Snapshot()
		data.Usage = map[string]any{
			"input_tokens":  u.InputTokens,
			"output_tokens": u.OutputTokens,
			"total_tokens":  u.TotalTokens,
		}
		if sensitive {
			data.Output = []map[string]any{messageForTrace(AssistantMessage("", resp.Text, resp.ToolCalls...))}
		}
		if DontLogModelData {
			Logger().Debug("LLM responded", slog.String("kind", string(resp.Kind)))
		} else {
			Logger().Debug("LLM responded", slog.String("kind", string(resp.Kind)), slog.String("text", resp.Text))
		}
		return nil
	})
	return resp, err
}

// dispatchTools invokes the tool calls of a response and returns their
// results in listed order. Tool failures become error results; only fatal
// tool errors, timeouts and cancellation are returned as errors.
func (r Runner) dispatchTools(
	ctx context.Context,
	state *runState,
	registry *ToolRegistry,
	agent *Agent,
	calls []ToolCall,
) ([]Message, error) {
	invoke := func(ctx context.Context, call ToolCall) (Message, error) {
		callCtx, cancel := withOptionalTimeout(ctx, r.Config.ToolTimeout)
		defer cancel()
		callCtx = ContextWithToolData(callCtx, agent.Name, call)

		if err := r.Config.hooks().OnToolStart(callCtx, agent, call); err != nil {
			return Message{}, err
		}
		output, err := registry.Invoke(callCtx, state.rc, call.Name, call.Arguments)
		var msg Message
		switch {
		case timedOut(ctx, callCtx):
			return Message{}, NewTimeoutError("tool", r.Config.ToolTimeout, firstErr(err, callCtx.Err()))
		case err == nil:
			msg = ToolResultMessage(agent.Name, call, output, false)
		case errors.Is(err, ErrFatalTool):
			return Message{}, NewExecutionError(err)
		case ctx.Err() != nil:
			return Message{}, ctx.Err()
		default:
			Logger().Debug("Tool call failed", slog.String("tool", call.Name), slog.String("error", err.Error()))
			msg = ToolResultMessage(agent.Name, call, toolErrorContent(err), true)
		}
		if err := r.Config.hooks().OnToolEnd(ctx, agent, call, msg.Content); err != nil {
			return Message{}, err
		}
		return msg, nil
	}

	results := make([]Message, len(calls))

	if !r.Config.ParallelToolCalls || len(calls) < 2 {
		for i, call := range calls {
			msg, err := invoke(ctx, call)
			if err != nil {
				return nil, err
			}
			results[i] = msg
		}
		return results, nil
	}

	dispatchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make([]*asynctask.Task[Message], len(calls))
	for i, call := range calls {
		tasks[i] = asynctask.CreateTask(dispatchCtx, func(ctx context.Context) (Message, error) {
			msg, err := invoke(ctx, call)
			if err != nil {
				cancel()
			}
			return msg, err
		})
	}

	var errs []error
	for i, res := range asynctask.AwaitAll(tasks) {
		if res.Error != nil {
			errs = append(errs, res.Error)
			continue
		}
		results[i] = res.Value
	}
	if len(errs) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Calls canceled because a sibling failed are not failures themselves.
		for _, err := range errs {
			if !errors.Is(err, context.Canceled) {
				return nil, err
			}
		}
		return nil, errs[0]
	}
	return results, nil
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// timedOut reports whether callCtx expired on its own deadline while the
// parent ctx is still live.
func timedOut(ctx, callCtx context.Context) bool {
	return ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded)
}

func firstErr(err, fallback error) error {
	if err != nil {
		return err
	}
	return fallback
}

func lastUserText(c Conversation) string {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == RoleUser {
			return c[i].Content
		}
	}
	return ""
}

func agentNames(agents []*Agent) []string {
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}
	return names
}

func outputTypeName(ot OutputTypeInterface) string {
	if ot == nil {
		return "string"
	}
	return ot.Name()
}

func modelConfigForTrace(request ModelRequest) map[string]any {
	s := request.ModelSettings
	config := map[string]any{}
	if s.Temperature.Valid() {
		config["temperature"] = s.Temperature.Value
	}
	if s.TopP.Valid() {
		config["top_p"] = s.TopP.Value
	}
	if s.MaxTokens.Valid() {
		config["max_tokens"] = s.MaxTokens.Value
	}
	if s.ToolChoice.Valid() {
		config["tool_choice"] = s.ToolChoice.Value
	}
	return config
}

func messagesForTrace(system string, c Conversation) []map[string]any {
	out := make([]map[string]any, 0, len(c)+1)
	if system != "" {
		out = append(out, map[string]any{"role": "system", "content": system})
	}
	for _, m := range c {
		out = append(out, messageForTrace(m))
	}
	return out
}

func messageForTrace(m Message) map[string]any {
	entry := map[string]any{"role": string(m.Role), "content": m.Content}
	if len(m.ToolCalls) > 0 {
		calls := make([]map[string]any, len(m.ToolCalls))
		for i, c := range m.ToolCalls {
			calls[i] = map[string]any{"id": c.ID, "name": c.Name, "arguments": c.Arguments}
		}
		entry["tool_calls"] = calls
	}
	if m.ToolCallID != "" {
		entry["tool_call_id"] = m.ToolCallID
	}
	return entry
}
