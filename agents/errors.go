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
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrFatalTool can be wrapped by a tool handler error to abort the run
// instead of reporting the failure back to the model.
var ErrFatalTool = errors.New("fatal tool error")

// RunErrorDetails holds the state of a run at the moment it failed.
type RunErrorDetails struct {
	Input                  Conversation
	LastAgent              *Agent
	History                Conversation
	RawResponses           []ModelResponse
	InputGuardrailResults  []InputGuardrailResult
	OutputGuardrailResults []OutputGuardrailResult
}

func (d RunErrorDetails) String() string {
	lastAgent := "<nil>"
	if d.LastAgent != nil {
		lastAgent = d.LastAgent.Name
	}
	return fmt.Sprintf(
		"RunErrorDetails:\n- Last agent: %s\n- %d message(s)\n- %d raw response(s)\n- %d input guardrail result(s)",
		lastAgent, len(d.History), len(d.RawResponses), len(d.InputGuardrailResults),
	)
}

// AgentsError is the base type of every error that terminates a run.
// RunData is set by the Runner before the error is returned.
type AgentsError struct {
	Err     error
	RunData *RunErrorDetails
}

func NewAgentsError(message string) *AgentsError {
	return &AgentsError{Err: errors.New(message)}
}

func AgentsErrorf(format string, a ...any) *AgentsError {
	return &AgentsError{Err: fmt.Errorf(format, a...)}
}

func (e *AgentsError) Error() string {
	if e.Err == nil {
		return "agents error"
	}
	return e.Err.Error()
}

func (e *AgentsError) Unwrap() error { return e.Err }

func (e *AgentsError) setRunData(d *RunErrorDetails) {
	if e.RunData == nil {
		e.RunData = d
	}
}

func (e *AgentsError) runData() *RunErrorDetails { return e.RunData }

type runDataCarrier interface {
	setRunData(*RunErrorDetails)
	runData() *RunErrorDetails
}

// RunErrorDetailsOf returns the run state attached to an error returned by
// the Runner, if any.
func RunErrorDetailsOf(err error) (*RunErrorDetails, bool) {
	var c runDataCarrier
	if errors.As(err, &c) && c.runData() != nil {
		return c.runData(), true
	}
	return nil, false
}

// MaxTurnsExceededError is returned when an agent keeps requesting tool calls
// beyond the configured number of consecutive tool rounds.
type MaxTurnsExceededError struct {
	*AgentsError
}

func MaxTurnsExceededErrorf(format string, a ...any) MaxTurnsExceededError {
	return MaxTurnsExceededError{AgentsError: AgentsErrorf(format, a...)}
}

// ModelBehaviorError is returned when the model does something unexpected,
// e.g. producing an empty response or malformed JSON.
type ModelBehaviorError struct {
	*AgentsError
}

func NewModelBehaviorError(message string) ModelBehaviorError {
	return ModelBehaviorError{AgentsError: NewAgentsError(message)}
}

func ModelBehaviorErrorf(format string, a ...any) ModelBehaviorError {
	return ModelBehaviorError{AgentsError: AgentsErrorf(format, a...)}
}

// UserError is returned when the runtime is misconfigured by its caller.
type UserError struct {
	*AgentsError
}

func NewUserError(message string) UserError {
	return UserError{AgentsError: NewAgentsError(message)}
}

func UserErrorf(format string, a ...any) UserError {
	return UserError{AgentsError: AgentsErrorf(format, a...)}
}

// ExecutionError wraps a failure of a model backend, a guardrail function or
// a tool that aborted the run.
type ExecutionError struct {
	*AgentsError
}

func NewExecutionError(err error) ExecutionError {
	return ExecutionError{AgentsError: &AgentsError{Err: err}}
}

// InputGuardrailTripwireTriggeredError is returned when an input guardrail
// tripwire is triggered. It is a policy termination, not a failure.
type InputGuardrailTripwireTriggeredError struct {
	*AgentsError

	// The result data of the guardrail that was triggered.
	GuardrailResult InputGuardrailResult
}

func NewInputGuardrailTripwireTriggeredError(result InputGuardrailResult) InputGuardrailTripwireTriggeredError {
	return InputGuardrailTripwireTriggeredError{
		AgentsError:     AgentsErrorf("input guardrail %s triggered tripwire", result.Guardrail.Name),
		GuardrailResult: result,
	}
}

// OutputGuardrailTripwireTriggeredError is returned when an output guardrail
// tripwire is triggered. It is a policy termination, not a failure.
type OutputGuardrailTripwireTriggeredError struct {
	*AgentsError

	// The result data of the guardrail that was triggered.
	GuardrailResult OutputGuardrailResult
}

func NewOutputGuardrailTripwireTriggeredError(result OutputGuardrailResult) OutputGuardrailTripwireTriggeredError {
	return OutputGuardrailTripwireTriggeredError{
		AgentsError:     AgentsErrorf("output guardrail %s triggered tripwire", result.Guardrail.Name),
		GuardrailResult: result,
	}
}

// HandoffLimitExceededError is returned when a run attempts more handoffs
// than allowed.
type HandoffLimitExceededError struct {
	*AgentsError
	Limit int
}

func NewHandoffLimitExceededError(limit int) HandoffLimitExceededError {
	return HandoffLimitExceededError{
		AgentsError: AgentsErrorf("handoff limit of %d exceeded", limit),
		Limit:       limit,
	}
}

// OutputSchemaViolationError is returned when the final output still does
// not match the output type after every repair attempt.
type OutputSchemaViolationError struct {
	*AgentsError
	Attempts int
}

func NewOutputSchemaViolationError(attempts int, cause error) OutputSchemaViolationError {
	return OutputSchemaViolationError{
		AgentsError: AgentsErrorf("output schema violation after %d repair attempt(s): %w", attempts, cause),
		Attempts:    attempts,
	}
}

// TimeoutError is returned when a model call, tool call or guardrail takes
// longer than its configured ceiling. Timeouts are never retried.
type TimeoutError struct {
	*AgentsError

	// "model", "tool" or "guardrail".
	Operation string
	Timeout   time.Duration
}

func NewTimeoutError(operation string, timeout time.Duration, cause error) TimeoutError {
	return TimeoutError{
		AgentsError: AgentsErrorf("%s call timed out after %s: %w", operation, timeout, cause),
		Operation:   operation,
		Timeout:     timeout,
	}
}

// CanceledError is returned when the caller cancels the run context.
type CanceledError struct {
	*AgentsError
}

func NewCanceledError(cause error) CanceledError {
	return CanceledError{AgentsError: AgentsErrorf("run canceled: %w", cause)}
}

// The following errors are reported back to the model as tool results so
// that it can correct itself. They never reach the caller unless wrapped in
// a fatal error.

// UnknownToolError is reported when the model calls a tool that does not
// exist in the active agent's registry.
type UnknownToolError struct {
	ToolName string
}

func (e UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.ToolName)
}

// InvalidToolArgumentsError is reported when tool arguments are not valid
// JSON or do not match the tool's parameter schema.
type InvalidToolArgumentsError struct {
	ToolName   string
	Violations []string
}

func (e InvalidToolArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %q: %s", e.ToolName, strings.Join(e.Violations, "; "))
}

// ToolExecutionError is reported when a tool handler returns an error or panics.
type ToolExecutionError struct {
	ToolName string
	Err      error
}

func (e ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.ToolName, e.Err)
}

func (e ToolExecutionError) Unwrap() error { return e.Err }

// UnknownHandoffTargetError is reported when the model asks to transfer to an
// agent outside the active agent's handoff targets.
type UnknownHandoffTargetError struct {
	ToolName string
	Allowed  []string
}

func (e UnknownHandoffTargetError) Error() string {
	return fmt.Sprintf("unknown handoff target %q; allowed targets: [%s]", e.ToolName, strings.Join(e.Allowed, ", "))
}

// HandoffCycleError is reported when a handoff would return to an agent
// already visited since the last progress made in the run.
type HandoffCycleError struct {
	Target string
	Chain  []string
}

func (e HandoffCycleError) Error() string {
	return fmt.Sprintf("handoff to %q would create a cycle without progress: %s",
		e.Target, strings.Join(slices.Concat(e.Chain, []string{e.Target}), " -> "))
}
