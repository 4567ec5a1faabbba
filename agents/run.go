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
	"cmp"
	"context"
	"errors"
	"time"

	"github.com/nlpodyssey/agentlab/modelsettings"
	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/nlpodyssey/agentlab/tracing"
	"github.com/nlpodyssey/agentlab/usage"
	"github.com/openai/openai-go/v2/packages/param"
)

const (
	DefaultMaxHandoffs      = 10
	DefaultMaxOutputRepairs = 3
	DefaultMaxToolRounds    = 32
	DefaultWorkflowName     = "Agent workflow"
)

// DefaultRunner is the default Runner instance used by the package-level Run
// helpers, nested guardrail checker runs, and agents used as tools.
var DefaultRunner = Runner{}

// Runner executes agents using the configured RunConfig.
//
// The zero value is valid.
type Runner struct {
	Config RunConfig
}

// RunConfig configures settings for the entire agent run.
type RunConfig struct {
	// The model to use for the entire agent run. If set, will override the model set on every
	// agent. The ModelProvider must be able to resolve it if it is a model name.
	Model param.Opt[AgentModel]

	// Optional model provider to use when looking up model names.
	ModelProvider ModelProvider

	// Optional global model settings. Any present values will override the
	// agent-specific model settings.
	ModelSettings modelsettings.ModelSettings

	// Input guardrails run on the run input, after the starting agent's own.
	InputGuardrails []InputGuardrail

	// Output guardrails run on the final output, after the final agent's own.
	OutputGuardrails []OutputGuardrail

	// Run guardrails one at a time in declared order instead of concurrently.
	SequentialGuardrails bool

	// Dispatch the tool calls of a single response concurrently. Results are
	// still appended in the order the model listed the calls.
	ParallelToolCalls bool

	// Maximum number of handoff attempts in a run, rejected ones included.
	// Default: DefaultMaxHandoffs.
	MaxHandoffs param.Opt[int]

	// Maximum number of corrective turns for outputs that do not match the
	// output type. Default: DefaultMaxOutputRepairs.
	MaxOutputRepairs param.Opt[int]

	// Maximum number of consecutive tool rounds of an agent without a text
	// response. Default (when left zero): DefaultMaxToolRounds.
	MaxToolRounds uint64

	// Ceilings for a single model call, tool call and guardrail. Zero means no ceiling.
	ModelTimeout     time.Duration
	ToolTimeout      time.Duration
	GuardrailTimeout time.Duration

	// Whether tracing is disabled for the agent run.
	TracingDisabled bool

	// Whether model inputs/outputs and tool arguments/results are recorded in
	// spans. Default: true.
	TraceIncludeSensitiveData param.Opt[bool]

	// The name of the run, used for tracing. Default: DefaultWorkflowName.
	WorkflowName string

	// Optional custom trace ID. If not provided, one is generated.
	TraceID string

	// Optional grouping identifier, to link multiple traces from the same
	// conversation or process.
	GroupID string

	// Optional additional metadata to include with the trace.
	TraceMetadata map[string]any

	// Optional callbacks on lifecycle events of the run.
	Hooks RunHooks
}

func (c RunConfig) maxHandoffs() int      { return c.MaxHandoffs.Or(DefaultMaxHandoffs) }
func (c RunConfig) maxOutputRepairs() int { return c.MaxOutputRepairs.Or(DefaultMaxOutputRepairs) }
func (c RunConfig) maxToolRounds() uint64 { return cmp.Or(c.MaxToolRounds, DefaultMaxToolRounds) }

func (c RunConfig) hooks() RunHooks {
	if c.Hooks == nil {
		return NoOpRunHooks{}
	}
	return c.Hooks
}

func (c RunConfig) includeSensitiveData() bool { return c.TraceIncludeSensitiveData.Or(true) }

func (c RunConfig) guardrailPipeline() GuardrailPipeline {
	return GuardrailPipeline{
		Sequential: c.SequentialGuardrails,
		Timeout:    c.GuardrailTimeout,
	}
}

// Run executes startingAgent with the provided input using the DefaultRunner.
func Run(ctx context.Context, startingAgent *Agent, input string, rc *runcontext.Wrapper) (*RunResult, error) {
	return DefaultRunner.Run(ctx, startingAgent, input, rc)
}

// Run a workflow starting at the given agent. The agent will run in a loop
// until a final output is generated.
//
// The loop runs like so:
//  1. Input guardrails run on the input. No model is called before they all complete.
//  2. The active agent's model is called with the conversation so far.
//  3. Tool calls are dispatched and their results appended; go to 2.
//  4. A handoff transfers control to another agent, which sees the whole
//     conversation; go to 2.
//  5. A text response runs the output guardrails, then is validated against
//     the agent's output type. An invalid output gets a corrective message; go to 2.
//
// The same rc, if not nil, is passed to every model call, tool and guardrail,
// and accumulates token usage. Errors returned are fatal: no RunResult is
// produced. Use OutcomeOf to tell guardrail blocks from failures, and
// RunErrorDetailsOf to inspect the state of the run when it stopped.
func (r Runner) Run(ctx context.Context, startingAgent *Agent, input string, rc *runcontext.Wrapper) (*RunResult, error) {
	return r.RunConversation(ctx, startingAgent, Conversation{UserMessage(input)}, rc)
}

// RunConversation is like Run, but continues an existing conversation, e.g.
// one obtained from RunResult.ToConversation with a new user message
// appended. Input guardrails check the last user message.
func (r Runner) RunConversation(ctx context.Context, startingAgent *Agent, input Conversation, rc *runcontext.Wrapper) (*RunResult, error) {
	if startingAgent == nil {
		return nil, NewUserError("startingAgent must not be nil")
	}
	if rc == nil {
		rc = runcontext.NewWrapper(nil)
	}
	if rc.Usage == nil {
		rc.Usage = usage.NewUsage()
	}

	state := newRunState(startingAgent, input, rc, r.Config)

	var result *RunResult
	traceParams := tracing.TraceParams{
		WorkflowName: cmp.Or(r.Config.WorkflowName, DefaultWorkflowName),
		TraceID:      r.Config.TraceID,
		GroupID:      r.Config.GroupID,
		Metadata:     r.Config.TraceMetadata,
		Disabled:     r.Config.TracingDisabled,
	}
	err := manageTrace(ctx, traceParams, func(ctx context.Context) error {
		ctx = runcontext.NewContext(ctx, rc)
		var err error
		result, err = r.run(ctx, state)
		return err
	})
	if err != nil {
		return nil, r.finalizeError(ctx, err, state)
	}
	return result, nil
}

// manageTrace runs fn within the trace already present in ctx, e.g. one
// opened with tracing.RunTrace to group several runs, or within a new trace.
func manageTrace(ctx context.Context, params tracing.TraceParams, fn func(context.Context) error) error {
	if tracing.GetCurrentTrace(ctx) != nil {
		return fn(ctx)
	}
	return tracing.RunTrace(ctx, params, func(ctx context.Context, _ tracing.Trace) error {
		return fn(ctx)
	})
}

// finalizeError turns any error escaping the run into a fatal error carrying
// the run state.
func (r Runner) finalizeError(ctx context.Context, err error, state *runState) error {
	var canceled CanceledError
	if ctx.Err() != nil && !errors.As(err, &canceled) {
		err = NewCanceledError(err)
	}
	carrier, ok := err.(runDataCarrier)
	if !ok {
		wrapped := NewExecutionError(err)
		carrier, err = wrapped, wrapped
	}
	carrier.setRunData(state.errorDetails())
	return err
}
