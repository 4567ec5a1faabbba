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
	"time"

	"github.com/nlpodyssey/agentlab/asynctask"
	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/nlpodyssey/agentlab/tracing"
)

// GuardrailPipelineOutcome collects the results of a guardrail pipeline.
// Triggered points to the tripped guardrail with the lowest declared index,
// or is nil when no tripwire fired.
type GuardrailPipelineOutcome[R any] struct {
	Results   []R
	Triggered *R
}

// GuardrailPipeline runs a list of guardrails over one piece of text.
//
// The zero value runs the guardrails concurrently with no timeout.
type GuardrailPipeline struct {
	// Run the guardrails one at a time, in declared order, stopping at the
	// first trip.
	Sequential bool

	// Ceiling for each single guardrail. Zero means no ceiling.
	Timeout time.Duration
}

// RunInputGuardrails runs the input guardrails concurrently. See GuardrailPipeline.RunInput.
func RunInputGuardrails(
	ctx context.Context,
	rc *runcontext.Wrapper,
	agent *Agent,
	guardrails []InputGuardrail,
	input string,
) (GuardrailPipelineOutcome[InputGuardrailResult], error) {
	return GuardrailPipeline{}.RunInput(ctx, rc, agent, guardrails, input)
}

// RunOutputGuardrails runs the output guardrails concurrently. See GuardrailPipeline.RunOutput.
func RunOutputGuardrails(
	ctx context.Context,
	rc *runcontext.Wrapper,
	agent *Agent,
	guardrails []OutputGuardrail,
	output string,
) (GuardrailPipelineOutcome[OutputGuardrailResult], error) {
	return GuardrailPipeline{}.RunOutput(ctx, rc, agent, guardrails, output)
}

// RunInput runs every input guardrail over the input text and returns once
// all of them have completed or one has tripped.
// A tripwire is not an error: the caller inspects Triggered. A guardrail
// function failure is returned as ExecutionError, an expired ceiling as
// TimeoutError.
func (p GuardrailPipeline) RunInput(
	ctx context.Context,
	rc *runcontext.Wrapper,
	agent *Agent,
	guardrails []InputGuardrail,
	input string,
) (GuardrailPipelineOutcome[InputGuardrailResult], error) {
	return runGuardrails(ctx, p, len(guardrails), func(ctx context.Context, i int) (InputGuardrailResult, bool, error) {
		g := guardrails[i]
		var result InputGuardrailResult
		err := p.runOne(ctx, g.Name, func(ctx context.Context) (bool, error) {
			var err error
			result, err = g.Run(ctx, rc, agent, input)
			return result.Output.TripwireTriggered, err
		})
		return result, result.Output.TripwireTriggered, err
	})
}

// RunOutput runs every output guardrail over the final output text. It
// follows the same rules as RunInput.
func (p GuardrailPipeline) RunOutput(
	ctx context.Context,
	rc *runcontext.Wrapper,
	agent *Agent,
	guardrails []OutputGuardrail,
	output string,
) (GuardrailPipelineOutcome[OutputGuardrailResult], error) {
	return runGuardrails(ctx, p, len(guardrails), func(ctx context.Context, i int) (OutputGuardrailResult, bool, error) {
		g := guardrails[i]
		var result OutputGuardrailResult
		err := p.runOne(ctx, g.Name, func(ctx context.Context) (bool, error) {
			var err error
			result, err = g.Run(ctx, rc, agent, output)
			return result.Output.TripwireTriggered, err
		})
		return result, result.Output.TripwireTriggered, err
	})
}

// runOne runs a single guardrail function in its own span, under the
// pipeline timeout.
func (p GuardrailPipeline) runOne(ctx context.Context, name string, fn func(context.Context) (bool, error)) error {
	return tracing.GuardrailSpan(
		ctx, tracing.GuardrailSpanParams{Name: name},
		func(ctx context.Context, span tracing.Span) error {
			callCtx := ctx
			if p.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, p.Timeout)
				defer cancel()
			}

			triggered, err := fn(callCtx)
			if err != nil {
				AttachErrorToSpan(span, tracing.SpanError{
					Message: "Guardrail error",
					Data:    map[string]any{"error": err.Error()},
				})
				switch {
				case p.Timeout > 0 && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded):
					return NewTimeoutError("guardrail", p.Timeout, err)
				case ctx.Err() != nil:
					return err
				default:
					return NewExecutionError(fmt.Errorf("guardrail %q failed: %w", name, err))
				}
			}

			span.SpanData().(*tracing.GuardrailSpanData).Triggered = triggered
			Logger().Debug("Guardrail completed", slog.String("guardrail", name), slog.Bool("triggered", triggered))
			return nil
		},
	)
}

type guardrailFunc[R any] func(ctx context.Context, i int) (R, bool, error)

func runGuardrails[R any](ctx context.Context, p GuardrailPipeline, n int, run guardrailFunc[R]) (GuardrailPipelineOutcome[R], error) {
	if p.Sequential {
		return runGuardrailsSequentially(ctx, n, run)
	}
	return runGuardrailsConcurrently(ctx, n, run)
}

func runGuardrailsSequentially[R any](ctx context.Context, n int, run guardrailFunc[R]) (GuardrailPipelineOutcome[R], error) {
	var outcome GuardrailPipelineOutcome[R]
	for i := range n {
		result, triggered, err := run(ctx, i)
		if err != nil {
			return outcome, err
		}
		outcome.Results = append(outcome.Results, result)
		if triggered {
			outcome.Triggered = &outcome.Results[len(outcome.Results)-1]
			return outcome, nil
		}
	}
	return outcome, nil
}

type guardrailRun[R any] struct {
	result    R
	triggered bool
}

func runGuardrailsConcurrently[R any](ctx context.Context, n int, run guardrailFunc[R]) (GuardrailPipelineOutcome[R], error) {
	guardrailsCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make([]*asynctask.Task[guardrailRun[R]], n)
	for i := range n {
		tasks[i] = asynctask.CreateTask(guardrailsCtx, func(ctx context.Context) (guardrailRun[R], error) {
			result, triggered, err := run(ctx, i)
			if triggered || err != nil {
				cancel()
			}
			return guardrailRun[R]{result: result, triggered: triggered}, err
		})
	}
	runs := asynctask.AwaitAll(tasks)

	if err := ctx.Err(); err != nil {
		return GuardrailPipelineOutcome[R]{}, err
	}

	// The lowest-index event wins. Guardrails canceled because another one
	// tripped or failed are not events.
	var outcome GuardrailPipelineOutcome[R]
	for _, r := range runs {
		if r.Error == nil && r.Value.triggered {
			outcome.Results = append(outcome.Results, r.Value.result)
			outcome.Triggered = &outcome.Results[len(outcome.Results)-1]
			return outcome, nil
		}
		if r.Error != nil && !errors.Is(r.Error, context.Canceled) {
			return outcome, r.Error
		}
		if r.Error == nil {
			outcome.Results = append(outcome.Results, r.Value.result)
		}
	}
	for _, r := range runs {
		if r.Error != nil {
			return outcome, r.Error
		}
	}
	return outcome, nil
}

// GuardrailCheckFunc decides whether the structured verdict of a checker
// agent trips the guardrail.
type GuardrailCheckFunc[T any] = func(verdict T) bool

// AgentInputGuardrail builds an input guardrail that delegates the decision to
// a checker agent. The checker runs as a nested run sharing the parent's run
// context; its output type must decode into T. The decoded verdict is kept as
// the guardrail's OutputInfo.
func AgentInputGuardrail[T any](name string, checker *Agent, tripwire GuardrailCheckFunc[T]) InputGuardrail {
	return InputGuardrail{
		Name: name,
		GuardrailFunction: func(ctx context.Context, rc *runcontext.Wrapper, _ *Agent, input string) (GuardrailFunctionOutput, error) {
			return runCheckerAgent(ctx, rc, checker, input, tripwire)
		},
	}
}

// AgentOutputGuardrail is the output counterpart of AgentInputGuardrail: the
// checker agent receives the final output text of the guarded agent.
func AgentOutputGuardrail[T any](name string, checker *Agent, tripwire GuardrailCheckFunc[T]) OutputGuardrail {
	return OutputGuardrail{
		Name: name,
		GuardrailFunction: func(ctx context.Context, rc *runcontext.Wrapper, _ *Agent, output string) (GuardrailFunctionOutput, error) {
			return runCheckerAgent(ctx, rc, checker, output, tripwire)
		},
	}
}

func runCheckerAgent[T any](
	ctx context.Context,
	rc *runcontext.Wrapper,
	checker *Agent,
	text string,
	tripwire GuardrailCheckFunc[T],
) (GuardrailFunctionOutput, error) {
	result, err := DefaultRunner.Run(ctx, checker, text, rc)
	if err != nil {
		return GuardrailFunctionOutput{}, fmt.Errorf("checker agent %s: %w", checker.Name, err)
	}
	verdict, err := FinalOutputAs[T](result)
	if err != nil {
		return GuardrailFunctionOutput{}, fmt.Errorf("checker agent %s: %w", checker.Name, err)
	}
	return GuardrailFunctionOutput{
		OutputInfo:        verdict,
		TripwireTriggered: tripwire(verdict),
	}, nil
}
