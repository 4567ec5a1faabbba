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

// RunResult is the outcome of a completed run.
type RunResult struct {
	// The conversation the run started from: the caller's history, ending
	// with the input user message.
	Input Conversation

	// Messages generated during the run, in order.
	NewMessages Conversation

	// Input followed by NewMessages.
	History Conversation

	// Every model response of the run, with its token usage.
	RawResponses []ModelResponse

	// The output of the last agent: its free text, or the value decoded from
	// its output type.
	FinalOutput any

	// The agent that produced the final output.
	LastAgent *Agent

	InputGuardrailResults  []InputGuardrailResult
	OutputGuardrailResults []OutputGuardrailResult

	// Handoff attempts made during the run, rejected ones included.
	HandoffCount int

	// Corrective turns spent on outputs that did not match the output type.
	OutputRepairs int
}

// ToConversation returns the run history, to be passed to
// Runner.RunConversation after appending a new user message.
func (r *RunResult) ToConversation() Conversation {
	return r.History.Clone()
}

func (r *RunResult) String() string {
	return PrettyPrintResult(r)
}

// FinalOutputAs returns the final output of a run as T.
func FinalOutputAs[T any](r *RunResult) (T, error) {
	v, ok := r.FinalOutput.(T)
	if !ok {
		var zero T
		return zero, UserErrorf("final output is %T, not %T", r.FinalOutput, zero)
	}
	return v, nil
}

// MustFinalOutputAs is like FinalOutputAs but panics on a type mismatch.
func MustFinalOutputAs[T any](r *RunResult) T {
	v, err := FinalOutputAs[T](r)
	if err != nil {
		panic(fmt.Errorf("MustFinalOutputAs: %w", err))
	}
	return v
}
