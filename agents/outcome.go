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

import "errors"

// Outcome is the terminal state of a run.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeInputBlocked
	OutcomeOutputBlocked
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeInputBlocked:
		return "input_blocked"
	case OutcomeOutputBlocked:
		return "output_blocked"
	default:
		return "failed"
	}
}

// OutcomeOf maps the error returned by Runner.Run to the run outcome.
// Guardrail tripwires are distinguished from failures.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeCompleted
	}
	var inputErr InputGuardrailTripwireTriggeredError
	if errors.As(err, &inputErr) {
		return OutcomeInputBlocked
	}
	var outputErr OutputGuardrailTripwireTriggeredError
	if errors.As(err, &outputErr) {
		return OutcomeOutputBlocked
	}
	return OutcomeFailed
}
