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

	"github.com/nlpodyssey/agentlab/runcontext"
)

// InstructionsGetter is implemented by values that provide the system
// directive of an Agent. It is resolved each time the agent takes a turn, so
// the directive may depend on the run context.
type InstructionsGetter interface {
	GetInstructions(context.Context, *runcontext.Wrapper, *Agent) (string, error)
}

// InstructionsStr is a constant system directive.
type InstructionsStr string

func (s InstructionsStr) GetInstructions(context.Context, *runcontext.Wrapper, *Agent) (string, error) {
	return string(s), nil
}

// InstructionsFunc builds the system directive from the run context, e.g.
// to address the user by a name stored in Wrapper.Context.
type InstructionsFunc func(context.Context, *runcontext.Wrapper, *Agent) (string, error)

func (fn InstructionsFunc) GetInstructions(ctx context.Context, rc *runcontext.Wrapper, a *Agent) (string, error) {
	return fn(ctx, rc, a)
}
