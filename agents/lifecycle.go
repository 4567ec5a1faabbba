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
)

// RunHooks receives callbacks on lifecycle events of a run. An error returned
// by a hook aborts the run.
type RunHooks interface {
	// OnAgentStart is called each time an agent becomes active, before its
	// first model call.
	OnAgentStart(ctx context.Context, agent *Agent) error

	// OnAgentEnd is called when the agent produces the final output.
	OnAgentEnd(ctx context.Context, agent *Agent, output any) error

	// OnHandoff is called after a legal transfer.
	OnHandoff(ctx context.Context, fromAgent, toAgent *Agent) error

	// OnToolStart is called before a tool is invoked. With parallel tool
	// calls, it may be called concurrently.
	OnToolStart(ctx context.Context, agent *Agent, call ToolCall) error

	// OnToolEnd is called after a tool returned a result. Failed calls
	// report the error text as result.
	OnToolEnd(ctx context.Context, agent *Agent, call ToolCall, result string) error
}

type NoOpRunHooks struct{}

func (NoOpRunHooks) OnAgentStart(context.Context, *Agent) error          { return nil }
func (NoOpRunHooks) OnAgentEnd(context.Context, *Agent, any) error       { return nil }
func (NoOpRunHooks) OnHandoff(context.Context, *Agent, *Agent) error     { return nil }
func (NoOpRunHooks) OnToolStart(context.Context, *Agent, ToolCall) error { return nil }
func (NoOpRunHooks) OnToolEnd(context.Context, *Agent, ToolCall, string) error {
	return nil
}
