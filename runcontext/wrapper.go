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

package runcontext

import (
	"context"

	"github.com/nlpodyssey/agentlab/usage"
)

// Wrapper wraps the context object that you passed to `Runner.Run()`.
// It also contains information about the usage of the agent run so far.
//
// The same *Wrapper is handed to every model call, tool handler and guardrail
// of a run, and to later runs if you pass it again. Its fields are never
// inspected by the runtime, and access to Context is not serialized.
//
// NOTE: Contexts are not passed to the LLM. They're a way to pass dependencies
// and data to code you implement, like tool functions and guardrails.
type Wrapper struct {
	// Optional context object, passed by you to `Runner.Run()`.
	Context any

	// The usage accumulated by every run that used this wrapper.
	Usage *usage.Usage
}

func NewWrapper(ctx any) *Wrapper {
	return &Wrapper{
		Context: ctx,
		Usage:   usage.NewUsage(),
	}
}

// ContextAs returns the wrapped context object as T.
func ContextAs[T any](w *Wrapper) (T, bool) {
	if w == nil {
		var zero T
		return zero, false
	}
	v, ok := w.Context.(T)
	return v, ok
}

type wrapperContextKey struct{}

// NewContext returns a new Context that carries the given Wrapper.
func NewContext(ctx context.Context, w *Wrapper) context.Context {
	return context.WithValue(ctx, wrapperContextKey{}, w)
}

// FromContext returns the Wrapper value stored in ctx, if any.
func FromContext(ctx context.Context) (*Wrapper, bool) {
	w, ok := ctx.Value(wrapperContextKey{}).(*Wrapper)
	return w, ok
}
