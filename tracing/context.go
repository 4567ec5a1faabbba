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

package tracing

import (
	"context"
	"sync"
)

type scopeContextKey struct{}

// Scope holds the trace and span that are current for a context chain.
type Scope struct {
	mu           sync.RWMutex
	currentSpan  Span
	currentTrace Trace
}

func (s *Scope) clone() *Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Scope{
		currentSpan:  s.currentSpan,
		currentTrace: s.currentTrace,
	}
}

// ContextWithClonedOrNewScope returns a context derived from ctx with a Scope value set.
// An existing Scope is cloned, so that changes made by the callee are not
// visible to the caller; otherwise a new empty Scope is created.
func ContextWithClonedOrNewScope(ctx context.Context) context.Context {
	if scope, ok := ScopeFromContext(ctx); ok {
		return context.WithValue(ctx, scopeContextKey{}, scope.clone())
	}
	return context.WithValue(ctx, scopeContextKey{}, new(Scope))
}

func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return scope, ok
}

func GetCurrentSpanFromContextScope(ctx context.Context) Span {
	scope, ok := ScopeFromContext(ctx)
	if !ok {
		return nil
	}
	scope.mu.RLock()
	defer scope.mu.RUnlock()
	return scope.currentSpan
}

// SetCurrentSpanToContextScope replaces the current span and returns the previous one.
func SetCurrentSpanToContextScope(ctx context.Context, span Span) (previousSpan Span) {
	if scope, ok := ScopeFromContext(ctx); ok {
		scope.mu.Lock()
		defer scope.mu.Unlock()
		previousSpan, scope.currentSpan = scope.currentSpan, span
	}
	return previousSpan
}

func GetCurrentTraceFromContextScope(ctx context.Context) Trace {
	scope, ok := ScopeFromContext(ctx)
	if !ok {
		return nil
	}
	scope.mu.RLock()
	defer scope.mu.RUnlock()
	return scope.currentTrace
}

// SetCurrentTraceToContextScope replaces the current trace and returns the previous one.
func SetCurrentTraceToContextScope(ctx context.Context, trace Trace) (previousTrace Trace) {
	if scope, ok := ScopeFromContext(ctx); ok {
		scope.mu.Lock()
		defer scope.mu.Unlock()
		previousTrace, scope.currentTrace = scope.currentTrace, trace
	}
	return previousTrace
}
