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
	"errors"
	"sync"
	"time"
)

// A Trace is the root level object that tracing creates. It represents a
// logical workflow, such as one or more agent runs.
type Trace interface {
	// Run starts the trace as current in a new scope derived from ctx,
	// calls fn, then finishes the trace.
	Run(context.Context, func(context.Context, Trace) error) error

	// Start the trace.
	// If markAsCurrent is true, the trace will be marked as the current trace.
	Start(ctx context.Context, markAsCurrent bool) error

	// Finish the trace.
	// If resetCurrent is true, the previously current trace is restored.
	Finish(ctx context.Context, resetCurrent bool) error

	TraceID() string

	// The Name of the workflow being traced.
	Name() string

	// Export the trace as a map. A NoOpTrace exports nil.
	Export() map[string]any
}

func runTrace(ctx context.Context, t Trace, fn func(context.Context, Trace) error) (err error) {
	ctx = ContextWithClonedOrNewScope(ctx)
	if err = t.Start(ctx, true); err != nil {
		return err
	}
	defer func() {
		if e := t.Finish(ctx, true); e != nil {
			err = errors.Join(err, e)
		}
	}()
	return fn(ctx, t)
}

// NoOpTrace is a trace that is never recorded.
type NoOpTrace struct {
	mu               sync.Mutex
	prevContextTrace Trace
	markedCurrent    bool
}

func NewNoOpTrace() *NoOpTrace {
	return &NoOpTrace{}
}

func (t *NoOpTrace) Run(ctx context.Context, fn func(context.Context, Trace) error) error {
	return runTrace(ctx, t, fn)
}

func (t *NoOpTrace) Start(ctx context.Context, markAsCurrent bool) error {
	if markAsCurrent {
		t.mu.Lock()
		t.prevContextTrace = SetCurrentTraceToContextScope(ctx, t)
		t.markedCurrent = true
		t.mu.Unlock()
	}
	return nil
}

func (t *NoOpTrace) Finish(ctx context.Context, resetCurrent bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if resetCurrent && t.markedCurrent {
		SetCurrentTraceToContextScope(ctx, t.prevContextTrace)
		t.prevContextTrace = nil
		t.markedCurrent = false
	}
	return nil
}

func (t *NoOpTrace) TraceID() string        { return "no-op" }
func (t *NoOpTrace) Name() string           { return "no-op" }
func (t *NoOpTrace) Export() map[string]any { return nil }

// TraceImpl is a trace that is recorded by the registered processors.
type TraceImpl struct {
	name      string
	traceID   string
	GroupID   string
	Metadata  map[string]any
	processor Processor

	mu               sync.Mutex
	startedAt        time.Time
	endedAt          time.Time
	prevContextTrace Trace
	markedCurrent    bool
}

func NewTraceImpl(
	name string,
	traceID string,
	groupID string,
	metadata map[string]any,
	processor Processor,
) *TraceImpl {
	if traceID == "" {
		traceID = GenTraceID()
	}
	return &TraceImpl{
		name:      name,
		traceID:   traceID,
		GroupID:   groupID,
		Metadata:  metadata,
		processor: processor,
	}
}

func (t *TraceImpl) Run(ctx context.Context, fn func(context.Context, Trace) error) error {
	return runTrace(ctx, t, fn)
}

func (t *TraceImpl) Start(ctx context.Context, markAsCurrent bool) error {
	t.mu.Lock()
	if !t.startedAt.IsZero() {
		t.mu.Unlock()
		return nil
	}
	t.startedAt = time.Now()
	t.mu.Unlock()

	if err := t.processor.OnTraceStart(ctx, t); err != nil {
		return err
	}

	if markAsCurrent {
		t.mu.Lock()
		t.prevContextTrace = SetCurrentTraceToContextScope(ctx, t)
		t.markedCurrent = true
		t.mu.Unlock()
	}
	return nil
}

func (t *TraceImpl) Finish(ctx context.Context, resetCurrent bool) error {
	t.mu.Lock()
	if t.startedAt.IsZero() || !t.endedAt.IsZero() {
		t.mu.Unlock()
		return nil
	}
	t.endedAt = time.Now()
	t.mu.Unlock()

	err := t.processor.OnTraceEnd(ctx, t)

	t.mu.Lock()
	if resetCurrent && t.markedCurrent {
		SetCurrentTraceToContextScope(ctx, t.prevContextTrace)
		t.prevContextTrace = nil
		t.markedCurrent = false
	}
	t.mu.Unlock()
	return err
}

func (t *TraceImpl) TraceID() string { return t.traceID }
func (t *TraceImpl) Name() string    { return t.name }

func (t *TraceImpl) Export() map[string]any {
	var groupID any
	if t.GroupID != "" {
		groupID = t.GroupID
	}
	return map[string]any{
		"object":        "trace",
		"id":            t.TraceID(),
		"workflow_name": t.Name(),
		"group_id":      groupID,
		"metadata":      t.Metadata,
	}
}
