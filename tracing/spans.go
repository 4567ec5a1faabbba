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
	"cmp"
	"context"
	"errors"
	"sync"
	"time"
)

type SpanError struct {
	Message string
	Data    map[string]any
}

func (err SpanError) Error() string { return cmp.Or(err.Message, "span error") }

func (err SpanError) Export() map[string]any {
	return map[string]any{
		"message": err.Message,
		"data":    err.Data,
	}
}

type Span interface {
	// Run starts the span as current in a new scope derived from ctx,
	// calls fn, then finishes the span.
	Run(context.Context, func(context.Context, Span) error) error

	// Start the span.
	// If markAsCurrent is true, the span will be marked as the current span.
	Start(ctx context.Context, markAsCurrent bool) error

	// Finish the span.
	// If resetCurrent is true, the previously current span is restored.
	Finish(ctx context.Context, resetCurrent bool) error

	TraceID() string
	SpanID() string
	SpanData() SpanData
	ParentID() string
	SetError(err SpanError)
	Error() *SpanError
	StartedAt() time.Time
	EndedAt() time.Time
	Export() map[string]any
}

func runSpan(ctx context.Context, s Span, fn func(context.Context, Span) error) (err error) {
	ctx = ContextWithClonedOrNewScope(ctx)
	if err = s.Start(ctx, true); err != nil {
		return err
	}
	defer func() {
		if e := s.Finish(ctx, true); e != nil {
			err = errors.Join(err, e)
		}
	}()
	return fn(ctx, s)
}

// NoOpSpan is a span that is never recorded. It still tracks itself as the
// current span, so that children are also no-op.
type NoOpSpan struct {
	spanData SpanData

	mu              sync.Mutex
	prevContextSpan Span
	markedCurrent   bool
}

func NewNoOpSpan(spanData SpanData) *NoOpSpan {
	return &NoOpSpan{spanData: spanData}
}

func (s *NoOpSpan) Run(ctx context.Context, fn func(context.Context, Span) error) error {
	return runSpan(ctx, s, fn)
}

func (s *NoOpSpan) Start(ctx context.Context, markAsCurrent bool) error {
	if markAsCurrent {
		s.mu.Lock()
		s.prevContextSpan = SetCurrentSpanToContextScope(ctx, s)
		s.markedCurrent = true
		s.mu.Unlock()
	}
	return nil
}

func (s *NoOpSpan) Finish(ctx context.Context, resetCurrent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resetCurrent && s.markedCurrent {
		SetCurrentSpanToContextScope(ctx, s.prevContextSpan)
		s.prevContextSpan = nil
		s.markedCurrent = false
	}
	return nil
}

func (s *NoOpSpan) TraceID() string        { return "no-op" }
func (s *NoOpSpan) SpanID() string         { return "no-op" }
func (s *NoOpSpan) SpanData() SpanData     { return s.spanData }
func (s *NoOpSpan) ParentID() string       { return "" }
func (s *NoOpSpan) SetError(SpanError)     {}
func (s *NoOpSpan) Error() *SpanError      { return nil }
func (s *NoOpSpan) StartedAt() time.Time   { return time.Time{} }
func (s *NoOpSpan) EndedAt() time.Time     { return time.Time{} }
func (s *NoOpSpan) Export() map[string]any { return nil }

type SpanImpl struct {
	traceID   string
	spanID    string
	parentID  string
	processor Processor
	spanData  SpanData

	mu              sync.RWMutex
	startedAt       time.Time
	endedAt         time.Time
	err             *SpanError
	prevContextSpan Span
	markedCurrent   bool
}

func NewSpanImpl(
	traceID string,
	spanID string,
	parentID string,
	processor Processor,
	spanData SpanData,
) *SpanImpl {
	if spanID == "" {
		spanID = GenSpanID()
	}
	return &SpanImpl{
		traceID:   traceID,
		spanID:    spanID,
		parentID:  parentID,
		processor: processor,
		spanData:  spanData,
	}
}

func (s *SpanImpl) Run(ctx context.Context, fn func(context.Context, Span) error) error {
	return runSpan(ctx, s, fn)
}

func (s *SpanImpl) Start(ctx context.Context, markAsCurrent bool) error {
	s.mu.Lock()
	if !s.startedAt.IsZero() {
		s.mu.Unlock()
		Logger().Warn("Span already started")
		return nil
	}
	s.startedAt = time.Now()
	s.mu.Unlock()

	if err := s.processor.OnSpanStart(ctx, s); err != nil {
		return err
	}

	if markAsCurrent {
		s.mu.Lock()
		s.prevContextSpan = SetCurrentSpanToContextScope(ctx, s)
		s.markedCurrent = true
		s.mu.Unlock()
	}
	return nil
}

func (s *SpanImpl) Finish(ctx context.Context, resetCurrent bool) error {
	s.mu.Lock()
	if !s.endedAt.IsZero() {
		s.mu.Unlock()
		Logger().Warn("Span already finished")
		return nil
	}
	s.endedAt = time.Now()
	s.mu.Unlock()

	err := s.processor.OnSpanEnd(ctx, s)

	s.mu.Lock()
	if resetCurrent && s.markedCurrent {
		SetCurrentSpanToContextScope(ctx, s.prevContextSpan)
		s.prevContextSpan = nil
		s.markedCurrent = false
	}
	s.mu.Unlock()
	return err
}

func (s *SpanImpl) TraceID() string    { return s.traceID }
func (s *SpanImpl) SpanID() string     { return s.spanID }
func (s *SpanImpl) SpanData() SpanData { return s.spanData }
func (s *SpanImpl) ParentID() string   { return s.parentID }

func (s *SpanImpl) SetError(err SpanError) {
	s.mu.Lock()
	s.err = &err
	s.mu.Unlock()
}

func (s *SpanImpl) Error() *SpanError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *SpanImpl) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

func (s *SpanImpl) EndedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endedAt
}

func (s *SpanImpl) Export() map[string]any {
	var spanData map[string]any
	if s.spanData != nil {
		spanData = s.spanData.Export()
	}

	var exportedError map[string]any
	if err := s.Error(); err != nil {
		exportedError = err.Export()
	}

	var parentID any
	if s.parentID != "" {
		parentID = s.parentID
	}

	return map[string]any{
		"object":     "trace.span",
		"id":         s.SpanID(),
		"trace_id":   s.TraceID(),
		"parent_id":  parentID,
		"started_at": formatTime(s.StartedAt()),
		"ended_at":   formatTime(s.EndedAt()),
		"span_data":  spanData,
		"error":      exportedError,
	}
}
