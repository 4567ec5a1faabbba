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

// Package tracestore persists traces and spans into SQL databases.
//
// Both SQLiteExporter and PostgresExporter implement tracing.Exporter and
// are meant to be wrapped by a tracing.BatchTraceProcessor.
package tracestore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nlpodyssey/agentlab/tracing"
)

// TraceRecord is a stored trace.
type TraceRecord struct {
	TraceID      string
	WorkflowName string
	GroupID      string
	Metadata     map[string]any
}

// SpanRecord is a stored span. Data and Error hold the exported span data
// and span error, as JSON.
type SpanRecord struct {
	SpanID    string
	TraceID   string
	ParentID  string
	SpanType  string
	Data      string
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

func traceRecordFrom(t tracing.Trace) TraceRecord {
	r := TraceRecord{
		TraceID:      t.TraceID(),
		WorkflowName: t.Name(),
	}
	if impl, ok := t.(*tracing.TraceImpl); ok {
		r.GroupID = impl.GroupID
		r.Metadata = impl.Metadata
	}
	return r
}

func spanRecordFrom(s tracing.Span) (SpanRecord, error) {
	r := SpanRecord{
		SpanID:    s.SpanID(),
		TraceID:   s.TraceID(),
		ParentID:  s.ParentID(),
		StartedAt: s.StartedAt(),
		EndedAt:   s.EndedAt(),
	}
	if sd := s.SpanData(); sd != nil {
		r.SpanType = sd.Type()
		b, err := json.Marshal(sd.Export())
		if err != nil {
			return SpanRecord{}, fmt.Errorf("error JSON marshaling span data: %w", err)
		}
		r.Data = string(b)
	}
	if spanErr := s.Error(); spanErr != nil {
		b, err := json.Marshal(spanErr.Export())
		if err != nil {
			return SpanRecord{}, fmt.Errorf("error JSON marshaling span error: %w", err)
		}
		r.Error = string(b)
	}
	return r, nil
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("error JSON marshaling trace metadata: %w", err)
	}
	return string(b), nil
}

func unmarshalMetadata(s string) map[string]any {
	if s == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil // Skip invalid JSON metadata
	}
	return m
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
