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

// Package tracing groups model, tool, guardrail and handoff invocations into
// traces and spans, and forwards them to registered processors.
//
// No processor is registered by default: tracing is observability only and
// a run behaves the same with or without sinks.
package tracing

// AddTraceProcessor adds a new trace processor.
// This processor will receive all traces/spans.
func AddTraceProcessor(spanProcessor Processor) {
	GetTraceProvider().RegisterProcessor(spanProcessor)
}

// SetTraceProcessors sets the list of trace processors.
// This will replace the current list of processors.
func SetTraceProcessors(processors []Processor) {
	GetTraceProvider().SetProcessors(processors)
}

// SetTracingDisabled sets whether tracing is globally disabled.
func SetTracingDisabled(disabled bool) {
	GetTraceProvider().SetDisabled(disabled)
}

func init() {
	SetTraceProvider(NewDefaultTraceProvider())
}
