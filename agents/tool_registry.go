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
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/nlpodyssey/agentlab/tracing"
	"github.com/xeipuuv/gojsonschema"
)

// ToolRegistry holds the function tools of an agent, unique by name, with
// their compiled parameter schemas.
type ToolRegistry struct {
	tools   []FunctionTool
	schemas []*gojsonschema.Schema
	byName  map[string]int
}

// NewToolRegistry builds a registry, preserving the order of the tools.
// Duplicate or empty names are rejected.
func NewToolRegistry(tools ...Tool) (*ToolRegistry, error) {
	r := &ToolRegistry{
		tools:   make([]FunctionTool, 0, len(tools)),
		schemas: make([]*gojsonschema.Schema, 0, len(tools)),
		byName:  make(map[string]int, len(tools)),
	}
	for _, tool := range tools {
		var ft FunctionTool
		switch t := tool.(type) {
		case FunctionTool:
			ft = t
		case *FunctionTool:
			ft = *t
		default:
			return nil, UserErrorf("unsupported tool type %T", tool)
		}

		if ft.Name == "" {
			return nil, NewUserError("tool name must not be empty")
		}
		if _, ok := r.byName[ft.Name]; ok {
			return nil, UserErrorf("duplicate tool name %q", ft.Name)
		}

		params := ft.ParamsJSONSchema
		if len(params) == 0 {
			params = newEmptyJSONSchema()
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(params))
		if err != nil {
			return nil, UserErrorf("invalid parameters JSON schema for tool %q: %w", ft.Name, err)
		}

		r.byName[ft.Name] = len(r.tools)
		r.tools = append(r.tools, ft)
		r.schemas = append(r.schemas, schema)
	}
	return r, nil
}

func (r *ToolRegistry) Len() int { return len(r.tools) }

func (r *ToolRegistry) Tool(name string) (FunctionTool, bool) {
	i, ok := r.byName[name]
	if !ok {
		return FunctionTool{}, false
	}
	return r.tools[i], true
}

func (r *ToolRegistry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name
	}
	return names
}

// Describe returns the tool manifest, in registration order.
func (r *ToolRegistry) Describe() []ToolDefinition {
	defs := make([]ToolDefinition, len(r.tools))
	for i, t := range r.tools {
		params := t.ParamsJSONSchema
		if len(params) == 0 {
			params = newEmptyJSONSchema()
		}
		strict := false
		if t.StrictJSONSchema.Or(true) {
			if converted, err := EnsureStrictJSONSchema(params); err == nil {
				params = converted
				strict = true
			} else {
				Logger().Debug("Tool schema cannot be made strict",
					slog.String("tool", t.Name), slog.String("error", err.Error()))
			}
		}
		defs[i] = ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
			Strict:      strict,
		}
	}
	return defs
}

// DescribeTools returns the manifest of the given tools.
func DescribeTools(tools []Tool) ([]ToolDefinition, error) {
	r, err := NewToolRegistry(tools...)
	if err != nil {
		return nil, err
	}
	return r.Describe(), nil
}

// Invoke validates rawArgs against the tool's parameter schema, calls the
// handler and returns its output as a string.
//
// It fails with UnknownToolError, InvalidToolArgumentsError (the handler is
// not called) or ToolExecutionError.
func (r *ToolRegistry) Invoke(ctx context.Context, rc *runcontext.Wrapper, name string, rawArgs string) (string, error) {
	i, ok := r.byName[name]
	if !ok {
		return "", UnknownToolError{ToolName: name}
	}
	tool := r.tools[i]

	if strings.TrimSpace(rawArgs) == "" {
		rawArgs = "{}"
	}

	var output string
	err := tracing.FunctionSpan(
		ctx, tracing.FunctionSpanParams{Name: tool.Name, Input: rawArgs},
		func(ctx context.Context, span tracing.Span) (err error) {
			defer func() {
				if err != nil {
					AttachErrorToSpan(span, tracing.SpanError{
						Message: "Error running tool",
						Data:    map[string]any{"tool_name": tool.Name, "error": err.Error()},
					})
				}
			}()

			if err = validateToolArguments(r.schemas[i], tool.Name, rawArgs); err != nil {
				return err
			}

			if DontLogToolData {
				Logger().Debug("Invoking tool", slog.String("name", tool.Name))
			} else {
				Logger().Debug("Invoking tool", slog.String("name", tool.Name), slog.String("args", rawArgs))
			}

			result, err := callToolHandler(runcontext.NewContext(ctx, rc), rc, tool, rawArgs)
			if err != nil {
				return ToolExecutionError{ToolName: tool.Name, Err: err}
			}
			output = stringifyToolOutput(result)
			span.SpanData().(*tracing.FunctionSpanData).Output = output

			if DontLogToolData {
				Logger().Debug("Tool call completed", slog.String("name", tool.Name))
			} else {
				Logger().Debug("Tool call completed", slog.String("name", tool.Name), slog.String("output", output))
			}
			return nil
		})
	if err != nil {
		return "", err
	}
	return output, nil
}

func validateToolArguments(schema *gojsonschema.Schema, toolName, rawArgs string) error {
	violations, err := jsonViolations(schema, rawArgs)
	if err != nil {
		violations = []string{fmt.Sprintf("arguments are not valid JSON: %v", err)}
	}
	if len(violations) == 0 {
		return nil
	}
	return InvalidToolArgumentsError{ToolName: toolName, Violations: violations}
}

func callToolHandler(ctx context.Context, rc *runcontext.Wrapper, tool FunctionTool, args string) (_ any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if tool.OnInvokeTool == nil {
		return nil, fmt.Errorf("tool %q has no handler", tool.Name)
	}
	return tool.OnInvokeTool(ctx, rc, args)
}

func stringifyToolOutput(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// toolErrorContent formats an error reported back to the model.
func toolErrorContent(err error) string {
	return "Error: " + err.Error()
}
