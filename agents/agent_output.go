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
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/nlpodyssey/agentlab/tracing"
	"github.com/nlpodyssey/agentlab/util/transforms"
	"github.com/xeipuuv/gojsonschema"
)

// OutputTypeInterface is implemented by an object that describes an agent's output type.
// Unless the output type is plain text (string), it captures the JSON schema of the output,
// as well as validating/parsing JSON produced by the LLM into the output type.
type OutputTypeInterface interface {
	// IsPlainText reports whether the output type is plain text (versus a JSON object).
	IsPlainText() bool

	// The Name of the output type.
	Name() string

	// JSONSchema returns the JSON schema of the output.
	// It will only be called if the output type is not plain text.
	JSONSchema() (map[string]any, error)

	// IsStrictJSONSchema reports whether the JSON schema is in strict mode.
	IsStrictJSONSchema() bool

	// ValidateJSON validates a JSON string against the output type and
	// returns the decoded value. A mismatch is reported as *OutputValidationError.
	ValidateJSON(ctx context.Context, jsonStr string) (any, error)
}

// OutputValidationError lists every reason why a candidate output does not
// match the output type.
type OutputValidationError struct {
	OutputType string
	Violations []string
}

func (e *OutputValidationError) Error() string {
	return fmt.Sprintf("output does not match %s: %s", e.OutputType, strings.Join(e.Violations, "; "))
}

// ValidateOutput checks the model's final text against the output type.
// With no output type, or a plain-text one, the text is returned unchanged.
// Otherwise the text, stripped of markdown code fences, must be JSON valid
// for the schema; the decoded value is returned.
func ValidateOutput(ctx context.Context, outputType OutputTypeInterface, rawText string) (any, error) {
	if outputType == nil || outputType.IsPlainText() {
		return rawText, nil
	}
	return outputType.ValidateJSON(ctx, transforms.StripCodeFences(rawText))
}

type outputTypeImpl[T any] struct {
	// Whether T is wrapped in an object, because it cannot be represented as
	// a JSON Schema object on its own.
	isWrapped        bool
	outputSchema     map[string]any
	compiled         *gojsonschema.Schema
	strictJSONSchema bool
	isPlainText      bool
	name             string
}

type wrappedOutputType[T any] struct {
	Response T `json:"response"`
}

// OutputType creates a new output type for T with default options (strict schema).
// It panics in case of errors. For a safer variant, see SafeOutputType.
func OutputType[T any]() OutputTypeInterface {
	result, err := SafeOutputType[T](OutputTypeOpts{StrictJSONSchema: true})
	if err != nil {
		panic(err)
	}
	return result
}

type OutputTypeOpts struct {
	StrictJSONSchema bool
}

// OutputTypeWithOpts creates a new output type for T with custom options.
// It panics in case of errors. For a safer variant, see SafeOutputType.
func OutputTypeWithOpts[T any](opts OutputTypeOpts) OutputTypeInterface {
	result, err := SafeOutputType[T](opts)
	if err != nil {
		panic(err)
	}
	return result
}

// SafeOutputType creates a new output type for T with custom options.
func SafeOutputType[T any](opts OutputTypeOpts) (OutputTypeInterface, error) {
	var zero T
	name := fmt.Sprintf("%T", zero)

	if _, isPlainText := any(zero).(string); isPlainText {
		return outputTypeImpl[T]{
			outputSchema: map[string]any{"type": "string"},
			isPlainText:  true,
			name:         name,
		}, nil
	}

	isWrapped := !isStruct[T]()
	reflector := jsonschema.Reflector{
		Anonymous:                 true,
		AllowAdditionalProperties: !opts.StrictJSONSchema,
		ExpandedStruct:            true,
	}

	var schema *jsonschema.Schema
	if isWrapped {
		schema = reflector.Reflect(wrappedOutputType[T]{})
	} else {
		schema = reflector.Reflect(zero)
	}
	outputSchema, err := reflectedSchemaMap(schema)
	if err != nil {
		return nil, err
	}

	if opts.StrictJSONSchema {
		outputSchema, err = EnsureStrictJSONSchema(outputSchema)
		if err != nil {
			return nil, UserErrorf("strict JSON schema is enabled, but the output type %s is not valid: %w", name, err)
		}
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(outputSchema))
	if err != nil {
		return nil, UserErrorf("failed to compile JSON schema of output type %s: %w", name, err)
	}

	return outputTypeImpl[T]{
		isWrapped:        isWrapped,
		outputSchema:     outputSchema,
		compiled:         compiled,
		strictJSONSchema: opts.StrictJSONSchema,
		name:             name,
	}, nil
}

// isStruct reports whether T is a struct or pointer to struct.
func isStruct[T any]() bool {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func (t outputTypeImpl[T]) IsPlainText() bool        { return t.isPlainText }
func (t outputTypeImpl[T]) Name() string             { return t.name }
func (t outputTypeImpl[T]) IsStrictJSONSchema() bool { return t.strictJSONSchema }

func (t outputTypeImpl[T]) JSONSchema() (map[string]any, error) {
	if t.isPlainText {
		return nil, NewUserError("output type is plain text, so no JSON schema is available")
	}
	return t.outputSchema, nil
}

func (t outputTypeImpl[T]) ValidateJSON(ctx context.Context, jsonStr string) (any, error) {
	if t.isPlainText {
		return nil, NewUserError("output type is plain text, so JSON validation is not available")
	}
	if err := validateOutputJSON(ctx, t.compiled, t.name, jsonStr); err != nil {
		return nil, err
	}

	if t.isWrapped {
		var wrapped wrappedOutputType[T]
		if err := json.Unmarshal([]byte(jsonStr), &wrapped); err != nil {
			return nil, outputDecodeError(ctx, t.name, err)
		}
		return wrapped.Response, nil
	}

	var output T
	if err := json.Unmarshal([]byte(jsonStr), &output); err != nil {
		return nil, outputDecodeError(ctx, t.name, err)
	}
	return output, nil
}

func validateOutputJSON(ctx context.Context, schema *gojsonschema.Schema, typeName, jsonStr string) error {
	violations, err := jsonViolations(schema, jsonStr)
	if err != nil {
		violations = []string{fmt.Sprintf("output is not valid JSON: %v", err)}
	}
	if len(violations) == 0 {
		return nil
	}
	AttachErrorToCurrentSpan(ctx, tracing.SpanError{
		Message: "Invalid JSON",
		Data:    map[string]any{"details": violations},
	})
	return &OutputValidationError{OutputType: typeName, Violations: violations}
}

func outputDecodeError(ctx context.Context, typeName string, err error) error {
	AttachErrorToCurrentSpan(ctx, tracing.SpanError{
		Message: "Invalid JSON",
		Data:    map[string]any{"details": err.Error()},
	})
	return &OutputValidationError{OutputType: typeName, Violations: []string{err.Error()}}
}

// jsonSchemaOutput is an output type described by a hand-written schema.
type jsonSchemaOutput struct {
	name     string
	schema   map[string]any
	strict   map[string]any
	compiled *gojsonschema.Schema
}

// NewJSONSchemaOutput creates an output type from an explicit JSON schema.
// Validated outputs are returned as decoded JSON values (map[string]any for
// object schemas). The schema is offered to the model in strict form when it
// can be converted.
func NewJSONSchemaOutput(name string, schema map[string]any) (OutputTypeInterface, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, UserErrorf("failed to compile JSON schema of output type %s: %w", name, err)
	}
	o := jsonSchemaOutput{name: name, schema: schema, compiled: compiled}
	if strict, err := EnsureStrictJSONSchema(schema); err == nil {
		o.strict = strict
	}
	return o, nil
}

func (o jsonSchemaOutput) IsPlainText() bool        { return false }
func (o jsonSchemaOutput) Name() string             { return o.name }
func (o jsonSchemaOutput) IsStrictJSONSchema() bool { return o.strict != nil }

func (o jsonSchemaOutput) JSONSchema() (map[string]any, error) {
	if o.strict != nil {
		return o.strict, nil
	}
	return o.schema, nil
}

func (o jsonSchemaOutput) ValidateJSON(ctx context.Context, jsonStr string) (any, error) {
	if err := validateOutputJSON(ctx, o.compiled, o.name, jsonStr); err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(jsonStr), &v); err != nil {
		return nil, outputDecodeError(ctx, o.name, err)
	}
	return v, nil
}
