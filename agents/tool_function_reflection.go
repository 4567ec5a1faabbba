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
	"unicode"
	"unicode/utf8"

	"github.com/invopop/jsonschema"
	"github.com/matteo-grella/dwarfreflect"
	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/nlpodyssey/agentlab/util/transforms"
	"github.com/openai/openai-go/v2/packages/param"
)

// NewFunctionToolAny creates a FunctionTool from any function, reading
// parameter names from DWARF debug info. It fails if the binary was built
// without debug info (e.g. with -ldflags="-w").
//
// A context.Context parameter, in any position, is excluded from the schema
// and receives the run context. JSON argument names are the snake_case
// parameter names. If name is empty, the snake_case function name is used.
//
// Supported return shapes: nothing, (R), (error), (R, error).
func NewFunctionToolAny(name string, description string, handler any) (FunctionTool, error) {
	fn, err := dwarfreflect.NewFunction(handler)
	if err != nil {
		return FunctionTool{}, err
	}

	if name == "" {
		name = transforms.ToSnakeCase(fn.GetBaseFunctionName())
	}

	argStructType := fn.GetNonContextStructTypeWithOptions(dwarfStructOptions())
	argNames, _ := fn.GetNonContextParameters()
	extractResult := newResultExtractor(fn)

	schemaMap := newEmptyJSONSchema()
	if len(argNames) > 0 {
		reflector := &jsonschema.Reflector{
			ExpandedStruct:             true,
			RequiredFromJSONSchemaTags: false,
			AllowAdditionalProperties:  false,
		}
		schemaMap, err = reflectedSchemaMap(reflector.ReflectFromType(argStructType))
		if err != nil {
			return FunctionTool{}, fmt.Errorf("tool %q: %w", name, err)
		}
	}

	return FunctionTool{
		Name:             name,
		Description:      description,
		ParamsJSONSchema: schemaMap,
		StrictJSONSchema: param.NewOpt(true),
		OnInvokeTool: func(ctx context.Context, rc *runcontext.Wrapper, arguments string) (any, error) {
			ctx = runcontext.NewContext(ctx, rc)
			if len(argNames) == 0 {
				results, err := fn.CallWithContext(ctx)
				if err != nil {
					return nil, err
				}
				return extractResult(results)
			}

			argStructPtr := reflect.New(argStructType)
			if err := json.Unmarshal([]byte(arguments), argStructPtr.Interface()); err != nil {
				return nil, fmt.Errorf("failed to parse arguments: %w", err)
			}
			results, err := fn.CallWithNonContextStructAndContext(ctx, argStructPtr.Elem().Interface())
			if err != nil {
				return nil, err
			}
			return extractResult(results)
		},
	}, nil
}

func dwarfStructOptions() dwarfreflect.StructOptions {
	return dwarfreflect.StructOptions{
		FieldNamer: exportedFieldName,
		TagBuilder: func(paramName string, paramType reflect.Type) string {
			tag := fmt.Sprintf(`json:"%s"`, transforms.ToSnakeCase(paramName))
			if constraints := typeConstraints(paramType); constraints != "" {
				tag += fmt.Sprintf(` jsonschema:"%s"`, constraints)
			}
			return tag
		},
	}
}

func exportedFieldName(paramName string) string {
	r, size := utf8.DecodeRuneInString(paramName)
	if r == utf8.RuneError {
		return paramName
	}
	return string(unicode.ToUpper(r)) + paramName[size:]
}

// typeConstraints maps Go kinds to jsonschema tag constraints.
func typeConstraints(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "type=integer"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "type=integer,minimum=0"
	case reflect.Float32, reflect.Float64:
		return "type=number"
	case reflect.Bool:
		return "type=boolean"
	case reflect.Slice:
		return "type=array"
	case reflect.Map:
		return "type=object"
	default:
		return ""
	}
}

type resultExtractor func(results []reflect.Value) (any, error)

func newResultExtractor(fn *dwarfreflect.Function) resultExtractor {
	returnTypes, lastIsError := fn.GetReturnInfo()

	asError := func(v reflect.Value) error {
		if v.IsNil() {
			return nil
		}
		err, _ := v.Interface().(error)
		return err
	}

	return func(results []reflect.Value) (any, error) {
		switch {
		case len(returnTypes) == 0:
			return nil, nil
		case len(returnTypes) == 1 && lastIsError:
			return nil, asError(results[0])
		case len(returnTypes) == 1:
			return results[0].Interface(), nil
		case lastIsError:
			values := make([]any, len(results)-1)
			for i := range values {
				values[i] = results[i].Interface()
			}
			err := asError(results[len(results)-1])
			if len(values) == 1 {
				return values[0], err
			}
			return values, err
		default:
			values := make([]any, len(results))
			for i, r := range results {
				values[i] = r.Interface()
			}
			return values, nil
		}
	}
}
