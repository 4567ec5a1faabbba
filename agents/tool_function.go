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

	"github.com/invopop/jsonschema"
	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/openai/openai-go/v2/packages/param"
)

// NewFunctionTool creates a FunctionTool whose parameter schema is reflected
// from T. Fields without `omitempty` are required; `jsonschema` struct tags
// add constraints, e.g. `jsonschema:"enum=celsius,enum=fahrenheit"`.
//
// The handler receives a context carrying the run's *runcontext.Wrapper
// (see runcontext.FromContext) and the decoded arguments.
//
// Example:
//
//	type WeatherArgs struct {
//	    City string `json:"city"`
//	}
//
//	tool := NewFunctionTool("get_weather", "Get current weather",
//	    func(ctx context.Context, args WeatherArgs) (string, error) {
//	        return "sunny in " + args.City, nil
//	    })
func NewFunctionTool[T, R any](name string, description string, handler func(ctx context.Context, args T) (R, error)) FunctionTool {
	reflector := &jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: false,
		AllowAdditionalProperties:  false,
	}

	var zero T
	schemaMap, err := reflectedSchemaMap(reflector.Reflect(&zero))
	if err != nil {
		panic(fmt.Errorf("tool %q: %w", name, err))
	}

	return FunctionTool{
		Name:             name,
		Description:      description,
		ParamsJSONSchema: schemaMap,
		StrictJSONSchema: param.NewOpt(true),
		OnInvokeTool: func(ctx context.Context, rc *runcontext.Wrapper, arguments string) (any, error) {
			var args T
			if err := json.Unmarshal([]byte(arguments), &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments: %w", err)
			}
			return handler(runcontext.NewContext(ctx, rc), args)
		},
	}
}

func reflectedSchemaMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to JSON-marshal JSON schema: %w", err)
	}
	var schemaMap map[string]any
	if err = json.Unmarshal(b, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to JSON-unmarshal JSON schema: %w", err)
	}
	// The reflector adds these, but tool parameter schemas are inlined.
	delete(schemaMap, "$schema")
	delete(schemaMap, "$id")
	return schemaMap, nil
}
