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
	"fmt"
	"strings"

	"github.com/nlpodyssey/agentlab/tracing"
	"github.com/xeipuuv/gojsonschema"
)

// ValidateJSON validates a JSON string against a compiled schema.
// On failure it returns a ModelBehaviorError listing each violation, and
// attaches the error to the current span.
func ValidateJSON(ctx context.Context, schema *gojsonschema.Schema, jsonValue string) (err error) {
	defer func() {
		if err != nil {
			AttachErrorToCurrentSpan(ctx, tracing.SpanError{Message: "Invalid JSON provided"})
		}
	}()

	violations, err := jsonViolations(schema, jsonValue)
	if err != nil {
		return ModelBehaviorErrorf("failed to load and validate JSON: %w", err)
	}
	if len(violations) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("JSON validation failed with the following errors:\n")
	for _, v := range violations {
		_, _ = fmt.Fprintf(&sb, "- %s\n", v)
	}
	return NewModelBehaviorError(sb.String())
}

func jsonViolations(schema *gojsonschema.Schema, jsonValue string) ([]string, error) {
	result, err := schema.Validate(gojsonschema.NewStringLoader(jsonValue))
	if err != nil {
		return nil, err
	}
	if result.Valid() {
		return nil, nil
	}
	violations := make([]string, len(result.Errors()))
	for i, e := range result.Errors() {
		violations[i] = e.String()
	}
	return violations, nil
}
