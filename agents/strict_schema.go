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
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

func newEmptyJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           map[string]any{},
		"required":             []string{},
	}
}

// EnsureStrictJSONSchema returns a copy of the schema conforming to the
// "strict" subset accepted by structured-output backends: every object
// closes additionalProperties and lists all its properties as required,
// and $refs mixed with other keywords are inlined.
func EnsureStrictJSONSchema(schema map[string]any) (map[string]any, error) {
	if len(schema) == 0 {
		return newEmptyJSONSchema(), nil
	}
	root, err := cloneJSONMap(schema)
	if err != nil {
		return nil, err
	}
	return strictSchema{root: root}.visit(root, nil)
}

func cloneJSONMap(m map[string]any) (map[string]any, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to JSON-marshal JSON schema: %w", err)
	}
	var out map[string]any
	if err = json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to JSON-unmarshal JSON schema: %w", err)
	}
	return out, nil
}

type strictSchema struct {
	root map[string]any
}

func (s strictSchema) visit(node any, path []string) (map[string]any, error) {
	schema, ok := node.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON schema object at %q, got %T", strings.Join(path, "/"), node)
	}

	for _, defKey := range []string{"$defs", "definitions"} {
		defs, _ := schema[defKey].(map[string]any)
		for name, def := range defs {
			if _, err := s.visit(def, append(slices.Clone(path), defKey, name)); err != nil {
				return nil, err
			}
		}
	}

	if typ, _ := schema["type"].(string); typ == "object" {
		switch schema["additionalProperties"] {
		case nil, false:
			schema["additionalProperties"] = false
		case true:
			return nil, NewUserError(
				"additionalProperties should not be set for object types in strict mode; " +
					"disable the strict JSON schema to allow additional properties",
			)
		}
	}

	if properties, ok := schema["properties"].(map[string]any); ok {
		schema["required"] = slices.Sorted(maps.Keys(properties))
		for key, prop := range properties {
			v, err := s.visit(prop, append(slices.Clone(path), "properties", key))
			if err != nil {
				return nil, err
			}
			properties[key] = v
		}
	}

	if items, ok := schema["items"].(map[string]any); ok {
		v, err := s.visit(items, append(slices.Clone(path), "items"))
		if err != nil {
			return nil, err
		}
		schema["items"] = v
	}

	if err := s.visitEach(schema, "anyOf", path); err != nil {
		return nil, err
	}

	if allOf, ok := schema["allOf"].([]any); ok && len(allOf) == 1 {
		v, err := s.visit(allOf[0], append(slices.Clone(path), "allOf", "0"))
		if err != nil {
			return nil, err
		}
		delete(schema, "allOf")
		maps.Copy(schema, v)
	} else if err := s.visitEach(schema, "allOf", path); err != nil {
		return nil, err
	}

	// A nil default carries no information.
	if d, ok := schema["default"]; ok && d == nil {
		delete(schema, "default")
	}

	// $ref cannot be combined with sibling keywords: inline it.
	if rawRef, ok := schema["$ref"]; ok && len(schema) > 1 {
		ref, ok := rawRef.(string)
		if !ok {
			return nil, fmt.Errorf("received non-string $ref: %#v", rawRef)
		}
		resolved, err := s.resolveRef(ref)
		if err != nil {
			return nil, err
		}
		delete(schema, "$ref")
		for k, v := range resolved {
			if _, exists := schema[k]; !exists {
				schema[k] = v
			}
		}
		return s.visit(schema, path)
	}

	return schema, nil
}

func (s strictSchema) visitEach(schema map[string]any, key string, path []string) error {
	variants, ok := schema[key].([]any)
	if !ok {
		return nil
	}
	for i, variant := range variants {
		v, err := s.visit(variant, append(slices.Clone(path), key, strconv.Itoa(i)))
		if err != nil {
			return err
		}
		variants[i] = v
	}
	return nil
}

func (s strictSchema) resolveRef(ref string) (map[string]any, error) {
	if !strings.HasPrefix(ref, "#/") {
		return nil, fmt.Errorf("unexpected $ref format %q: expected `#/` prefix", ref)
	}
	resolved := s.root
	for _, key := range strings.Split(ref[2:], "/") {
		next, ok := resolved[key].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot resolve $ref %q: %q is not an object", ref, key)
		}
		resolved = next
	}
	return resolved, nil
}
