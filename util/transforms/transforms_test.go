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

package transforms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformStringFunctionStyle(t *testing.T) {
	assert.Equal(t, "foo_bar_123_baz_quux_", TransformStringFunctionStyle("Foo Bar 123?Baz Quux!"))
	assert.Equal(t, "tech_support_specialist", TransformStringFunctionStyle("Tech Support Specialist"))
}

func TestToCamelCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"snake_case", "snakeCase"},
		{"PascalCase", "pascalCase"},
		{"camelCase", "camelCase"},
		{"", ""},
		{"single", "single"},
		{"UPPER_CASE", "upperCase"},
		{"multiple_word_example", "multipleWordExample"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToCamelCase(tt.input))
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"camelCase", "camel_case"},
		{"PascalCase", "pascal_case"},
		{"snake_case", "snake_case"},
		{"", ""},
		{"single", "single"},
		{"HTTPRequest", "httprequest"},
		{"getHTTPResponse", "get_httpresponse"},
		{"getWeather", "get_weather"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToSnakeCase(tt.input))
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding space", "  \n```json\n{\"a\":1}```  ", `{"a":1}`},
		{"inner fence kept", "text ```x``` text", "text ```x``` text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripCodeFences(tt.input))
		})
	}
}
