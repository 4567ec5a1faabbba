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
	"regexp"
	"strings"
	"unicode"
)

var (
	nonAlphanumericRegexp = regexp.MustCompile(`[^a-zA-Z0-9]`)
	codeFenceRegexp       = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*\n?(.*?)\\s*```$")
)

// TransformStringFunctionStyle turns an arbitrary label, such as an agent
// name, into an identifier usable as a function/tool name.
func TransformStringFunctionStyle(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = nonAlphanumericRegexp.ReplaceAllString(name, "_")
	return strings.ToLower(name)
}

// ToSnakeCase converts camelCase and PascalCase identifiers to snake_case.
// An underscore is inserted only at lower-to-upper transitions, so runs of
// capitals stay together.
func ToSnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ToCamelCase converts snake_case and PascalCase identifiers to camelCase.
func ToCamelCase(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if isAllUpper(p) {
			p = strings.ToLower(p)
		}
		runes := []rune(p)
		if i == 0 || b.Len() == 0 {
			runes[0] = unicode.ToLower(runes[0])
		} else {
			runes[0] = unicode.ToUpper(runes[0])
		}
		b.WriteString(string(runes))
	}
	return b.String()
}

// StripCodeFences removes a surrounding markdown code fence, if any, and
// trims the result.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRegexp.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
