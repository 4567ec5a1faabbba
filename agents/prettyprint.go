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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

func indent(text string, indentLevel int) string {
	indentString := strings.Repeat("  ", indentLevel)

	var sb strings.Builder
	for line := range strings.Lines(text) {
		sb.WriteString(indentString)
		sb.WriteString(line)
	}
	return sb.String()
}

func finalOutputStr(finalOutput any) string {
	switch v := finalOutput.(type) {
	case nil:
		return "None"
	case string:
		return v
	default:
		s, err := PrettyJSONMarshal(v)
		if err != nil {
			return fmt.Sprintf("%+v", v)
		}
		return s
	}
}

// PrettyPrintResult renders a human-readable summary of a run.
func PrettyPrintResult(result *RunResult) string {
	var sb strings.Builder

	sb.WriteString("RunResult:")
	lastAgent := "<nil>"
	if result.LastAgent != nil {
		lastAgent = result.LastAgent.Name
	}
	_, _ = fmt.Fprintf(&sb, "\n- Last agent: Agent(name=%q, ...)", lastAgent)

	_, _ = fmt.Fprintf(&sb, "\n- Final output (%T):\n", result.FinalOutput)
	sb.WriteString(indent(strings.TrimSuffix(finalOutputStr(result.FinalOutput), "\n"), 2))

	_, _ = fmt.Fprintf(&sb, "\n- %d new message(s)", len(result.NewMessages))
	_, _ = fmt.Fprintf(&sb, "\n- %d raw response(s)", len(result.RawResponses))
	_, _ = fmt.Fprintf(&sb, "\n- %d handoff(s), %d output repair(s)", result.HandoffCount, result.OutputRepairs)
	_, _ = fmt.Fprintf(&sb, "\n- %d input guardrail result(s)", len(result.InputGuardrailResults))
	_, _ = fmt.Fprintf(&sb, "\n- %d output guardrail result(s)", len(result.OutputGuardrailResults))

	return sb.String()
}

// PrettyPrintConversation renders a conversation one message per line,
// attributing each assistant and tool message to its agent.
func PrettyPrintConversation(c Conversation) string {
	var sb strings.Builder
	for _, m := range c {
		who := string(m.Role)
		if m.Agent != "" {
			who = fmt.Sprintf("%s (%s)", m.Role, m.Agent)
		}
		switch {
		case m.Role == RoleTool:
			status := "ok"
			if m.IsError {
				status = "error"
			}
			_, _ = fmt.Fprintf(&sb, "%s -> %s [%s]: %s\n", who, m.ToolName, status, m.Content)
		case len(m.ToolCalls) > 0:
			for _, call := range m.ToolCalls {
				_, _ = fmt.Fprintf(&sb, "%s calls %s(%s)\n", who, call.Name, call.Arguments)
			}
			if m.Content != "" {
				_, _ = fmt.Fprintf(&sb, "%s: %s\n", who, m.Content)
			}
		default:
			_, _ = fmt.Fprintf(&sb, "%s: %s\n", who, m.Content)
		}
	}
	return sb.String()
}

func PrettyJSONMarshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(v)
	return buf.String(), err
}

// SimplePrettyJSONMarshal is like PrettyJSONMarshal, but on failure it
// returns a placeholder instead of an error. Meant for logging.
func SimplePrettyJSONMarshal(v any) string {
	s, err := PrettyJSONMarshal(v)
	if err != nil {
		return fmt.Sprintf("<unable to marshal %T: %v>", v, err)
	}
	return s
}
