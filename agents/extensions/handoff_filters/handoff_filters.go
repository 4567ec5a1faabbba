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
// Package handoff_filters contains common conversation filters to apply
// before handing a conversation to another run.
package handoff_filters

import (
	"github.com/nlpodyssey/agentlab/agents"
)

// RemoveAllTools drops tool results and the tool calls of assistant
// messages. Assistant messages left without text are dropped as well.
func RemoveAllTools(conv agents.Conversation) agents.Conversation {
	filtered := make(agents.Conversation, 0, len(conv))
	for _, m := range conv {
		switch m.Role {
		case agents.RoleTool:
			continue
		case agents.RoleAssistant:
			if m.Content == "" {
				continue
			}
			m.ToolCalls = nil
		}
		filtered = append(filtered, m)
	}
	return filtered
}

// RemoveHandoffs drops handoff tool calls and their results, keeping every
// other tool interaction.
func RemoveHandoffs(conv agents.Conversation) agents.Conversation {
	handoffIDs := make(map[string]struct{})
	filtered := make(agents.Conversation, 0, len(conv))
	for _, m := range conv {
		switch m.Role {
		case agents.RoleAssistant:
			var calls []agents.ToolCall
			for _, c := range m.ToolCalls {
				if agents.IsHandoffToolName(c.Name, nil, nil) {
					handoffIDs[c.ID] = struct{}{}
					continue
				}
				calls = append(calls, c)
			}
			if m.Content == "" && len(calls) == 0 {
				continue
			}
			m.ToolCalls = calls
		case agents.RoleTool:
			if _, ok := handoffIDs[m.ToolCallID]; ok {
				continue
			}
		}
		filtered = append(filtered, m)
	}
	return filtered
}
