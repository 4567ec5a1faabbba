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
package handoff_filters_test

import (
	"testing"

	"github.com/nlpodyssey/agentlab/agents"
	"github.com/nlpodyssey/agentlab/agents/extensions/handoff_filters"
	"github.com/stretchr/testify/assert"
)

func sampleConversation() agents.Conversation {
	lookup := agents.ToolCall{ID: "c1", Name: "lookup", Arguments: `{}`}
	transfer := agents.ToolCall{ID: "c2", Name: "transfer_to_billing", Arguments: `{}`}
	return agents.Conversation{
		agents.UserMessage("hi"),
		agents.AssistantMessage("triage", "", lookup),
		agents.ToolResultMessage("triage", lookup, "found", false),
		agents.AssistantMessage("triage", "let me transfer you", transfer),
		agents.ToolResultMessage("triage", transfer, `{"assistant":"billing"}`, false),
		agents.AssistantMessage("billing", "hello from billing"),
	}
}

func TestRemoveAllTools(t *testing.T) {
	got := handoff_filters.RemoveAllTools(sampleConversation())
	assert.Equal(t, agents.Conversation{
		agents.UserMessage("hi"),
		agents.AssistantMessage("triage", "let me transfer you"),
		agents.AssistantMessage("billing", "hello from billing"),
	}, got)
}

func TestRemoveAllTools_Empty(t *testing.T) {
	assert.Empty(t, handoff_filters.RemoveAllTools(nil))
}

func TestRemoveHandoffs(t *testing.T) {
	conv := sampleConversation()
	got := handoff_filters.RemoveHandoffs(conv)
	assert.Len(t, got, 5)
	assert.Equal(t, conv[:3], got[:3])
	assert.Equal(t, "let me transfer you", got[3].Content)
	assert.Empty(t, got[3].ToolCalls)
	assert.Equal(t, "hello from billing", got[4].Content)

	// input is left untouched
	assert.Len(t, conv[3].ToolCalls, 1)
}
