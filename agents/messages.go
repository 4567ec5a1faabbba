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

import "slices"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	// Identifier assigned by the backend, echoed back in the tool result.
	ID string
	// Name of the tool (or handoff tool) being called.
	Name string
	// Arguments as a JSON string.
	Arguments string
}

// Message is one entry of a Conversation.
type Message struct {
	Role Role

	// Text content. For tool messages, the tool result.
	Content string

	// Tool calls requested by an assistant message, in the order the model
	// listed them.
	ToolCalls []ToolCall

	// For tool messages: the call being answered.
	ToolCallID string
	ToolName   string
	IsError    bool

	// Name of the agent that produced an assistant or tool message.
	Agent string
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func AssistantMessage(agent, text string, calls ...ToolCall) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   text,
		ToolCalls: calls,
		Agent:     agent,
	}
}

func ToolResultMessage(agent string, call ToolCall, content string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
		IsError:    isError,
		Agent:      agent,
	}
}

// Conversation is an ordered sequence of messages.
type Conversation []Message

func (c Conversation) Clone() Conversation {
	out := slices.Clone(c)
	for i := range out {
		out[i].ToolCalls = slices.Clone(out[i].ToolCalls)
	}
	return out
}

// LastAssistantText returns the content of the last assistant message that
// has text, or an empty string.
func (c Conversation) LastAssistantText() string {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == RoleAssistant && c[i].Content != "" {
			return c[i].Content
		}
	}
	return ""
}

// ToolCalls returns every tool call requested in the conversation.
func (c Conversation) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, m := range c {
		calls = append(calls, m.ToolCalls...)
	}
	return calls
}

// ToolResults returns every tool result message in the conversation.
func (c Conversation) ToolResults() []Message {
	var results []Message
	for _, m := range c {
		if m.Role == RoleTool {
			results = append(results, m)
		}
	}
	return results
}
