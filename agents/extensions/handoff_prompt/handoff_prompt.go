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
package handoff_prompt

import "fmt"

// RecommendedPromptPrefix explains handoffs to a model. Include it, or
// similar instructions, in agents that declare handoffs.
const RecommendedPromptPrefix = "# System context\n" +
	"You are part of a multi-agent system. Each agent has its own instructions and tools, " +
	"and can transfer the conversation to another agent when that agent is better suited " +
	"to handle the request. Transfers are achieved by calling a handoff function, named " +
	"`transfer_to_<agent_name>`. Call at most one handoff function per reply. " +
	"Transfers are handled seamlessly in the background; do not mention or draw attention " +
	"to these transfers in your conversation with the user.\n"

// PromptWithHandoffInstructions prepends RecommendedPromptPrefix to prompt.
func PromptWithHandoffInstructions(prompt string) string {
	return fmt.Sprintf("%s\n\n%s", RecommendedPromptPrefix, prompt)
}
