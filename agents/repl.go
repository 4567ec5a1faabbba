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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nlpodyssey/agentlab/runcontext"
)

// RunDemoLoop runs a simple REPL loop with the given agent.
//
// This utility allows quick manual testing and debugging of an agent from the
// command line. Conversation state is preserved across turns. Enter "exit"
// or "quit" to stop the loop.
func RunDemoLoop(ctx context.Context, agent *Agent) error {
	return DefaultRunner.RunDemoLoopRW(ctx, agent, nil, os.Stdin, os.Stdout)
}

// RunDemoLoopRW is like RunDemoLoop, reading user lines from r and writing
// replies to w. After a handoff, the next turn starts from the agent that
// produced the last reply.
func (r Runner) RunDemoLoopRW(ctx context.Context, agent *Agent, rc *runcontext.Wrapper, in io.Reader, w io.Writer) error {
	currentAgent := agent
	var conv Conversation

	writeAndFlush := func(s string) (err error) {
		if _, err = io.WriteString(w, s); err != nil {
			return err
		}
		if flusher, ok := w.(interface{ Flush() error }); ok {
			_ = flusher.Flush()
		} else if syncer, ok := w.(interface{ Sync() error }); ok {
			_ = syncer.Sync()
		}
		return nil
	}

	scanner := bufio.NewScanner(in)

	for {
		if err := writeAndFlush("> "); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return writeAndFlush("\n")
		}
		userInput := scanner.Text()

		if v := strings.ToLower(strings.TrimSpace(userInput)); v == "exit" || v == "quit" {
			return nil
		} else if v == "" {
			continue
		}

		conv = append(conv, UserMessage(userInput))
		result, err := r.RunConversation(ctx, currentAgent, conv, rc)
		var tripwire InputGuardrailTripwireTriggeredError
		switch {
		case errors.As(err, &tripwire):
			conv = conv[:len(conv)-1]
			if err = writeAndFlush(fmt.Sprintf("[blocked by guardrail %q]\n", tripwire.GuardrailResult.Guardrail.Name)); err != nil {
				return err
			}
			continue
		case err != nil:
			return err
		}

		for _, m := range result.NewMessages {
			if m.Role == RoleTool && m.ToolCallID != "" && !IsHandoffToolName(m.ToolName, nil, nil) {
				if err = writeAndFlush(fmt.Sprintf("[tool %s: %s]\n", m.ToolName, m.Content)); err != nil {
					return err
				}
			}
		}
		if result.LastAgent != currentAgent {
			if err = writeAndFlush(fmt.Sprintf("[agent updated: %s]\n", result.LastAgent.Name)); err != nil {
				return err
			}
		}
		if err = writeAndFlush(strings.TrimSpace(finalOutputStr(result.FinalOutput)) + "\n"); err != nil {
			return err
		}

		currentAgent = result.LastAgent
		conv = result.ToConversation()
	}
}
