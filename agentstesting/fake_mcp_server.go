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
package agentstesting

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nlpodyssey/agentlab/agents"
)

// FakeMCPServer is an in-memory MCPServer. Every call returns a text result
// naming the tool and echoing the arguments.
type FakeMCPServer struct {
	name       string
	Tools      []*mcp.Tool
	ToolFilter agents.MCPToolFilter

	// Optional override of the result of CallTool.
	CallToolFunc func(toolName string, arguments map[string]any) (*mcp.CallToolResult, error)

	mu          sync.Mutex
	connected   bool
	toolCalls   []string
	toolResults []string
}

func NewFakeMCPServer(tools []*mcp.Tool, toolFilter agents.MCPToolFilter, name string) *FakeMCPServer {
	return &FakeMCPServer{
		name:       cmp.Or(name, "fake_mcp_server"),
		Tools:      tools,
		ToolFilter: toolFilter,
	}
}

func (s *FakeMCPServer) AddTool(name string, inputSchema *jsonschema.Schema) {
	s.Tools = append(s.Tools, &mcp.Tool{
		Name:        name,
		InputSchema: inputSchema,
	})
}

func (s *FakeMCPServer) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *FakeMCPServer) Cleanup(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *FakeMCPServer) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *FakeMCPServer) Name() string               { return s.name }
func (s *FakeMCPServer) UseStructuredContent() bool { return false }

func (s *FakeMCPServer) ListTools(ctx context.Context, agent *agents.Agent) ([]*mcp.Tool, error) {
	filterContext := agents.MCPToolFilterContext{
		Agent:      agent,
		ServerName: s.name,
	}
	return agents.ApplyMCPToolFilter(ctx, filterContext, s.ToolFilter, s.Tools), nil
}

func (s *FakeMCPServer) CallTool(_ context.Context, toolName string, arguments map[string]any) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	s.toolCalls = append(s.toolCalls, toolName)
	s.mu.Unlock()

	if s.CallToolFunc != nil {
		return s.CallToolFunc(toolName, arguments)
	}

	b, err := json.Marshal(arguments)
	if err != nil {
		return nil, err
	}
	result := fmt.Sprintf("result_%s_%s", toolName, string(b))

	s.mu.Lock()
	s.toolResults = append(s.toolResults, result)
	s.mu.Unlock()
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: result}}}, nil
}

func (s *FakeMCPServer) ToolCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.toolCalls...)
}

func (s *FakeMCPServer) ToolResults() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.toolResults...)
}
