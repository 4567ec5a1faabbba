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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer is implemented by Model Context Protocol servers used as tool
// sources. Every tool the server lists becomes a FunctionTool of the agent
// for the duration of a run.
type MCPServer interface {
	// Connect to the server.
	//
	// For example, this might mean spawning a subprocess or opening a network connection.
	// The server is expected to remain connected until Cleanup is called.
	Connect(context.Context) error

	// Cleanup the server, closing the subprocess or network connection.
	Cleanup(context.Context) error

	// Name returns a readable name for the server.
	Name() string

	// UseStructuredContent reports whether to use a tool result's
	// StructuredContent when calling an MCP tool.
	UseStructuredContent() bool

	// ListTools lists the tools available on the server for the given agent.
	ListTools(context.Context, *Agent) ([]*mcp.Tool, error)

	// CallTool invokes a tool on the server.
	CallTool(ctx context.Context, toolName string, arguments map[string]any) (*mcp.CallToolResult, error)
}

var errMCPNotConnected = NewUserError("MCP server not initialized: make sure you call Connect() first")

// MCPServerWithClientSession is a base type for MCP servers that uses an
// mcp.ClientSession to communicate with the server.
type MCPServerWithClientSession struct {
	transport            mcp.Transport
	name                 string
	toolFilter           MCPToolFilter
	useStructuredContent bool
	cacheToolsList       bool

	mu         sync.Mutex
	session    *mcp.ClientSession
	cacheDirty bool
	toolsList  []*mcp.Tool
}

type MCPServerWithClientSessionParams struct {
	Name      string
	Transport mcp.Transport

	// Cache the tools list after the first fetch. Call InvalidateToolsCache
	// to force a refetch. Only enable it if the server's tools never change.
	CacheToolsList bool

	// Optional filter deciding which tools are exposed to each agent.
	ToolFilter MCPToolFilter

	// Use a result's StructuredContent instead of its Content. Most servers
	// duplicate the structured content in Content, so this defaults to false.
	UseStructuredContent bool
}

func NewMCPServerWithClientSession(params MCPServerWithClientSessionParams) *MCPServerWithClientSession {
	return &MCPServerWithClientSession{
		transport:            params.Transport,
		name:                 params.Name,
		toolFilter:           params.ToolFilter,
		useStructuredContent: params.UseStructuredContent,
		cacheToolsList:       params.CacheToolsList,
		cacheDirty:           true,
	}
}

func (s *MCPServerWithClientSession) Connect(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			Logger().Error("Error initializing MCP server", slog.String("server", s.name), slog.String("error", err.Error()))
			if e := s.Cleanup(ctx); e != nil {
				err = errors.Join(err, fmt.Errorf("MCP server cleanup error: %w", e))
			}
		}
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: s.name}, nil)
	session, err := client.Connect(ctx, s.transport)
	if err != nil {
		return fmt.Errorf("MCP client connection error: %w", err)
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	return nil
}

func (s *MCPServerWithClientSession) Cleanup(context.Context) error {
	s.mu.Lock()
	session := s.session
	s.session = nil
	s.mu.Unlock()

	if session == nil {
		return nil
	}
	err := session.Close()
	if err != nil {
		Logger().Error("Error cleaning up MCP server", slog.String("server", s.name), slog.String("error", err.Error()))
	}
	return err
}

func (s *MCPServerWithClientSession) Name() string { return s.name }

func (s *MCPServerWithClientSession) UseStructuredContent() bool { return s.useStructuredContent }

func (s *MCPServerWithClientSession) currentSession() (*mcp.ClientSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, errMCPNotConnected
	}
	return s.session, nil
}

func (s *MCPServerWithClientSession) ListTools(ctx context.Context, agent *Agent) ([]*mcp.Tool, error) {
	session, err := s.currentSession()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	tools, cached := s.toolsList, s.cacheToolsList && !s.cacheDirty
	s.mu.Unlock()

	if !cached {
		result, err := session.ListTools(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("MCP list tools error: %w", err)
		}
		tools = result.Tools

		s.mu.Lock()
		s.toolsList = tools
		s.cacheDirty = false
		s.mu.Unlock()
	}

	return ApplyMCPToolFilter(ctx, MCPToolFilterContext{Agent: agent, ServerName: s.name}, s.toolFilter, tools), nil
}

func (s *MCPServerWithClientSession) CallTool(ctx context.Context, toolName string, arguments map[string]any) (*mcp.CallToolResult, error) {
	session, err := s.currentSession()
	if err != nil {
		return nil, err
	}
	return session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: arguments,
	})
}

// Run connects to the server, calls fn, then cleans up.
func (s *MCPServerWithClientSession) Run(ctx context.Context, fn func(context.Context, *MCPServerWithClientSession) error) (err error) {
	if err = s.Connect(ctx); err != nil {
		return fmt.Errorf("MCP server connection error: %w", err)
	}
	defer func() {
		if e := s.Cleanup(ctx); e != nil {
			err = errors.Join(err, fmt.Errorf("MCP server cleanup error: %w", e))
		}
	}()
	return fn(ctx, s)
}

// InvalidateToolsCache forces the next ListTools call to query the server.
func (s *MCPServerWithClientSession) InvalidateToolsCache() {
	s.mu.Lock()
	s.cacheDirty = true
	s.mu.Unlock()
}

type MCPServerStdioParams struct {
	// The command to run to start the server.
	Command *exec.Cmd

	// A readable name for the server. If not provided, one is derived from the command.
	Name string

	CacheToolsList       bool
	ToolFilter           MCPToolFilter
	UseStructuredContent bool
}

// MCPServerStdio is an MCP server reached through the stdio transport of a
// subprocess.
type MCPServerStdio struct {
	*MCPServerWithClientSession
}

func NewMCPServerStdio(params MCPServerStdioParams) *MCPServerStdio {
	name := params.Name
	if name == "" {
		name = fmt.Sprintf("stdio: %s", params.Command.Path)
	}
	return &MCPServerStdio{
		MCPServerWithClientSession: NewMCPServerWithClientSession(MCPServerWithClientSessionParams{
			Name:                 name,
			Transport:            mcp.NewCommandTransport(params.Command),
			CacheToolsList:       params.CacheToolsList,
			ToolFilter:           params.ToolFilter,
			UseStructuredContent: params.UseStructuredContent,
		}),
	}
}

type MCPServerStreamableHTTPParams struct {
	URL           string
	TransportOpts *mcp.StreamableClientTransportOptions

	// A readable name for the server. If not provided, one is derived from the URL.
	Name string

	CacheToolsList       bool
	ToolFilter           MCPToolFilter
	UseStructuredContent bool
}

// MCPServerStreamableHTTP is an MCP server reached through the Streamable
// HTTP transport.
type MCPServerStreamableHTTP struct {
	*MCPServerWithClientSession
}

func NewMCPServerStreamableHTTP(params MCPServerStreamableHTTPParams) *MCPServerStreamableHTTP {
	name := params.Name
	if name == "" {
		name = fmt.Sprintf("streamable_http: %s", params.URL)
	}
	return &MCPServerStreamableHTTP{
		MCPServerWithClientSession: NewMCPServerWithClientSession(MCPServerWithClientSessionParams{
			Name:                 name,
			Transport:            mcp.NewStreamableClientTransport(params.URL, params.TransportOpts),
			CacheToolsList:       params.CacheToolsList,
			ToolFilter:           params.ToolFilter,
			UseStructuredContent: params.UseStructuredContent,
		}),
	}
}
