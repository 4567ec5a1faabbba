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
	"log/slog"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nlpodyssey/agentlab/tracing"
)

// MCPToolFilterContext is what a tool filter knows about the request.
type MCPToolFilterContext struct {
	// The agent that is requesting the tool list. It may be nil.
	Agent *Agent

	// The name of the MCP server.
	ServerName string
}

type MCPToolFilter interface {
	// FilterMCPTool reports whether a tool should be exposed.
	FilterMCPTool(context.Context, MCPToolFilterContext, *mcp.Tool) (bool, error)
}

type MCPToolFilterFunc func(context.Context, MCPToolFilterContext, *mcp.Tool) (bool, error)

func (f MCPToolFilterFunc) FilterMCPTool(ctx context.Context, filterCtx MCPToolFilterContext, t *mcp.Tool) (bool, error) {
	return f(ctx, filterCtx, t)
}

// MCPToolFilterStatic filters tools by name.
type MCPToolFilterStatic struct {
	// If not nil, only these tools are exposed.
	AllowedToolNames []string

	// If not nil, these tools are hidden.
	BlockedToolNames []string
}

func (f MCPToolFilterStatic) FilterMCPTool(_ context.Context, _ MCPToolFilterContext, t *mcp.Tool) (bool, error) {
	allowed := f.AllowedToolNames == nil || slices.Contains(f.AllowedToolNames, t.Name)
	blocked := f.BlockedToolNames != nil && slices.Contains(f.BlockedToolNames, t.Name)
	return allowed && !blocked, nil
}

// ApplyMCPToolFilter returns the tools accepted by the filter. A tool whose
// filter call fails is excluded.
func ApplyMCPToolFilter(
	ctx context.Context,
	filterContext MCPToolFilterContext,
	toolFilter MCPToolFilter,
	tools []*mcp.Tool,
) []*mcp.Tool {
	if toolFilter == nil {
		return tools
	}

	var filtered []*mcp.Tool
	for _, tool := range tools {
		include, err := toolFilter.FilterMCPTool(ctx, filterContext, tool)
		if err != nil {
			Logger().Error("Error applying MCP tool filter",
				slog.String("toolName", tool.Name),
				slog.String("serverName", filterContext.ServerName),
				slog.String("error", err.Error()),
			)
			continue
		}
		if include {
			filtered = append(filtered, tool)
		}
	}
	return filtered
}

// MCPFunctionTools lists the tools of every server and converts them to
// FunctionTools, in server order. Names must be unique across servers.
func MCPFunctionTools(ctx context.Context, servers []MCPServer, agent *Agent) ([]Tool, error) {
	var tools []Tool
	seen := make(map[string]string)
	for _, server := range servers {
		serverTools, err := MCPServerFunctionTools(ctx, server, agent)
		if err != nil {
			return nil, err
		}
		for _, t := range serverTools {
			if other, ok := seen[t.ToolName()]; ok {
				return nil, UserErrorf("duplicate tool name %q found on MCP servers %s and %s", t.ToolName(), other, server.Name())
			}
			seen[t.ToolName()] = server.Name()
		}
		tools = append(tools, serverTools...)
	}
	return tools, nil
}

// MCPServerFunctionTools lists the tools of a single server, within an
// "mcp_tools" span, and converts them to FunctionTools.
func MCPServerFunctionTools(ctx context.Context, server MCPServer, agent *Agent) ([]Tool, error) {
	var mcpTools []*mcp.Tool
	err := tracing.MCPToolsSpan(
		ctx, tracing.MCPToolsSpanParams{Server: server.Name()},
		func(ctx context.Context, span tracing.Span) error {
			var err error
			mcpTools, err = server.ListTools(ctx, agent)
			if err != nil {
				AttachErrorToSpan(span, tracing.SpanError{
					Message: "Error listing MCP tools",
					Data:    map[string]any{"error": err.Error()},
				})
				return err
			}
			names := make([]string, len(mcpTools))
			for i, t := range mcpTools {
				names[i] = t.Name
			}
			span.SpanData().(*tracing.MCPListToolsSpanData).Result = names
			return nil
		})
	if err != nil {
		return nil, err
	}

	tools := make([]Tool, len(mcpTools))
	for i, mcpTool := range mcpTools {
		ft, err := NewMCPFunctionTool(mcpTool, server)
		if err != nil {
			return nil, err
		}
		tools[i] = ft
	}
	return tools, nil
}
