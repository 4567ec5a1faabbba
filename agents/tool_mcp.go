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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/nlpodyssey/agentlab/tracing"
	"github.com/openai/openai-go/v2/packages/param"
)

// NewMCPFunctionTool converts a tool listed by an MCP server into a
// FunctionTool that calls the server when invoked. The input schema is
// offered in strict form when it can be converted.
func NewMCPFunctionTool(tool *mcp.Tool, server MCPServer) (FunctionTool, error) {
	schema, err := mcpInputSchema(tool)
	if err != nil {
		return FunctionTool{}, fmt.Errorf("MCP tool %s: %w", tool.Name, err)
	}

	strict := true
	if _, err := EnsureStrictJSONSchema(schema); err != nil {
		Logger().Debug("MCP tool schema cannot be made strict",
			slog.String("toolName", tool.Name), slog.String("error", err.Error()))
		strict = false
	}

	return FunctionTool{
		Name:             tool.Name,
		Description:      tool.Description,
		ParamsJSONSchema: schema,
		StrictJSONSchema: param.NewOpt(strict),
		OnInvokeTool: func(ctx context.Context, _ *runcontext.Wrapper, arguments string) (any, error) {
			return invokeMCPTool(ctx, server, tool.Name, arguments)
		},
	}, nil
}

func mcpInputSchema(tool *mcp.Tool) (map[string]any, error) {
	schema := make(map[string]any)
	if tool.InputSchema != nil {
		b, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to JSON-marshal input schema: %w", err)
		}
		if err = json.Unmarshal(b, &schema); err != nil {
			return nil, fmt.Errorf("failed to JSON-unmarshal input schema: %w", err)
		}
	}
	if _, ok := schema["type"]; !ok {
		schema["type"] = "object"
	}
	// MCP does not require "properties", chat-completion backends do.
	if _, ok := schema["properties"]; !ok {
		schema["properties"] = map[string]any{}
	}
	return schema, nil
}

func invokeMCPTool(ctx context.Context, server MCPServer, toolName, arguments string) (string, error) {
	var args map[string]any
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("invalid JSON arguments for MCP tool %s: %w", toolName, err)
		}
	}

	result, err := server.CallTool(ctx, toolName, args)
	if err != nil {
		Logger().Error("Error invoking MCP tool",
			slog.String("toolName", toolName),
			slog.String("server", server.Name()),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("error invoking MCP tool %s: %w", toolName, err)
	}

	output, err := mcpToolOutput(server, result)
	if err != nil {
		return "", fmt.Errorf("MCP tool %s: %w", toolName, err)
	}

	if span := tracing.GetCurrentSpan(ctx); span != nil {
		if data, ok := span.SpanData().(*tracing.FunctionSpanData); ok {
			data.MCPData = map[string]any{"server": server.Name()}
		}
	}

	if result.IsError {
		return "", errors.New(output)
	}
	return output, nil
}

// mcpToolOutput flattens a tool result into the single string a tool result
// message carries. Text-only results are joined; anything else is JSON.
func mcpToolOutput(server MCPServer, result *mcp.CallToolResult) (string, error) {
	if server.UseStructuredContent() && result.StructuredContent != nil {
		b, err := json.Marshal(result.StructuredContent)
		if err != nil {
			return "", fmt.Errorf("failed to JSON-marshal structured content: %w", err)
		}
		return string(b), nil
	}

	texts := make([]string, 0, len(result.Content))
	for _, c := range result.Content {
		tc, ok := c.(*mcp.TextContent)
		if !ok {
			texts = nil
			break
		}
		texts = append(texts, tc.Text)
	}
	if texts != nil {
		return strings.Join(texts, "\n"), nil
	}

	b, err := json.Marshal(result.Content)
	if err != nil {
		return "", fmt.Errorf("failed to JSON-marshal content: %w", err)
	}
	return string(b), nil
}
