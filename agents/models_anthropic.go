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
	"net"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/nlpodyssey/agentlab/modelsettings"
	"github.com/nlpodyssey/agentlab/usage"
)

const DefaultAnthropicMaxTokens int64 = 4096

// AnthropicModel calls the Anthropic Messages API.
//
// Structured output types are requested through the system prompt, since the
// API has no response-format parameter; the runner validates the reply.
type AnthropicModel struct {
	Model  anthropic.Model
	client *anthropic.Client
}

func NewAnthropicModel(model anthropic.Model, client *anthropic.Client) AnthropicModel {
	if model == "" {
		model = anthropic.ModelClaude3_5Sonnet20241022
	}
	return AnthropicModel{Model: model, client: client}
}

// NewAnthropicClient creates a client. An empty API key falls back to the
// ANTHROPIC_API_KEY environment variable.
func NewAnthropicClient(apiKey string, opts ...option.RequestOption) *anthropic.Client {
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &client
}

func (m AnthropicModel) GetResponse(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	params, opts, err := m.prepareRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Messages.New(ctx, *params, opts...)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	var text strings.Builder
	var calls []ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := "{}"
			if toolBlock.Input != nil {
				b, err := json.Marshal(toolBlock.Input)
				if err != nil {
					return nil, ModelBehaviorErrorf("invalid input for tool %q: %v", toolBlock.Name, err)
				}
				args = string(b)
			}
			calls = append(calls, ToolCall{
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: args,
			})
		}
	}

	if DontLogModelData {
		Logger().Debug("LLM responded")
	} else {
		Logger().Debug("LLM responded",
			slog.String("text", text.String()),
			slog.String("tool_calls", SimplePrettyJSONMarshal(calls)),
			slog.String("stop_reason", string(resp.StopReason)))
	}

	u := usage.FromCounts(uint64(resp.Usage.InputTokens), uint64(resp.Usage.OutputTokens), 0)
	out := NewModelResponse(text.String(), calls, req.Handoffs, req.Tools, u)
	out.ResponseID = resp.ID
	return out, nil
}

func (m AnthropicModel) prepareRequest(req ModelRequest) (*anthropic.MessageNewParams, []option.RequestOption, error) {
	settings := req.ModelSettings

	messages, err := anthropicMessages(req.Input)
	if err != nil {
		return nil, nil, err
	}

	params := &anthropic.MessageNewParams{
		Model:     m.Model,
		Messages:  messages,
		MaxTokens: settings.MaxTokens.Or(DefaultAnthropicMaxTokens),
	}
	if settings.Temperature.Valid() {
		params.Temperature = anthropic.Float(settings.Temperature.Value)
	}
	if settings.TopP.Valid() {
		params.TopP = anthropic.Float(settings.TopP.Value)
	}

	system, err := anthropicSystemPrompt(req)
	if err != nil {
		return nil, nil, err
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	definitions := make([]ToolDefinition, 0, len(req.Tools)+len(req.Handoffs))
	definitions = append(definitions, req.Tools...)
	for _, h := range req.Handoffs {
		definitions = append(definitions, h.ToolDefinition())
	}
	for _, def := range definitions {
		params.Tools = append(params.Tools, anthropicTool(def))
	}
	if len(params.Tools) > 0 {
		params.ToolChoice = anthropicToolChoice(settings)
	}

	var opts []option.RequestOption
	for k, v := range settings.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}
	return params, opts, nil
}

func anthropicSystemPrompt(req ModelRequest) (string, error) {
	var parts []string
	if req.SystemInstructions.Valid() && req.SystemInstructions.Value != "" {
		parts = append(parts, req.SystemInstructions.Value)
	}
	if req.OutputType != nil && !req.OutputType.IsPlainText() {
		schema, err := req.OutputType.JSONSchema()
		if err != nil {
			return "", err
		}
		b, err := json.Marshal(schema)
		if err != nil {
			return "", fmt.Errorf("failed to JSON-marshal output schema: %w", err)
		}
		parts = append(parts, "Reply only with a JSON value that conforms to this JSON schema, without any other text:\n"+string(b))
	}
	return strings.Join(parts, "\n\n"), nil
}

// anthropicMessages converts the conversation. Consecutive tool results are
// grouped into a single user message following the assistant turn that
// requested them.
func anthropicMessages(conv Conversation) ([]anthropic.MessageParam, error) {
	var messages []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			messages = append(messages, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range conv {
		switch msg.Role {
		case RoleUser:
			flushResults()
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			flushResults()
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				var input any = map[string]any{}
				if call.Arguments != "" {
					if err := json.Unmarshal([]byte(call.Arguments), &input); err != nil {
						input = call.Arguments
					}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			if len(blocks) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(blocks...))
			}
		case RoleTool:
			if msg.ToolCallID == "" {
				return nil, UserErrorf("tool message for %q has no call ID", msg.ToolName)
			}
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError))
		default:
			return nil, UserErrorf("unexpected message role %q", msg.Role)
		}
	}
	flushResults()
	return messages, nil
}

func anthropicTool(def ToolDefinition) anthropic.ToolUnionParam {
	inputSchema := anthropic.ToolInputSchemaParam{
		Type: constant.Object("object"),
	}
	if properties, ok := def.Parameters["properties"]; ok {
		inputSchema.Properties = properties
	}
	switch required := def.Parameters["required"].(type) {
	case []string:
		inputSchema.Required = required
	case []any:
		for _, r := range required {
			if s, ok := r.(string); ok {
				inputSchema.Required = append(inputSchema.Required, s)
			}
		}
	}

	tool := anthropic.ToolUnionParamOfTool(inputSchema, def.Name)
	if def.Description != "" {
		tool.OfTool.Description = anthropic.String(def.Description)
	}
	return tool
}

func anthropicToolChoice(settings modelsettings.ModelSettings) anthropic.ToolChoiceUnionParam {
	choice := settings.ToolChoice.Or("")
	disableParallel := settings.ParallelToolCalls.Valid() && !settings.ParallelToolCalls.Value

	switch choice {
	case "", modelsettings.ToolChoiceAuto:
		auto := &anthropic.ToolChoiceAutoParam{}
		if disableParallel {
			auto.DisableParallelToolUse = anthropic.Bool(true)
		}
		return anthropic.ToolChoiceUnionParam{OfAuto: auto}
	case modelsettings.ToolChoiceRequired:
		anyTool := &anthropic.ToolChoiceAnyParam{}
		if disableParallel {
			anyTool.DisableParallelToolUse = anthropic.Bool(true)
		}
		return anthropic.ToolChoiceUnionParam{OfAny: anyTool}
	case modelsettings.ToolChoiceNone:
		return anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	default:
		named := &anthropic.ToolChoiceToolParam{Name: choice}
		if disableParallel {
			named.DisableParallelToolUse = anthropic.Bool(true)
		}
		return anthropic.ToolChoiceUnionParam{OfTool: named}
	}
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError {
			return RetryableError{Err: err}
		}
		return fmt.Errorf("anthropic api error: %w", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return RetryableError{Err: err}
	}
	return fmt.Errorf("anthropic api error: %w", err)
}
