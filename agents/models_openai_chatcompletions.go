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
	"log/slog"
	"net"
	"net/http"

	"github.com/nlpodyssey/agentlab/usage"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared/constant"
)

// OpenAIChatCompletionsModel calls the chat-completions API of OpenAI or of
// an Azure OpenAI deployment.
type OpenAIChatCompletionsModel struct {
	Model  openai.ChatModel
	client OpenaiClient
}

func NewOpenAIChatCompletionsModel(model openai.ChatModel, client OpenaiClient) OpenAIChatCompletionsModel {
	return OpenAIChatCompletionsModel{
		Model:  model,
		client: client,
	}
}

func (m OpenAIChatCompletionsModel) GetResponse(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	body, opts, err := m.prepareRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	response, err := m.client.Chat.Completions.New(ctx, *body, opts...)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(response.Choices) == 0 {
		return nil, NewModelBehaviorError("chat completion returned no choices")
	}
	message := response.Choices[0].Message

	if DontLogModelData {
		Logger().Debug("LLM responded")
	} else {
		Logger().Debug("LLM responded", slog.String("message", SimplePrettyJSONMarshal(message)))
	}

	u := usage.FromCounts(
		uint64(response.Usage.PromptTokens),
		uint64(response.Usage.CompletionTokens),
		uint64(response.Usage.TotalTokens),
	)
	calls := ChatCmplConverter().MessageToToolCalls(message)

	resp := NewModelResponse(message.Content, calls, req.Handoffs, req.Tools, u)
	resp.ResponseID = response.ID
	return resp, nil
}

func (m OpenAIChatCompletionsModel) prepareRequest(
	ctx context.Context,
	req ModelRequest,
) (*openai.ChatCompletionNewParams, []option.RequestOption, error) {
	conv := ChatCmplConverter()

	messages, err := conv.ConversationToMessages(req.Input)
	if err != nil {
		return nil, nil, err
	}
	if req.SystemInstructions.Valid() {
		messages = append([]openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: param.NewOpt(req.SystemInstructions.Value),
					},
					Role: constant.ValueOf[constant.System](),
				},
			},
		}, messages...)
	}

	var tools []openai.ChatCompletionToolUnionParam
	for _, tool := range req.Tools {
		tools = append(tools, conv.ToolToOpenai(tool))
	}
	for _, handoff := range req.Handoffs {
		tools = append(tools, conv.ToolToOpenai(handoff.ToolDefinition()))
	}

	settings := req.ModelSettings

	var parallelToolCalls param.Opt[bool]
	if settings.ParallelToolCalls.Valid() && len(tools) > 0 {
		parallelToolCalls = settings.ParallelToolCalls
	}

	var toolChoice openai.ChatCompletionToolChoiceOptionUnionParam
	if len(tools) > 0 {
		toolChoice = conv.ConvertToolChoice(settings.ToolChoice)
	}

	responseFormat, _, err := conv.ConvertResponseFormat(req.OutputType)
	if err != nil {
		return nil, nil, err
	}

	if DontLogModelData {
		Logger().Debug("Calling LLM", slog.String("model", m.Model))
	} else {
		Logger().Debug(
			"Calling LLM",
			slog.String("model", m.Model),
			slog.String("messages", SimplePrettyJSONMarshal(messages)),
			slog.String("tools", SimplePrettyJSONMarshal(tools)),
			slog.String("tool_choice", SimplePrettyJSONMarshal(toolChoice)),
			slog.String("response_format", SimplePrettyJSONMarshal(responseFormat)),
		)
	}

	params := &openai.ChatCompletionNewParams{
		Model:             m.Model,
		Messages:          messages,
		Tools:             tools,
		Temperature:       settings.Temperature,
		TopP:              settings.TopP,
		FrequencyPenalty:  settings.FrequencyPenalty,
		PresencePenalty:   settings.PresencePenalty,
		MaxTokens:         settings.MaxTokens,
		ToolChoice:        toolChoice,
		ResponseFormat:    responseFormat,
		ParallelToolCalls: parallelToolCalls,
		Metadata:          settings.Metadata,
	}

	var opts []option.RequestOption
	for k, v := range settings.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}

	if settings.CustomizeChatCompletionsRequest != nil {
		params, opts, err = settings.CustomizeChatCompletionsRequest(ctx, params, opts)
		if err != nil {
			return nil, nil, err
		}
	}
	return params, opts, nil
}

// classifyOpenAIError marks rate limiting, server errors and network
// failures as RetryableError.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError {
			return RetryableError{Err: err}
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return RetryableError{Err: err}
	}
	return err
}
