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
	"github.com/nlpodyssey/agentlab/modelsettings"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared/constant"
)

type chatCmplConverter struct{}

func ChatCmplConverter() chatCmplConverter { return chatCmplConverter{} }

func (chatCmplConverter) ConvertToolChoice(toolChoice param.Opt[string]) openai.ChatCompletionToolChoiceOptionUnionParam {
	if !toolChoice.Valid() || toolChoice.Value == "" {
		return openai.ChatCompletionToolChoiceOptionUnionParam{}
	}
	switch toolChoice.Value {
	case modelsettings.ToolChoiceAuto, modelsettings.ToolChoiceRequired, modelsettings.ToolChoiceNone:
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: param.NewOpt(toolChoice.Value),
		}
	default:
		return openai.ToolChoiceOptionFunctionToolChoice(
			openai.ChatCompletionNamedToolChoiceFunctionParam{Name: toolChoice.Value},
		)
	}
}

// ConvertResponseFormat returns a json_schema response format for structured
// output types. The boolean result is false for free-text output.
func (chatCmplConverter) ConvertResponseFormat(
	outputType OutputTypeInterface,
) (openai.ChatCompletionNewParamsResponseFormatUnion, bool, error) {
	if outputType == nil || outputType.IsPlainText() {
		return openai.ChatCompletionNewParamsResponseFormatUnion{}, false, nil
	}
	schema, err := outputType.JSONSchema()
	if err != nil {
		return openai.ChatCompletionNewParamsResponseFormatUnion{}, false, err
	}

	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   "final_output",
				Strict: param.NewOpt(outputType.IsStrictJSONSchema()),
				Schema: schema,
			},
			Type: constant.ValueOf[constant.JSONSchema](),
		},
	}, true, nil
}

// ConversationToMessages converts the conversation into chat messages.
// Tool results keep the ID of the call they answer.
func (chatCmplConverter) ConversationToMessages(conv Conversation) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(conv))
	for _, msg := range conv {
		switch msg.Role {
		case RoleUser:
			result = append(result, openai.UserMessage(msg.Content))
		case RoleAssistant:
			asst := &openai.ChatCompletionAssistantMessageParam{
				Role: constant.ValueOf[constant.Assistant](),
			}
			if msg.Content != "" {
				asst.Content.OfString = param.NewOpt(msg.Content)
			}
			for _, call := range msg.ToolCalls {
				arguments := call.Arguments
				if arguments == "" {
					arguments = "{}"
				}
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: arguments,
						},
						Type: constant.ValueOf[constant.Function](),
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: asst})
		case RoleTool:
			if msg.ToolCallID == "" {
				return nil, UserErrorf("tool message for %q has no call ID", msg.ToolName)
			}
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			return nil, UserErrorf("unexpected message role %q", msg.Role)
		}
	}
	return result, nil
}

func (chatCmplConverter) ToolToOpenai(tool ToolDefinition) openai.ChatCompletionToolUnionParam {
	var description param.Opt[string]
	if tool.Description != "" {
		description = param.NewOpt(tool.Description)
	}
	parameters := tool.Parameters
	if parameters == nil {
		parameters = newEmptyJSONSchema()
	}
	return openai.ChatCompletionFunctionTool(
		openai.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: description,
			Parameters:  parameters,
			Strict:      param.NewOpt(tool.Strict),
		},
	)
}

// MessageToToolCalls extracts the function calls of a completion message,
// preserving their order.
func (chatCmplConverter) MessageToToolCalls(message openai.ChatCompletionMessage) []ToolCall {
	var calls []ToolCall
	for _, tc := range message.ToolCalls {
		if tc.Type != "" && tc.Type != "function" {
			continue
		}
		calls = append(calls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return calls
}
