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

package modelsettings

import (
	"context"
	"maps"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
)

// ModelSettings holds settings to use when calling an LLM.
//
// Not all backends support all of these parameters; unsupported ones are
// silently ignored by the adapter.
type ModelSettings struct {
	// The temperature to use when calling the model.
	Temperature param.Opt[float64] `json:"temperature"`

	// The top_p to use when calling the model.
	TopP param.Opt[float64] `json:"top_p"`

	// The frequency penalty to use when calling the model.
	FrequencyPenalty param.Opt[float64] `json:"frequency_penalty"`

	// The presence penalty to use when calling the model.
	PresencePenalty param.Opt[float64] `json:"presence_penalty"`

	// Optional tool choice: "auto", "required", "none", or the name of a
	// specific tool.
	ToolChoice param.Opt[string] `json:"tool_choice"`

	// Controls whether the model can make multiple parallel tool calls in a
	// single turn. If not provided, the backend default applies.
	ParallelToolCalls param.Opt[bool] `json:"parallel_tool_calls"`

	// The maximum number of output tokens to generate.
	MaxTokens param.Opt[int64] `json:"max_tokens"`

	// Optional metadata to include with the model call.
	Metadata map[string]string `json:"metadata"`

	// Optional additional headers to provide with the request.
	ExtraHeaders map[string]string `json:"extra_headers"`

	// Optional function which allows you to fully customize parameters and
	// options for a call to the chat-completion API.
	CustomizeChatCompletionsRequest func(context.Context, *openai.ChatCompletionNewParams, []option.RequestOption) (*openai.ChatCompletionNewParams, []option.RequestOption, error) `json:"-"`
}

const (
	ToolChoiceAuto     = "auto"
	ToolChoiceRequired = "required"
	ToolChoiceNone     = "none"
)

// Resolve produces a new ModelSettings by overlaying any present values from
// the override on top of this instance.
func (ms ModelSettings) Resolve(override ModelSettings) ModelSettings {
	newSettings := ms
	resolveOpt(&newSettings.Temperature, override.Temperature)
	resolveOpt(&newSettings.TopP, override.TopP)
	resolveOpt(&newSettings.FrequencyPenalty, override.FrequencyPenalty)
	resolveOpt(&newSettings.PresencePenalty, override.PresencePenalty)
	resolveOpt(&newSettings.ToolChoice, override.ToolChoice)
	resolveOpt(&newSettings.ParallelToolCalls, override.ParallelToolCalls)
	resolveOpt(&newSettings.MaxTokens, override.MaxTokens)
	resolveMap(&newSettings.Metadata, override.Metadata)
	resolveMap(&newSettings.ExtraHeaders, override.ExtraHeaders)
	if override.CustomizeChatCompletionsRequest != nil {
		newSettings.CustomizeChatCompletionsRequest = override.CustomizeChatCompletionsRequest
	}
	return newSettings
}

func resolveOpt[T comparable](base *param.Opt[T], override param.Opt[T]) {
	if override.Valid() {
		*base = override
	}
}

func resolveMap[M ~map[K]V, K comparable, V any](base *M, override M) {
	if len(override) > 0 {
		*base = maps.Clone(override)
	}
}
