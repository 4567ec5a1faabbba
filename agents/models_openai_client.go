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
	"slices"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
)

// DefaultAzureAPIVersion is used when AzureOpenAIParams.APIVersion is empty.
const DefaultAzureAPIVersion = "2025-03-01-preview"

type OpenaiClient struct {
	openai.Client
	BaseURL param.Opt[string]
}

func NewOpenaiClient(baseURL param.Opt[string], opts ...option.RequestOption) OpenaiClient {
	if baseURL.Valid() {
		opts = append(slices.Clone(opts), option.WithBaseURL(baseURL.Value))
	}
	return OpenaiClient{
		Client:  openai.NewClient(opts...),
		BaseURL: baseURL,
	}
}

// AzureOpenAIParams locates a chat-completions deployment on Azure OpenAI.
type AzureOpenAIParams struct {
	// Resource endpoint, e.g. https://my-resource.openai.azure.com
	Endpoint string
	APIKey   string
	// Default: DefaultAzureAPIVersion.
	APIVersion string
	// Name of the deployment. Requests are routed to it regardless of the
	// model name they carry.
	Deployment string
}

// NewAzureOpenaiClient returns a client that sends chat-completions requests
// to an Azure OpenAI deployment, authenticating with an API key.
func NewAzureOpenaiClient(params AzureOpenAIParams, opts ...option.RequestOption) OpenaiClient {
	apiVersion := params.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAzureAPIVersion
	}
	baseURL := strings.TrimRight(params.Endpoint, "/") + "/openai/deployments/" + params.Deployment + "/"

	opts = append(slices.Clone(opts),
		option.WithQuery("api-version", apiVersion),
		option.WithHeader("api-key", params.APIKey),
		option.WithHeaderDel("authorization"),
	)
	return NewOpenaiClient(param.NewOpt(baseURL), opts...)
}
