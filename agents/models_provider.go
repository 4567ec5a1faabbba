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
	"errors"
	"maps"
	"os"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
)

// DefaultOpenAIModel is used when neither the agent nor the run names a model.
const DefaultOpenAIModel = openai.ChatModelGPT4o

type OpenAIProviderParams struct {
	// The API key to use for the OpenAI client. If not provided, the
	// OPENAI_API_KEY environment variable is used.
	APIKey param.Opt[string]

	// The base URL to use for the OpenAI client.
	BaseURL param.Opt[string]

	// An optional client to use. If not provided, a new client is created
	// from the other parameters on first use.
	OpenaiClient *OpenaiClient

	// Optional Azure OpenAI deployment. When set, APIKey and BaseURL must not be.
	Azure *AzureOpenAIParams

	Organization param.Opt[string]
	Project      param.Opt[string]

	// Model used when the requested name is empty.
	// Default: DefaultOpenAIModel, or the Azure deployment name.
	DefaultModel param.Opt[string]

	// When set, returned models retry transient failures with this policy.
	Retry *RetryPolicy
}

// OpenAIProvider resolves model names to chat-completions models.
type OpenAIProvider struct {
	params OpenAIProviderParams

	mu     sync.Mutex
	client *OpenaiClient
}

func NewOpenAIProvider(params OpenAIProviderParams) *OpenAIProvider {
	if params.OpenaiClient != nil && (params.APIKey.Valid() || params.BaseURL.Valid() || params.Azure != nil) {
		panic(errors.New("OpenAIProvider: don't provide APIKey, BaseURL or Azure if you provide OpenaiClient"))
	}
	if params.Azure != nil && (params.APIKey.Valid() || params.BaseURL.Valid()) {
		panic(errors.New("OpenAIProvider: don't provide APIKey or BaseURL if you provide Azure"))
	}
	return &OpenAIProvider{
		params: params,
		client: params.OpenaiClient,
	}
}

func (provider *OpenAIProvider) GetModel(modelName string) (Model, error) {
	if modelName == "" {
		modelName = provider.defaultModel()
	}
	var model Model = NewOpenAIChatCompletionsModel(modelName, provider.getClient())
	if provider.params.Retry != nil {
		model = WithRetry(model, *provider.params.Retry)
	}
	return model, nil
}

func (provider *OpenAIProvider) defaultModel() string {
	switch {
	case provider.params.DefaultModel.Valid():
		return provider.params.DefaultModel.Value
	case provider.params.Azure != nil && provider.params.Azure.Deployment != "":
		return provider.params.Azure.Deployment
	default:
		return DefaultOpenAIModel
	}
}

// The client is created lazily, in case the provider is never used.
func (provider *OpenAIProvider) getClient() OpenaiClient {
	provider.mu.Lock()
	defer provider.mu.Unlock()

	if provider.client != nil {
		return *provider.client
	}

	var options []option.RequestOption
	if v := provider.params.Organization; v.Valid() {
		options = append(options, option.WithOrganization(v.Value))
	}
	if v := provider.params.Project; v.Valid() {
		options = append(options, option.WithProject(v.Value))
	}
	if provider.params.Retry != nil {
		options = append(options, option.WithMaxRetries(0))
	}

	var client OpenaiClient
	if azure := provider.params.Azure; azure != nil {
		client = NewAzureOpenaiClient(*azure, options...)
	} else {
		apiKey := provider.params.APIKey.Or(os.Getenv("OPENAI_API_KEY"))
		if apiKey == "" {
			Logger().Warn("OpenAIProvider: an API key is missing")
		}
		options = append(options, option.WithAPIKey(apiKey))
		client = NewOpenaiClient(provider.params.BaseURL, options...)
	}
	provider.client = &client
	return client
}

// AnthropicProvider resolves model names to Anthropic Messages models.
type AnthropicProvider struct {
	Client *anthropic.Client
	// Model used when the requested name is empty.
	DefaultModel anthropic.Model
	Retry        *RetryPolicy
}

func (provider AnthropicProvider) GetModel(modelName string) (Model, error) {
	if provider.Client == nil {
		return nil, NewUserError("AnthropicProvider: missing client")
	}
	if modelName == "" {
		modelName = string(provider.DefaultModel)
	}
	var model Model = NewAnthropicModel(anthropic.Model(modelName), provider.Client)
	if provider.Retry != nil {
		model = WithRetry(model, *provider.Retry)
	}
	return model, nil
}

// MultiProvider is a ModelProvider that maps to a Model based on the prefix
// of the model name:
//   - "openai/" prefix or no prefix: OpenAIProvider, e.g. "openai/gpt-4o", "gpt-4o"
//   - any other prefix registered in the ProviderMap, e.g. "anthropic/claude-3-5-sonnet-latest"
type MultiProvider struct {
	ProviderMap    *MultiProviderMap
	OpenAIProvider ModelProvider
}

func NewMultiProvider(openaiProvider ModelProvider, providerMap *MultiProviderMap) *MultiProvider {
	if providerMap == nil {
		providerMap = NewMultiProviderMap()
	}
	return &MultiProvider{
		ProviderMap:    providerMap,
		OpenAIProvider: openaiProvider,
	}
}

func splitModelName(modelName string) (prefix, name string) {
	if prefix, name, ok := strings.Cut(modelName, "/"); ok {
		return prefix, name
	}
	return "", modelName
}

// GetModel returns a Model based on the model name. The prefix before the
// first "/" selects the ModelProvider.
func (mp *MultiProvider) GetModel(modelName string) (Model, error) {
	prefix, name := splitModelName(modelName)

	if prefix != "" {
		if provider, ok := mp.ProviderMap.GetProvider(prefix); ok {
			return provider.GetModel(name)
		}
	}
	if prefix != "" && prefix != "openai" {
		return nil, UserErrorf("unknown model prefix %q", prefix)
	}
	if mp.OpenAIProvider == nil {
		return nil, UserErrorf("no provider for model %q", modelName)
	}
	return mp.OpenAIProvider.GetModel(name)
}

// MultiProviderMap is a map of model name prefixes to ModelProvider objects.
// It is safe for concurrent use.
type MultiProviderMap struct {
	mu sync.RWMutex
	m  map[string]ModelProvider
}

func NewMultiProviderMap() *MultiProviderMap {
	return &MultiProviderMap{
		m: make(map[string]ModelProvider),
	}
}

func (m *MultiProviderMap) HasPrefix(prefix string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.m[prefix]
	return ok
}

// GetMapping returns a copy of the current prefix to ModelProvider mapping.
func (m *MultiProviderMap) GetMapping() map[string]ModelProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.m)
}

func (m *MultiProviderMap) GetProvider(prefix string) (ModelProvider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.m[prefix]
	return v, ok
}

func (m *MultiProviderMap) AddProvider(prefix string, provider ModelProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[prefix] = provider
}

func (m *MultiProviderMap) RemoveProvider(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.m, prefix)
}
