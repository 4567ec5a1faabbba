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

package agents_test

import (
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/nlpodyssey/agentlab/agents"
	"github.com/nlpodyssey/agentlab/agentstesting"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiProvider_GetModel(t *testing.T) {
	openaiModel := agentstesting.NewFakeModel()
	claude := agentstesting.NewFakeModel()

	providerMap := agents.NewMultiProviderMap()
	providerMap.AddProvider("anthropic", agentstesting.FakeModelProvider{
		Models: map[string]agents.Model{"claude-3-5-sonnet-latest": claude},
	})
	mp := agents.NewMultiProvider(agentstesting.FakeModelProvider{
		Models: map[string]agents.Model{"gpt-4o": openaiModel},
	}, providerMap)

	t.Run("no prefix", func(t *testing.T) {
		m, err := mp.GetModel("gpt-4o")
		require.NoError(t, err)
		assert.Same(t, openaiModel, m)
	})
	t.Run("openai prefix", func(t *testing.T) {
		m, err := mp.GetModel("openai/gpt-4o")
		require.NoError(t, err)
		assert.Same(t, openaiModel, m)
	})
	t.Run("registered prefix", func(t *testing.T) {
		m, err := mp.GetModel("anthropic/claude-3-5-sonnet-latest")
		require.NoError(t, err)
		assert.Same(t, claude, m)
	})
	t.Run("unknown prefix", func(t *testing.T) {
		_, err := mp.GetModel("mistral/large")
		var userErr agents.UserError
		require.ErrorAs(t, err, &userErr)
		assert.ErrorContains(t, err, `unknown model prefix "mistral"`)
	})
	t.Run("removed prefix", func(t *testing.T) {
		providerMap.RemoveProvider("anthropic")
		assert.False(t, providerMap.HasPrefix("anthropic"))
		assert.Empty(t, providerMap.GetMapping())
		_, err := mp.GetModel("anthropic/claude-3-5-sonnet-latest")
		assert.Error(t, err)
	})
}

func TestMultiProvider_NoOpenAIProvider(t *testing.T) {
	mp := agents.NewMultiProvider(nil, nil)
	_, err := mp.GetModel("gpt-4o")
	var userErr agents.UserError
	require.ErrorAs(t, err, &userErr)
}

func TestOpenAIProvider_GetModel(t *testing.T) {
	cs, srv := newChatServer(t, http.StatusOK, textCompletion)

	provider := agents.NewOpenAIProvider(agents.OpenAIProviderParams{
		APIKey:  param.NewOpt("test-key"),
		BaseURL: param.NewOpt(srv.URL + "/"),
		Retry:   &fastRetry,
	})

	model, err := provider.GetModel("")
	require.NoError(t, err)
	resp, err := model.GetResponse(t.Context(), agents.ModelRequest{
		Input: agents.Conversation{agents.UserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.Text)
	assert.Equal(t, agents.DefaultOpenAIModel, cs.lastBody(t)["model"])

	model, err = provider.GetModel("gpt-4o-mini")
	require.NoError(t, err)
	_, err = model.GetResponse(t.Context(), agents.ModelRequest{
		Input: agents.Conversation{agents.UserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cs.lastBody(t)["model"])
}

func TestOpenAIProvider_AzureDefaultsToDeployment(t *testing.T) {
	cs, srv := newChatServer(t, http.StatusOK, textCompletion)

	provider := agents.NewOpenAIProvider(agents.OpenAIProviderParams{
		Azure: &agents.AzureOpenAIParams{
			Endpoint:   srv.URL,
			APIKey:     "azure-key",
			APIVersion: "2024-10-21",
			Deployment: "lab-deployment",
		},
	})
	model, err := provider.GetModel("")
	require.NoError(t, err)
	_, err = model.GetResponse(t.Context(), agents.ModelRequest{
		Input: agents.Conversation{agents.UserMessage("hi")},
	})
	require.NoError(t, err)

	req := cs.lastRequest(t)
	assert.Equal(t, "/openai/deployments/lab-deployment/chat/completions", req.URL.Path)
	assert.Equal(t, "2024-10-21", req.URL.Query().Get("api-version"))
	assert.Equal(t, "lab-deployment", cs.lastBody(t)["model"])
}

func TestNewOpenAIProvider_ConflictingParams(t *testing.T) {
	client := agents.NewOpenaiClient(param.NewOpt("http://localhost/"))
	assert.Panics(t, func() {
		agents.NewOpenAIProvider(agents.OpenAIProviderParams{
			OpenaiClient: &client,
			APIKey:       param.NewOpt("key"),
		})
	})
	assert.Panics(t, func() {
		agents.NewOpenAIProvider(agents.OpenAIProviderParams{
			Azure:   &agents.AzureOpenAIParams{Endpoint: "http://localhost"},
			BaseURL: param.NewOpt("http://localhost/"),
		})
	})
}

func TestAnthropicProvider_GetModel(t *testing.T) {
	_, err := agents.AnthropicProvider{}.GetModel("claude")
	var userErr agents.UserError
	require.ErrorAs(t, err, &userErr)

	ms, srv := newMessagesServer(t, http.StatusOK, anthropicTextReply)
	provider := agents.AnthropicProvider{
		Client:       agents.NewAnthropicClient("test-key", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0)),
		DefaultModel: "claude-3-5-haiku-latest",
		Retry:        &fastRetry,
	}
	model, err := provider.GetModel("")
	require.NoError(t, err)
	resp, err := model.GetResponse(t.Context(), agents.ModelRequest{
		Input: agents.Conversation{agents.UserMessage("hello")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", resp.Text)
	assert.Equal(t, "claude-3-5-haiku-latest", ms.lastBody(t)["model"])
}
