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
	"context"
	"errors"
	"testing"

	"github.com/nlpodyssey/agentlab/agents"
	"github.com/nlpodyssey/agentlab/agentstesting"
	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

func addTool() agents.FunctionTool {
	return agents.NewFunctionTool("add", "Add two integers",
		func(_ context.Context, args addArgs) (int, error) {
			return args.A + args.B, nil
		})
}

func mustRegistry(t *testing.T, tools ...agents.Tool) *agents.ToolRegistry {
	t.Helper()
	r, err := agents.NewToolRegistry(tools...)
	require.NoError(t, err)
	return r
}

func TestNewToolRegistry(t *testing.T) {
	t.Run("preserves order", func(t *testing.T) {
		r, err := agents.NewToolRegistry(
			agentstesting.GetFunctionTool("b", ""),
			agentstesting.GetFunctionTool("a", ""),
			addTool(),
		)
		require.NoError(t, err)
		assert.Equal(t, 3, r.Len())
		assert.Equal(t, []string{"b", "a", "add"}, r.Names())

		_, ok := r.Tool("a")
		assert.True(t, ok)
		_, ok = r.Tool("missing")
		assert.False(t, ok)
	})

	t.Run("duplicate names", func(t *testing.T) {
		_, err := agents.NewToolRegistry(
			agentstesting.GetFunctionTool("a", ""),
			agentstesting.GetFunctionTool("a", ""),
		)
		assert.ErrorAs(t, err, &agents.UserError{})
		assert.ErrorContains(t, err, `duplicate tool name "a"`)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := agents.NewToolRegistry(agents.FunctionTool{})
		assert.ErrorAs(t, err, &agents.UserError{})
	})

	t.Run("pointer tool", func(t *testing.T) {
		tool := agentstesting.GetFunctionTool("a", "")
		r, err := agents.NewToolRegistry(&tool)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, r.Names())
	})
}

func TestToolRegistry_Describe(t *testing.T) {
	loose := agents.FunctionTool{
		Name:             "loose",
		Description:      "Accepts anything",
		ParamsJSONSchema: map[string]any{"type": "object", "additionalProperties": true},
		OnInvokeTool: func(context.Context, *runcontext.Wrapper, string) (any, error) {
			return "ok", nil
		},
	}
	noParams := agents.FunctionTool{
		Name: "no_params",
		OnInvokeTool: func(context.Context, *runcontext.Wrapper, string) (any, error) {
			return "ok", nil
		},
	}

	defs, err := agents.DescribeTools([]agents.Tool{addTool(), loose, noParams})
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, "add", defs[0].Name)
	assert.Equal(t, "Add two integers", defs[0].Description)
	assert.True(t, defs[0].Strict)
	assert.Equal(t, []string{"a", "b"}, defs[0].Parameters["required"])
	assert.Equal(t, false, defs[0].Parameters["additionalProperties"])

	assert.Equal(t, "loose", defs[1].Name)
	assert.False(t, defs[1].Strict)

	assert.Equal(t, "no_params", defs[2].Name)
	assert.True(t, defs[2].Strict)
	assert.Equal(t, map[string]any{}, defs[2].Parameters["properties"])
}

func TestToolRegistry_Invoke(t *testing.T) {
	r, err := agents.NewToolRegistry(addTool())
	require.NoError(t, err)
	rc := runcontext.NewWrapper(nil)

	t.Run("success", func(t *testing.T) {
		out, err := r.Invoke(t.Context(), rc, "add", `{"a":2,"b":3}`)
		require.NoError(t, err)
		assert.Equal(t, "5", out)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := r.Invoke(t.Context(), rc, "sub", `{}`)
		var target agents.UnknownToolError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "sub", target.ToolName)
	})

	t.Run("missing argument", func(t *testing.T) {
		_, err := r.Invoke(t.Context(), rc, "add", `{"a":2}`)
		var target agents.InvalidToolArgumentsError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "add", target.ToolName)
		assert.NotEmpty(t, target.Violations)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := r.Invoke(t.Context(), rc, "add", `{"a":"two","b":3}`)
		assert.ErrorAs(t, err, &agents.InvalidToolArgumentsError{})
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := r.Invoke(t.Context(), rc, "add", `{"a":`)
		var target agents.InvalidToolArgumentsError
		require.ErrorAs(t, err, &target)
		assert.Contains(t, target.Violations[0], "not valid JSON")
	})
}

func TestToolRegistry_InvokeHandlerFailures(t *testing.T) {
	boom := errors.New("boom")
	r, err := agents.NewToolRegistry(
		agentstesting.GetFunctionToolErr("fails", boom),
		agentstesting.GetFunctionToolFunc("panics", func(context.Context) (any, error) {
			panic("oops")
		}),
		agentstesting.GetFunctionToolFunc("returns_struct", func(context.Context) (any, error) {
			return struct {
				X int `json:"x"`
			}{X: 1}, nil
		}),
		agentstesting.GetFunctionToolFunc("returns_nil", func(context.Context) (any, error) {
			return nil, nil
		}),
	)
	require.NoError(t, err)

	_, err = r.Invoke(t.Context(), nil, "fails", "")
	var execErr agents.ToolExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "fails", execErr.ToolName)
	assert.ErrorIs(t, err, boom)

	_, err = r.Invoke(t.Context(), nil, "panics", "{}")
	require.ErrorAs(t, err, &execErr)
	assert.ErrorContains(t, err, "panic: oops")

	out, err := r.Invoke(t.Context(), nil, "returns_struct", "{}")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, out)

	out, err = r.Invoke(t.Context(), nil, "returns_nil", "{}")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestNewFunctionTool_RunContext(t *testing.T) {
	type args struct {
		Key string `json:"key"`
	}
	tool := agents.NewFunctionTool("lookup", "",
		func(ctx context.Context, a args) (string, error) {
			rc, ok := runcontext.FromContext(ctx)
			if !ok {
				return "", errors.New("no run context")
			}
			values, _ := runcontext.ContextAs[map[string]string](rc)
			return values[a.Key], nil
		})

	r, err := agents.NewToolRegistry(tool)
	require.NoError(t, err)

	rc := runcontext.NewWrapper(map[string]string{"color": "blue"})
	out, err := r.Invoke(t.Context(), rc, "lookup", `{"key":"color"}`)
	require.NoError(t, err)
	assert.Equal(t, "blue", out)
}

func multiply(a, b int) int { return a * b }

func greet(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", errors.New("empty name")
	}
	return "hello " + name, nil
}

func TestNewFunctionToolAny(t *testing.T) {
	t.Run("plain function", func(t *testing.T) {
		tool, err := agents.NewFunctionToolAny("", "Multiply two integers", multiply)
		require.NoError(t, err)
		assert.Equal(t, "multiply", tool.Name)

		props := tool.ParamsJSONSchema["properties"].(map[string]any)
		assert.Contains(t, props, "a")
		assert.Contains(t, props, "b")

		out, err := tool.OnInvokeTool(t.Context(), nil, `{"a":6,"b":7}`)
		require.NoError(t, err)
		assert.Equal(t, 42, out)
	})

	t.Run("context and error", func(t *testing.T) {
		tool, err := agents.NewFunctionToolAny("say_hello", "", greet)
		require.NoError(t, err)
		assert.Equal(t, "say_hello", tool.Name)
		assert.NotContains(t, tool.ParamsJSONSchema["properties"], "ctx")

		out, err := tool.OnInvokeTool(t.Context(), nil, `{"name":"Ada"}`)
		require.NoError(t, err)
		assert.Equal(t, "hello Ada", out)

		_, err = tool.OnInvokeTool(t.Context(), nil, `{"name":""}`)
		assert.EqualError(t, err, "empty name")
	})
}
