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

package runcontext_test

import (
	"testing"

	"github.com/nlpodyssey/agentlab/runcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userState struct {
	Name string
}

func TestNewWrapper(t *testing.T) {
	state := &userState{Name: "Antonio"}
	w := runcontext.NewWrapper(state)
	require.NotNil(t, w.Usage)

	got, ok := runcontext.ContextAs[*userState](w)
	require.True(t, ok)
	assert.Same(t, state, got)

	_, ok = runcontext.ContextAs[string](w)
	assert.False(t, ok)

	_, ok = runcontext.ContextAs[*userState](nil)
	assert.False(t, ok)
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := runcontext.FromContext(t.Context())
	assert.False(t, ok)

	w := runcontext.NewWrapper(nil)
	ctx := runcontext.NewContext(t.Context(), w)
	got, ok := runcontext.FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, w, got)
}
