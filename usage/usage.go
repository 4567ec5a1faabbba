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

package usage

import (
	"context"
	"sync"
)

// Usage accumulates token counters reported by model backends.
//
// It is safe for concurrent use: guardrail checker runs may add to the
// same Usage while the main agent is being driven.
type Usage struct {
	mu sync.Mutex

	// Total requests made to the model backend.
	Requests uint64

	// Total input tokens sent, across all requests.
	InputTokens uint64

	// Total output tokens received, across all requests.
	OutputTokens uint64

	// Total tokens sent and received, across all requests.
	TotalTokens uint64
}

func NewUsage() *Usage {
	return new(Usage)
}

// FromCounts builds the Usage of a single backend call.
// When total is zero it is computed as input + output.
func FromCounts(input, output, total uint64) *Usage {
	if total == 0 {
		total = input + output
	}
	return &Usage{
		Requests:     1,
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  total,
	}
}

func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	snap := other.Snapshot()

	u.mu.Lock()
	defer u.mu.Unlock()
	u.Requests += snap.Requests
	u.InputTokens += snap.InputTokens
	u.OutputTokens += snap.OutputTokens
	u.TotalTokens += snap.TotalTokens
}

// Snapshot returns a copy of the counters taken under lock.
func (u *Usage) Snapshot() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return Usage{
		Requests:     u.Requests,
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.TotalTokens,
	}
}

// usageContextKey is the key type for Usage values in Contexts.
type usageContextKey struct{}

// NewContext returns a new Context that carries the given Usage.
func NewContext(ctx context.Context, u *Usage) context.Context {
	return context.WithValue(ctx, usageContextKey{}, u)
}

// FromContext returns the Usage value stored in ctx, if any.
func FromContext(ctx context.Context) (*Usage, bool) {
	u, ok := ctx.Value(usageContextKey{}).(*Usage)
	return u, ok
}
