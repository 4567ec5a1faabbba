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
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v2/packages/param"
)

// RetryableError marks a transient backend failure (rate limiting, server
// errors, dropped connections). Only these errors are retried by WithRetry.
type RetryableError struct {
	Err error
}

func (e RetryableError) Error() string { return fmt.Sprintf("retryable model error: %v", e.Err) }
func (e RetryableError) Unwrap() error { return e.Err }

func IsRetryable(err error) bool {
	var r RetryableError
	return errors.As(err, &r)
}

type RetryPolicy struct {
	// Maximum number of retries after the first attempt.
	// Default: 3.
	MaxRetries param.Opt[uint64]
	// Delay before the first retry.
	// Default: 500ms.
	InitialInterval param.Opt[time.Duration]
	// Upper bound of the delay between retries.
	// Default: 10s.
	MaxInterval param.Opt[time.Duration]
}

type retryModel struct {
	model  Model
	policy RetryPolicy
}

// WithRetry wraps a model so that RetryableError failures are retried with
// exponential backoff. Any other error, and the expiry of ctx, stops the retries.
func WithRetry(model Model, policy RetryPolicy) Model {
	return retryModel{model: model, policy: policy}
}

func (m retryModel) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.policy.InitialInterval.Or(500 * time.Millisecond)
	b.MaxInterval = m.policy.MaxInterval.Or(10 * time.Second)
	b.MaxElapsedTime = 0 // bounded by MaxRetries
	return backoff.WithContext(backoff.WithMaxRetries(b, m.policy.MaxRetries.Or(3)), ctx)
}

func (m retryModel) GetResponse(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	var resp *ModelResponse
	attempt := 0

	operation := func() error {
		attempt++
		var err error
		resp, err = m.model.GetResponse(ctx, req)
		switch {
		case err == nil:
			return nil
		case IsRetryable(err) && ctx.Err() == nil:
			return err
		default:
			return backoff.Permanent(err)
		}
	}
	notify := func(err error, wait time.Duration) {
		Logger().Warn("Retrying model call",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
	}

	if err := backoff.RetryNotify(operation, m.newBackOff(ctx), notify); err != nil {
		return nil, err
	}
	return resp, nil
}
