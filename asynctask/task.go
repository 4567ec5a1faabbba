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

// Package asynctask runs a function in its own goroutine and lets callers
// await, cancel or poll its result.
package asynctask

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type Task[T any] struct {
	mu       sync.Mutex
	cancel   context.CancelFunc
	canceled bool
	done     chan struct{}
	result   Result[T]
}

type Result[T any] struct {
	Value T
	Error error
}

var taskCanceledErr = errors.New("task has been canceled")

func TaskCanceledErr() error { return taskCanceledErr }

// PanicError is returned by Await when the task function panicked.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Await blocks until the task function returns.
func (t *Task[T]) Await() Result[T] {
	<-t.done
	return t.result
}

// Done returns a channel closed when the task completes.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

func (t *Task[T]) IsDone() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *Task[T]) IsCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}

// Cancel cancels the context given to the task function. It has no effect on
// a task that already completed.
func (t *Task[T]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.canceled && !t.IsDone() {
		t.cancel()
		t.canceled = true
	}
}

type TaskFunc[T any] = func(context.Context) (T, error)

func CreateTask[T any](ctx context.Context, fn TaskFunc[T]) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		var value T
		var err error

		defer func() {
			if r := recover(); r != nil {
				err = errors.Join(err, PanicError{Value: r})
			}

			t.mu.Lock()
			if t.canceled {
				err = errors.Join(err, TaskCanceledErr())
			}
			t.result = Result[T]{Value: value, Error: err}
			close(t.done)
			t.mu.Unlock()

			cancel()
		}()

		value, err = fn(ctx)
	}()

	return t
}

type TaskNoValue = Task[struct{}]

func CreateTaskNoValue(ctx context.Context, fn func(context.Context) error) *TaskNoValue {
	return CreateTask[struct{}](ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

// AwaitAll waits for every task and returns their results in the order the
// tasks were given.
func AwaitAll[T any](tasks []*Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))
	for i, t := range tasks {
		results[i] = t.Await()
	}
	return results
}
