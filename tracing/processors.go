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

package tracing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/openai/openai-go/v2/packages/param"
)

// ConsoleSpanExporter is an Exporter that prints traces and spans as JSON lines.
type ConsoleSpanExporter struct {
	// Destination of the output. Defaults to os.Stdout.
	Writer io.Writer
}

func (c ConsoleSpanExporter) Export(_ context.Context, items []any) error {
	w := c.Writer
	if w == nil {
		w = os.Stdout
	}
	for _, item := range items {
		var line string
		switch v := item.(type) {
		case Trace:
			line = fmt.Sprintf("[Exporter] Export trace_id=%s, name=%s", v.TraceID(), v.Name())
		case Span:
			b, err := json.Marshal(v.Export())
			if err != nil {
				return fmt.Errorf("ConsoleSpanExporter: failed to JSON-marshal span: %w", err)
			}
			line = "[Exporter] Export span: " + string(b)
		default:
			return fmt.Errorf("ConsoleSpanExporter: unexpected item type %T", item)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// BatchTraceProcessor queues started traces and finished spans, and hands
// them to an Exporter in batches from a background goroutine.
type BatchTraceProcessor struct {
	exporter          Exporter
	maxQueueSize      int
	maxBatchSize      int
	scheduleDelay     time.Duration
	exportTriggerSize int

	mu       sync.Mutex
	queue    []any
	started  bool
	shutdown bool
	kick     chan struct{}
	stop     chan struct{}
	done     chan struct{}

	exportMu sync.Mutex
}

type BatchTraceProcessorParams struct {
	// The exporter to use.
	Exporter Exporter
	// The maximum number of items to store in the queue.
	// After this, new items are dropped.
	// Default: 8192.
	MaxQueueSize param.Opt[int]
	// The maximum number of items to export in a single batch.
	// Default: 128.
	MaxBatchSize param.Opt[int]
	// The delay between scheduled exports.
	// Default: 5 seconds.
	ScheduleDelay param.Opt[time.Duration]
	// The queue fill ratio at which an export is triggered immediately.
	// Default: 0.7.
	ExportTriggerRatio param.Opt[float64]
}

func NewBatchTraceProcessor(params BatchTraceProcessorParams) *BatchTraceProcessor {
	maxQueueSize := params.MaxQueueSize.Or(8192)
	return &BatchTraceProcessor{
		exporter:          params.Exporter,
		maxQueueSize:      maxQueueSize,
		maxBatchSize:      params.MaxBatchSize.Or(128),
		scheduleDelay:     params.ScheduleDelay.Or(5 * time.Second),
		exportTriggerSize: max(1, int(float64(maxQueueSize)*params.ExportTriggerRatio.Or(0.7))),
		kick:              make(chan struct{}, 1),
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
	}
}

func (b *BatchTraceProcessor) OnTraceStart(_ context.Context, trace Trace) error {
	b.enqueue(trace, "trace")
	return nil
}

// OnTraceEnd does nothing: traces are exported when they start.
func (b *BatchTraceProcessor) OnTraceEnd(context.Context, Trace) error { return nil }

// OnSpanStart does nothing: spans are exported when they end.
func (b *BatchTraceProcessor) OnSpanStart(context.Context, Span) error { return nil }

func (b *BatchTraceProcessor) OnSpanEnd(_ context.Context, span Span) error {
	b.enqueue(span, "span")
	return nil
}

func (b *BatchTraceProcessor) enqueue(item any, kind string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shutdown {
		return
	}
	if len(b.queue) >= b.maxQueueSize {
		Logger().Warn("Queue is full, dropping item.", slog.String("kind", kind))
		return
	}
	b.queue = append(b.queue, item)

	if !b.started {
		b.started = true
		go b.run()
	}
	if len(b.queue) >= b.exportTriggerSize {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

// QueueSize returns the number of items waiting to be exported.
func (b *BatchTraceProcessor) QueueSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Shutdown stops the background worker and exports everything still queued.
func (b *BatchTraceProcessor) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.shutdown {
		b.mu.Unlock()
		return nil
	}
	b.shutdown = true
	started := b.started
	b.mu.Unlock()

	if started {
		close(b.stop)
		select {
		case <-b.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return b.exportBatches(ctx)
}

// ForceFlush exports all queued items immediately.
func (b *BatchTraceProcessor) ForceFlush(ctx context.Context) error {
	return b.exportBatches(ctx)
}

func (b *BatchTraceProcessor) run() {
	defer close(b.done)

	ticker := time.NewTicker(b.scheduleDelay)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
		case <-b.kick:
		}
		if err := b.exportBatches(context.Background()); err != nil {
			Logger().Error("BatchTraceProcessor export failed", slog.String("error", err.Error()))
		}
	}
}

// exportBatches drains the queue, exporting batches of at most maxBatchSize.
func (b *BatchTraceProcessor) exportBatches(ctx context.Context) error {
	b.exportMu.Lock()
	defer b.exportMu.Unlock()

	for {
		b.mu.Lock()
		n := min(len(b.queue), b.maxBatchSize)
		if n == 0 {
			b.mu.Unlock()
			return nil
		}
		batch := make([]any, n)
		copy(batch, b.queue[:n])
		b.queue = b.queue[n:]
		b.mu.Unlock()

		if err := b.exporter.Export(ctx, batch); err != nil {
			return err
		}
	}
}
