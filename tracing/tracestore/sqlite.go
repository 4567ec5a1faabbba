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

package tracestore

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nlpodyssey/agentlab/tracing"
)

// SQLiteExporter stores traces and spans in a SQLite database.
//
// By default, it uses a shared in-memory database that is lost when the
// process ends. For persistent storage, provide a file path.
type SQLiteExporter struct {
	dbDSN      string
	traceTable string
	spanTable  string
	db         *sql.DB
	mu         sync.Mutex
}

type SQLiteExporterParams struct {
	// Optional database data source name.
	// Defaults to "file::memory:?cache=shared".
	DBDataSourceName string

	// Optional name of the table to store traces.
	// Defaults to "agent_traces".
	TraceTable string

	// Optional name of the table to store spans.
	// Defaults to "agent_spans".
	SpanTable string
}

// NewSQLiteExporter opens the database and creates the schema if needed.
func NewSQLiteExporter(ctx context.Context, params SQLiteExporterParams) (_ *SQLiteExporter, err error) {
	e := &SQLiteExporter{
		dbDSN:      cmp.Or(params.DBDataSourceName, "file::memory:?cache=shared"),
		traceTable: cmp.Or(params.TraceTable, "agent_traces"),
		spanTable:  cmp.Or(params.SpanTable, "agent_spans"),
	}

	e.db, err = sql.Open("sqlite3", e.dbDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database: %w", err)
	}

	defer func() {
		if err != nil {
			if closeErr := e.Close(); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
		}
	}()

	if _, err = e.db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if err = e.initDB(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Export stores a batch of traces and spans in a single transaction.
func (e *SQLiteExporter) Export(ctx context.Context, items []any) (err error) {
	if len(items) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	for _, item := range items {
		switch v := item.(type) {
		case tracing.Trace:
			if err = e.insertTrace(ctx, tx, traceRecordFrom(v)); err != nil {
				return err
			}
		case tracing.Span:
			r, err := spanRecordFrom(v)
			if err != nil {
				return err
			}
			if err = e.insertSpan(ctx, tx, r); err != nil {
				return err
			}
		default:
			return fmt.Errorf("SQLiteExporter: unexpected item type %T", item)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (e *SQLiteExporter) insertTrace(ctx context.Context, tx *sql.Tx, r TraceRecord) error {
	metadata, err := marshalMetadata(r.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT OR REPLACE INTO "%s" (trace_id, workflow_name, group_id, metadata)
		VALUES (?, ?, ?, ?)
	`, e.traceTable), r.TraceID, r.WorkflowName, r.GroupID, metadata)
	if err != nil {
		return fmt.Errorf("error inserting trace: %w", err)
	}
	return nil
}

func (e *SQLiteExporter) insertSpan(ctx context.Context, tx *sql.Tx, r SpanRecord) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT OR REPLACE INTO "%s" (span_id, trace_id, parent_id, span_type, span_data, span_error, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.spanTable), r.SpanID, r.TraceID, r.ParentID, r.SpanType, r.Data, r.Error, nullTime(r.StartedAt), nullTime(r.EndedAt))
	if err != nil {
		return fmt.Errorf("error inserting span: %w", err)
	}
	return nil
}

// Traces returns all stored traces, oldest first.
func (e *SQLiteExporter) Traces(ctx context.Context) (_ []TraceRecord, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := e.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT trace_id, workflow_name, group_id, metadata FROM "%s"
		ORDER BY created_at ASC, rowid ASC
	`, e.traceTable))
	if err != nil {
		return nil, fmt.Errorf("error querying traces: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("error closing sql.Rows: %w", closeErr))
		}
	}()

	var traces []TraceRecord
	for rows.Next() {
		var r TraceRecord
		var metadata string
		if err = rows.Scan(&r.TraceID, &r.WorkflowName, &r.GroupID, &metadata); err != nil {
			return nil, fmt.Errorf("sql rows scan error: %w", err)
		}
		r.Metadata = unmarshalMetadata(metadata)
		traces = append(traces, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sql rows scan error: %w", err)
	}
	return traces, nil
}

// Spans returns the stored spans of a trace, ordered by start time.
func (e *SQLiteExporter) Spans(ctx context.Context, traceID string) (_ []SpanRecord, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows, err := e.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT span_id, trace_id, parent_id, span_type, span_data, span_error, started_at, ended_at
		FROM "%s"
		WHERE trace_id = ?
		ORDER BY started_at ASC, rowid ASC
	`, e.spanTable), traceID)
	if err != nil {
		return nil, fmt.Errorf("error querying spans: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("error closing sql.Rows: %w", closeErr))
		}
	}()

	var spans []SpanRecord
	for rows.Next() {
		var r SpanRecord
		var startedAt, endedAt sql.NullTime
		if err = rows.Scan(&r.SpanID, &r.TraceID, &r.ParentID, &r.SpanType, &r.Data, &r.Error, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("sql rows scan error: %w", err)
		}
		r.StartedAt = startedAt.Time
		r.EndedAt = endedAt.Time
		spans = append(spans, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sql rows scan error: %w", err)
	}
	return spans, nil
}

// Initialize the database schema.
func (e *SQLiteExporter) initDB(ctx context.Context) error {
	_, err := e.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s" (
			trace_id TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			group_id TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, e.traceTable))
	if err != nil {
		return fmt.Errorf("error creating trace table: %w", err)
	}

	_, err = e.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s" (
			span_id TEXT PRIMARY KEY,
			trace_id TEXT NOT NULL,
			parent_id TEXT NOT NULL DEFAULT '',
			span_type TEXT NOT NULL DEFAULT '',
			span_data TEXT NOT NULL DEFAULT '',
			span_error TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP,
			ended_at TIMESTAMP
		)
	`, e.spanTable))
	if err != nil {
		return fmt.Errorf("error creating span table: %w", err)
	}

	_, err = e.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS "idx_%s_trace_id" ON "%s" (trace_id, started_at)`,
		e.spanTable, e.spanTable))
	if err != nil {
		return fmt.Errorf("error creating index: %w", err)
	}
	return nil
}

// Close the database connection.
func (e *SQLiteExporter) Close() error {
	return e.db.Close()
}
