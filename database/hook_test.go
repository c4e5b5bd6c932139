/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) record(level, msg string, fields ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, level+" "+msg+" "+fmt.Sprint(fields...))
}

func (l *recordingLogger) SetLevel(LogLevel)                       {}
func (l *recordingLogger) Debug(msg string, fields ...interface{}) { l.record("DEBUG", msg, fields...) }
func (l *recordingLogger) Info(msg string, fields ...interface{})  { l.record("INFO", msg, fields...) }
func (l *recordingLogger) Warn(msg string, fields ...interface{})  { l.record("WARN", msg, fields...) }
func (l *recordingLogger) Error(msg string, fields ...interface{}) { l.record("ERROR", msg, fields...) }

func newHookedDB(t *testing.T, hooks ...bun.QueryHook) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=private")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	for _, hook := range hooks {
		db.AddQueryHook(hook)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestQueryHook_WritesQueries(t *testing.T) {
	var buf bytes.Buffer
	db := newHookedDB(t, NewQueryHook("", true, &buf))
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "SELECT 1")

	buf.Reset()
	SilenceQueryLog(true)
	_, err = db.ExecContext(ctx, "SELECT 2")
	SilenceQueryLog(false)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestQueryHook_QuietModeOnlyReportsErrors(t *testing.T) {
	var buf bytes.Buffer
	db := newHookedDB(t, NewQueryHook("BUNREPO_TEST_QUERY_LOG", false, &buf))
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	_, err = db.ExecContext(ctx, "SELECT * FROM missing_table")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "missing_table")

	buf.Reset()
	t.Setenv("BUNREPO_TEST_QUERY_LOG", "0")
	_, _ = db.ExecContext(ctx, "SELECT * FROM missing_table")
	assert.Empty(t, buf.String())
}

func TestSlowQueryHook(t *testing.T) {
	logger := &recordingLogger{}
	db := newHookedDB(t, &slowQueryHook{slowTime: 1, logger: func() Logger { return logger }})

	_, err := db.ExecContext(context.Background(), "SELECT 1")
	require.NoError(t, err)

	require.Len(t, logger.messages, 1)
	assert.Contains(t, logger.messages[0], "WARN Database slow query detected")
	assert.Contains(t, logger.messages[0], "SELECT 1")
}

func TestMetricsHook(t *testing.T) {
	reg := prometheus.NewRegistry()
	hook, err := NewMetricsHook(reg)
	require.NoError(t, err)
	again, err := NewMetricsHook(reg)
	require.NoError(t, err)
	assert.Same(t, hook.duration, again.duration)

	db := newHookedDB(t, hook)
	ctx := context.Background()
	_, err = db.ExecContext(ctx, "SELECT 1")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "SELECT * FROM missing_table")
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "bunrepo_query_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTracingHook(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	db := newHookedDB(t, NewTracingHook(tp, "sqlite"))
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "SELECT 1")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "SELECT * FROM missing_table")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "SELECT", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("db.system", "sqlite"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("db.statement", "SELECT 1"))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestDefaultLogger_Fields(t *testing.T) {
	l, hook := logtest.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	logger := NewDefaultLogger(l)

	logger.Debug("Generated SQL", "operation", "find", "sql", "SELECT 1", "dangling")
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "Generated SQL", entry.Message)
	assert.Equal(t, logrus.Fields{"operation": "find", "sql": "SELECT 1", "extra": "dangling"}, entry.Data)

	logger.SetLevel(LogLevelWarn)
	logger.Info("dropped")
	assert.Equal(t, "Generated SQL", hook.LastEntry().Message)
}

func TestInstallHooks(t *testing.T) {
	db := newHookedDB(t)
	cfg := &ConnectionConfig{SlowQueryTime: 1, EnableMetrics: true, EnableTracing: true, Type: "sqlite"}
	require.NoError(t, installHooks(db, cfg, GetLogger))
	_, err := db.ExecContext(context.Background(), "SELECT 1")
	assert.NoError(t, err)
}
