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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

var querySilent atomic.Bool

// SilenceQueryLog mutes QueryHook output, e.g. while migrations run.
func SilenceQueryLog(b bool) {
	querySilent.Store(b)
}

var (
	opSelect = color.New(color.FgGreen).SprintFunc()
	opInsert = color.New(color.FgBlue).SprintFunc()
	opUpdate = color.New(color.FgYellow).SprintFunc()
	opDelete = color.New(color.FgMagenta).SprintFunc()
	opOther  = color.New(color.FgRed).SprintFunc()
	tagQuery = color.New(color.FgCyan).SprintFunc()
	errBadge = color.New(color.BgRed, color.FgHiWhite).SprintfFunc()
)

// QueryHook prints every query, coloured by operation, with its duration.
// The environment variable named by envName overrides the configured state:
// "0" or empty disables, "2" also prints successful queries when not verbose.
type QueryHook struct {
	envName string
	enabled bool
	verbose bool
	writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

func NewQueryHook(envName string, verbose bool, w io.Writer) *QueryHook {
	if w == nil {
		w = os.Stdout
	}
	return &QueryHook{envName: envName, enabled: true, verbose: verbose, writer: w}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if querySilent.Load() {
		return
	}
	enabled, verbose := h.enabled, h.verbose
	if h.envName != "" {
		if v, ok := os.LookupEnv(h.envName); ok {
			enabled = v != "" && v != "0"
			verbose = verbose || v == "2"
		}
	}
	if !enabled {
		return
	}
	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	args := []interface{}{
		now.Format("2006-01-02 15:04:05.000"),
		tagQuery(fmt.Sprintf("%8s", "[BUN]")),
		fmt.Sprintf("%12s", now.Sub(event.StartTime).Round(time.Microsecond)),
		" ", colorOperation(event),
	}
	if event.Err != nil {
		typ := reflect.TypeOf(event.Err).String()
		args = append(args, "\t", errBadge(" %s: %s ", typ, event.Err.Error()))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

func colorOperation(event *bun.QueryEvent) string {
	switch event.Operation() {
	case "SELECT":
		return opSelect(event.Query)
	case "INSERT":
		return opInsert(event.Query)
	case "UPDATE":
		return opUpdate(event.Query)
	case "DELETE":
		return opDelete(event.Query)
	default:
		return opOther(event.Query)
	}
}

// slowQueryHook warns through the package logger about queries slower than
// slowTime.
type slowQueryHook struct {
	slowTime time.Duration
	logger   func() Logger
}

func (h *slowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}
	duration := time.Since(event.StartTime)
	if duration <= h.slowTime {
		return
	}
	if logger := h.logger(); logger != nil {
		logger.Warn("Database slow query detected",
			"duration", duration,
			"slow_threshold", h.slowTime,
			"operation", event.Operation(),
			"query", event.Query,
		)
	}
}

// installHooks attaches the query hooks selected by cfg. bundebug stays
// available through BUNDEBUG when the coloured query log is off.
func installHooks(db *bun.DB, cfg *ConnectionConfig, logger func() Logger) error {
	if cfg.EnableQueryLog {
		db.AddQueryHook(NewQueryHook("BUNREPO_QUERY_LOG", true, os.Stdout))
	} else {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithEnabled(false),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}

	if cfg.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{slowTime: cfg.SlowQueryTime, logger: logger})
	}

	if cfg.EnableMetrics {
		hook, err := NewMetricsHook(nil)
		if err != nil {
			return err
		}
		db.AddQueryHook(hook)
	}

	if cfg.EnableTracing {
		db.AddQueryHook(NewTracingHook(nil, cfg.Type))
	}
	return nil
}
