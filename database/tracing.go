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

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tomoncle/bunrepo/database"

// TracingHook wraps every query in a client span named after its operation.
type TracingHook struct {
	tracer trace.Tracer
	system string
}

var _ bun.QueryHook = (*TracingHook)(nil)

// NewTracingHook uses the global tracer provider when tp is nil. system is
// recorded as db.system.
func NewTracingHook(tp trace.TracerProvider, system string) *TracingHook {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TracingHook{tracer: tp.Tracer(instrumentationName), system: system}
}

func (h *TracingHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	ctx, _ = h.tracer.Start(ctx, event.Operation(), trace.WithSpanKind(trace.SpanKindClient))
	return ctx
}

func (h *TracingHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", h.system),
		attribute.String("db.operation", event.Operation()),
		attribute.String("db.statement", event.Query),
	)
	if event.Result != nil {
		if n, err := event.Result.RowsAffected(); err == nil {
			span.SetAttributes(attribute.Int64("db.rows_affected", n))
		}
	}
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		span.RecordError(event.Err)
		span.SetStatus(codes.Error, event.Err.Error())
	}
}
