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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/tomoncle/bunrepo/database"
	"github.com/tomoncle/bunrepo/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db    *bun.DB
	table *schema.Table
	pk    *schema.Field
	cols  columnResolver
}

// NewRepository returns a generic repository backed by the provided Bun DB.
// T must be a bun model struct with exactly one primary key.
func NewRepository[T any](db *bun.DB) (Repository[T], error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidModel, typ)
	}
	table := db.Table(typ)
	if len(table.PKs) != 1 {
		return nil, fmt.Errorf("%w: %s has %d primary keys, want 1", ErrInvalidModel, typ, len(table.PKs))
	}
	return &baseRepositoryImpl[T]{
		db:    db,
		table: table,
		pk:    table.PKs[0],
		cols:  columnResolver{table: table},
	}, nil
}

func (r *baseRepositoryImpl[T]) Table() *schema.Table { return r.table }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T]) valsToSlice(entity ...*T) []*T {
	entities := make([]*T, len(entity))
	copy(entities, entity)
	return entities
}

// PrimaryKey reads the primary key value out of entity.
func (r *baseRepositoryImpl[T]) PrimaryKey(entity *T) (any, error) {
	if entity == nil {
		return nil, fmt.Errorf("%w: nil %s", ErrInvalidModel, r.table.TypeName)
	}
	return reflect.ValueOf(entity).Elem().FieldByIndex(r.pk.Index).Interface(), nil
}

func (r *baseRepositoryImpl[T]) wherePK(id any) (string, []interface{}) {
	return "? = ?", []interface{}{bun.Ident(r.pk.Name), id}
}

func (r *baseRepositoryImpl[T]) FindOneByID(ctx context.Context, id any) (*T, error) {
	entity := new(T)
	query, args := r.wherePK(id)
	err := r.db.NewSelect().Model(entity).Where(query, args...).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s with %s %v", ErrNotFound, r.table.Name, r.pk.Name, id)
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) ExistsByID(ctx context.Context, id any) (bool, error) {
	query, args := r.wherePK(id)
	return r.db.NewSelect().Model((*T)(nil)).Where(query, args...).Exists(ctx)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, where types.Where) (int64, error) {
	q, err := r.BuildCount(where)
	if err != nil {
		return 0, err
	}
	n, err := q.Count(ctx)
	return int64(n), err
}

func (r *baseRepositoryImpl[T]) UpdateByID(ctx context.Context, id any, entity *T) (int64, error) {
	cols := r.nonZeroColumns(entity)
	if len(cols) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyUpdate, r.table.Name)
	}
	query, args := r.wherePK(id)
	return affected(r.db.NewUpdate().Model(entity).Column(cols...).Where(query, args...).Exec(ctx))
}

func (r *baseRepositoryImpl[T]) ReplaceByID(ctx context.Context, id any, entity *T) (int64, error) {
	cols := r.replaceColumns(entity)
	if len(cols) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyUpdate, r.table.Name)
	}
	query, args := r.wherePK(id)
	return affected(r.db.NewUpdate().Model(entity).Column(cols...).Where(query, args...).Exec(ctx))
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) (int64, error) {
	query, args := r.wherePK(id)
	return affected(r.db.NewDelete().Model((*T)(nil)).Where(query, args...).Exec(ctx))
}

func (r *baseRepositoryImpl[T]) UpdateAll(ctx context.Context, entity *T, where types.Where) (int64, error) {
	q, err := r.BuildUpdate(entity, where)
	if err != nil {
		return 0, err
	}
	return affected(q.Exec(ctx))
}

func (r *baseRepositoryImpl[T]) DeleteAll(ctx context.Context, where types.Where) (int64, error) {
	q, err := r.BuildDelete(where)
	if err != nil {
		return 0, err
	}
	return affected(q.Exec(ctx))
}

// BuildSelect applies the filter to a select bound to dest: page window,
// projection, merged ordering, then the compiled where predicate.
func (r *baseRepositoryImpl[T]) BuildSelect(filter *types.Filter, dest *[]*T) (*bun.SelectQuery, error) {
	q := r.db.NewSelect().Model(dest)
	if filter == nil {
		return q, nil
	}
	q = q.Limit(filter.Limit).Offset(filter.Offset)

	if len(filter.Fields) > 0 {
		cols, err := r.projection(filter.Fields)
		if err != nil {
			return nil, err
		}
		q = q.Column(cols...)
	}

	order, err := r.ordering(filter.Order)
	if err != nil {
		return nil, err
	}
	for _, s := range order {
		q = q.OrderExpr("? "+s.Direction.Name(), bun.Ident(s.Field))
	}

	p, err := r.cols.compile(filter.Where)
	if err != nil {
		return nil, err
	}
	if !p.IsEmpty() {
		q = q.Where(p.Query, p.Args...)
	}
	return q, nil
}

// projection resolves field names to columns, dropping repeats.
func (r *baseRepositoryImpl[T]) projection(fields []string) ([]string, error) {
	cols := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, name := range fields {
		col, err := r.cols.column(name)
		if err != nil {
			return nil, err
		}
		if !seen[col] {
			seen[col] = true
			cols = append(cols, col)
		}
	}
	return cols, nil
}

// ordering resolves sort fields to columns and merges entries naming the same
// column: the last direction wins, the first position is kept.
func (r *baseRepositoryImpl[T]) ordering(order []types.Sort) ([]types.Sort, error) {
	if len(order) == 0 {
		return nil, nil
	}
	resolved := make([]types.Sort, 0, len(order))
	for _, s := range order {
		col, err := r.cols.column(s.Field)
		if err != nil {
			return nil, err
		}
		if !s.Direction.IsValid() {
			return nil, fmt.Errorf("%w: order direction %d on %q", types.ErrInvalidFilter, s.Direction, s.Field)
		}
		resolved = append(resolved, types.Sort{Field: col, Direction: s.Direction})
	}
	merged := types.Filter{Order: resolved}
	return merged.MergedOrder(), nil
}

func (r *baseRepositoryImpl[T]) BuildCount(where types.Where) (*bun.SelectQuery, error) {
	q := r.db.NewSelect().Model((*T)(nil))
	p, err := r.cols.compile(where)
	if err != nil {
		return nil, err
	}
	if !p.IsEmpty() {
		q = q.Where(p.Query, p.Args...)
	}
	return q, nil
}

// BuildUpdate sets the non-zero data fields of entity on every row matching
// where. A nil where matches every row.
func (r *baseRepositoryImpl[T]) BuildUpdate(entity *T, where types.Where) (*bun.UpdateQuery, error) {
	cols := r.nonZeroColumns(entity)
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyUpdate, r.table.Name)
	}
	p, err := r.scope(where)
	if err != nil {
		return nil, err
	}
	return r.db.NewUpdate().Model(entity).Column(cols...).Where(p.Query, p.Args...), nil
}

// BuildDelete removes every row matching where. A nil where matches every row.
func (r *baseRepositoryImpl[T]) BuildDelete(where types.Where) (*bun.DeleteQuery, error) {
	p, err := r.scope(where)
	if err != nil {
		return nil, err
	}
	return r.db.NewDelete().Model((*T)(nil)).Where(p.Query, p.Args...), nil
}

// scope compiles where for UPDATE/DELETE, which bun refuses to run without a
// WHERE clause.
func (r *baseRepositoryImpl[T]) scope(where types.Where) (Predicate, error) {
	p, err := r.cols.compile(where)
	if err != nil {
		return Predicate{}, err
	}
	if p.IsEmpty() {
		p.Query = matchAll
	}
	return p, nil
}

func (r *baseRepositoryImpl[T]) nonZeroColumns(entity *T) []string {
	if entity == nil {
		return nil
	}
	strct := reflect.ValueOf(entity).Elem()
	var cols []string
	for _, f := range r.table.DataFields {
		if !strct.FieldByIndex(f.Index).IsZero() {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

func (r *baseRepositoryImpl[T]) replaceColumns(entity *T) []string {
	if entity == nil {
		return nil
	}
	strct := reflect.ValueOf(entity).Elem()
	var cols []string
	for _, f := range r.table.DataFields {
		if f.SQLDefault != "" && strct.FieldByIndex(f.Index).IsZero() {
			continue
		}
		cols = append(cols, f.Name)
	}
	return cols
}

func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Save upserts by primary key using the dialect's native conflict clause and
// falls back to insert-then-update for dialects without one. On conflict only
// the non-zero data fields of an entity are written, so a partial entity
// leaves the other columns of the stored row untouched. Entities are batched
// by the set of columns they carry.
func (r *baseRepositoryImpl[T]) Save(ctx context.Context, entity ...*T) error {
	if len(entity) == 0 {
		return nil
	}
	entities := r.valsToSlice(entity...)

	native := r.db.HasFeature(feature.InsertOnConflict) || r.db.HasFeature(feature.InsertOnDuplicateKey)
	if !native {
		return r.saveFallback(ctx, entities)
	}
	for _, batch := range r.batchByColumns(entities) {
		if err := r.upsert(ctx, batch.entities, batch.cols); err != nil {
			return err
		}
	}
	return nil
}

type saveBatch[T any] struct {
	cols     []string
	entities []*T
}

// batchByColumns groups consecutive entities that set the same columns.
func (r *baseRepositoryImpl[T]) batchByColumns(entities []*T) []saveBatch[T] {
	var batches []saveBatch[T]
	for _, entity := range entities {
		cols := r.nonZeroColumns(entity)
		if n := len(batches); n > 0 && slices.Equal(batches[n-1].cols, cols) {
			batches[n-1].entities = append(batches[n-1].entities, entity)
			continue
		}
		batches = append(batches, saveBatch[T]{cols: cols, entities: []*T{entity}})
	}
	return batches
}

func (r *baseRepositoryImpl[T]) upsert(ctx context.Context, entities []*T, cols []string) error {
	if len(cols) == 0 {
		// a no-op assignment still yields the stored row for RETURNING
		cols = []string{r.pk.Name}
	}
	insertQuery := r.db.NewInsert().Model(&entities)
	if r.db.HasFeature(feature.InsertOnConflict) {
		insertQuery = r.onConflictUpdate(insertQuery, cols)
	} else {
		insertQuery = r.onDuplicateKeyUpdate(insertQuery, cols)
	}
	if r.db.HasFeature(feature.InsertReturning) {
		insertQuery = insertQuery.Returning("*")
	}
	_, err := insertQuery.Exec(ctx)
	return err
}

// onConflictUpdate covers PostgreSQL and SQLite.
func (r *baseRepositoryImpl[T]) onConflictUpdate(q *bun.InsertQuery, cols []string) *bun.InsertQuery {
	q = q.On("CONFLICT (?) DO UPDATE", bun.Ident(r.pk.Name))
	for _, col := range cols {
		q = q.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
	}
	return q
}

// onDuplicateKeyUpdate covers MySQL.
func (r *baseRepositoryImpl[T]) onDuplicateKeyUpdate(q *bun.InsertQuery, cols []string) *bun.InsertQuery {
	q = q.On("DUPLICATE KEY UPDATE")
	for _, col := range cols {
		q = q.Set("? = VALUES(?)", bun.Ident(col), bun.Ident(col))
	}
	return q
}

func (r *baseRepositoryImpl[T]) saveFallback(ctx context.Context, entities []*T) error {
	for _, entity := range entities {
		_, err := r.db.NewInsert().Model(entity).Exec(ctx)
		if err == nil {
			continue
		}
		if _, kind := database.IsSqlError(err); kind != database.DuplicateKeyErr {
			return err
		}
		cols := r.nonZeroColumns(entity)
		if len(cols) == 0 {
			continue
		}
		if _, updateErr := r.db.NewUpdate().Model(entity).Column(cols...).WherePK().Exec(ctx); updateErr != nil {
			return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %w", err, updateErr)
		}
	}
	return nil
}
