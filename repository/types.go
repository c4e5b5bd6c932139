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

	"github.com/tomoncle/bunrepo/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines primary-key based persistence for a generic entity
// type. Mutations report the number of affected rows.
type CrudRepository[T any] interface {
	// Save upserts entities by primary key and fills generated columns back
	// into them.
	Save(ctx context.Context, entity ...*T) error

	FindOneByID(ctx context.Context, id any) (*T, error)

	ExistsByID(ctx context.Context, id any) (bool, error)

	// UpdateByID sets the non-zero data fields of entity on row id.
	UpdateByID(ctx context.Context, id any, entity *T) (int64, error)

	// ReplaceByID sets every data field of entity on row id. Zero fields backed
	// by a column default are left untouched.
	ReplaceByID(ctx context.Context, id any, entity *T) (int64, error)

	DeleteByID(ctx context.Context, id any) (int64, error)

	// UpdateAll sets the non-zero data fields of entity on every row matching
	// where.
	UpdateAll(ctx context.Context, entity *T, where types.Where) (int64, error)

	DeleteAll(ctx context.Context, where types.Where) (int64, error)

	Count(ctx context.Context, where types.Where) (int64, error)
}

// QueryRepository builds bun queries from filters and where expressions
// without executing them.
type QueryRepository[T any] interface {
	BuildSelect(filter *types.Filter, dest *[]*T) (*bun.SelectQuery, error)
	BuildCount(where types.Where) (*bun.SelectQuery, error)
	BuildUpdate(entity *T, where types.Where) (*bun.UpdateQuery, error)
	BuildDelete(where types.Where) (*bun.DeleteQuery, error)
}

// Repository is the ORM handle for one entity type. It exposes the bun query
// builders for callers that need to go beyond the filter vocabulary.
type Repository[T any] interface {
	CrudRepository[T]
	QueryRepository[T]
	PrimaryKey(entity *T) (any, error)
	Table() *schema.Table
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}

// DataSource hands out a connected database, connecting on first use.
type DataSource interface {
	Open(ctx context.Context) (*bun.DB, error)
}

// DataSourceFunc adapts a function to DataSource.
type DataSourceFunc func(ctx context.Context) (*bun.DB, error)

func (f DataSourceFunc) Open(ctx context.Context) (*bun.DB, error) { return f(ctx) }

// StaticDataSource returns a DataSource that always yields db.
func StaticDataSource(db *bun.DB) DataSource {
	return DataSourceFunc(func(context.Context) (*bun.DB, error) { return db, nil })
}
