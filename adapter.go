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

package bunrepo

import (
	"context"
	"fmt"
	"sync"

	"github.com/uptrace/bun"

	"github.com/tomoncle/bunrepo/database"
	"github.com/tomoncle/bunrepo/repository"
	"github.com/tomoncle/bunrepo/types"
	"github.com/tomoncle/bunrepo/utils"
)

// ErrNotFound is returned by FindByID and by-id mutations that match no row.
var ErrNotFound = repository.ErrNotFound

const sqlDebugEnv = "BUNREPO_SQL_DEBUG"

// Statement is the rendered SQL of a query the repository would run.
type Statement struct {
	Operation string
	SQL       string
}

func (s Statement) String() string { return s.SQL }

type Repository[T any] interface {
	// Save upserts entity by primary key and returns it with generated
	// columns filled in.
	Save(ctx context.Context, entity *T) (*T, error)

	// Create behaves like Save.
	Create(ctx context.Context, entity *T) (*T, error)

	// CreateAll upserts entities in one statement.
	CreateAll(ctx context.Context, entities []*T) ([]*T, error)

	// Update patches the non-zero fields of entity on the row with its
	// primary key.
	Update(ctx context.Context, entity *T) error

	// UpdateByID patches the non-zero fields of data on row id.
	UpdateByID(ctx context.Context, id any, data *T) error

	// ReplaceByID overwrites the data columns of row id with data.
	ReplaceByID(ctx context.Context, id any, data *T) error

	// Delete removes the row with the primary key of entity.
	Delete(ctx context.Context, entity *T) error

	DeleteByID(ctx context.Context, id any) error

	FindByID(ctx context.Context, id any) (*T, error)

	Exists(ctx context.Context, id any) (bool, error)

	// Find returns every row selected by filter. A nil filter selects all rows.
	Find(ctx context.Context, filter *types.Filter) ([]*T, error)

	// FindPage returns one page of rows along with the total match count.
	FindPage(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// UpdateAll patches the non-zero fields of data on every row matching
	// where and returns the number of affected rows.
	UpdateAll(ctx context.Context, data *T, where types.Where) (int64, error)

	DeleteAll(ctx context.Context, where types.Where) (int64, error)

	Count(ctx context.Context, where types.Where) (int64, error)

	BuildQuery(ctx context.Context, filter *types.Filter) (Statement, error)

	BuildUpdate(ctx context.Context, data *T, where types.Where) (Statement, error)

	BuildDelete(ctx context.Context, where types.Where) (Statement, error)
}

// Option configures a repository.
type Option func(*options)

type options struct {
	sqlDebug bool
}

// WithSQLDebug logs the SQL of Find, UpdateAll and DeleteAll at debug level.
func WithSQLDebug(enabled bool) Option {
	return func(o *options) { o.sqlDebug = enabled }
}

var (
	defaultRegistry     *repository.Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the registry backed by the global database set up
// with database.SetupDB or database.InitDB.
func DefaultRegistry() *repository.Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = repository.NewRegistry(repository.DataSourceFunc(database.Open))
	})
	return defaultRegistry
}

type baseRepositoryImpl[T any] struct {
	registry *repository.Registry
	opts     options
}

// New returns a repository for T that resolves its ORM handle from registry on
// first use.
func New[T any](registry *repository.Registry, opts ...Option) Repository[T] {
	o := options{sqlDebug: utils.EnvDefaultBool(sqlDebugEnv, false)}
	for _, opt := range opts {
		opt(&o)
	}
	return &baseRepositoryImpl[T]{registry: registry, opts: o}
}

// NewDefault returns a repository for T over DefaultRegistry.
func NewDefault[T any](opts ...Option) Repository[T] {
	return New[T](DefaultRegistry(), opts...)
}

// handle returns the ORM handle bound to the database the registry's source
// currently hands out. The registry memoises it per database, so a reconnect
// or a new SetupDB is picked up by the next call. Failures are retried.
func (r *baseRepositoryImpl[T]) handle(ctx context.Context) (repository.Repository[T], error) {
	repo, err := repository.Get[T](ctx, r.registry)
	if err != nil {
		return nil, fmt.Errorf("bunrepo: resolve repository: %w", err)
	}
	return repo, nil
}

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, entity *T) (*T, error) {
	if entity == nil {
		return nil, fmt.Errorf("%w: nil entity", repository.ErrInvalidModel)
	}
	repo, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity *T) (*T, error) {
	return r.Save(ctx, entity)
}

func (r *baseRepositoryImpl[T]) CreateAll(ctx context.Context, entities []*T) ([]*T, error) {
	for i, entity := range entities {
		if entity == nil {
			return nil, fmt.Errorf("%w: nil entity at index %d", repository.ErrInvalidModel, i)
		}
	}
	repo, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, entities...); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	repo, err := r.handle(ctx)
	if err != nil {
		return err
	}
	id, err := repo.PrimaryKey(entity)
	if err != nil {
		return err
	}
	return r.matched(repo, id)(repo.UpdateByID(ctx, id, entity))
}

func (r *baseRepositoryImpl[T]) UpdateByID(ctx context.Context, id any, data *T) error {
	repo, err := r.handle(ctx)
	if err != nil {
		return err
	}
	return r.matched(repo, id)(repo.UpdateByID(ctx, id, data))
}

func (r *baseRepositoryImpl[T]) ReplaceByID(ctx context.Context, id any, data *T) error {
	repo, err := r.handle(ctx)
	if err != nil {
		return err
	}
	return r.matched(repo, id)(repo.ReplaceByID(ctx, id, data))
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, entity *T) error {
	repo, err := r.handle(ctx)
	if err != nil {
		return err
	}
	id, err := repo.PrimaryKey(entity)
	if err != nil {
		return err
	}
	return r.matched(repo, id)(repo.DeleteByID(ctx, id))
}

func (r *baseRepositoryImpl[T]) DeleteByID(ctx context.Context, id any) error {
	repo, err := r.handle(ctx)
	if err != nil {
		return err
	}
	return r.matched(repo, id)(repo.DeleteByID(ctx, id))
}

// matched turns a zero affected-row count into ErrNotFound.
func (r *baseRepositoryImpl[T]) matched(repo repository.Repository[T], id any) func(int64, error) error {
	return func(n int64, err error) error {
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s with id %v", ErrNotFound, repo.Table().Name, id)
		}
		return nil
	}
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id any) (*T, error) {
	repo, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	return repo.FindOneByID(ctx, id)
}

func (r *baseRepositoryImpl[T]) Exists(ctx context.Context, id any) (bool, error) {
	repo, err := r.handle(ctx)
	if err != nil {
		return false, err
	}
	return repo.ExistsByID(ctx, id)
}

func (r *baseRepositoryImpl[T]) Find(ctx context.Context, filter *types.Filter) ([]*T, error) {
	repo, err := r.handle(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*T, 0)
	q, err := repo.BuildSelect(filter, &items)
	if err != nil {
		return nil, err
	}
	r.debug(q)
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *baseRepositoryImpl[T]) FindPage(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	if page == nil {
		page = types.NewDefaultPageRequest(1, 10)
	}
	total, err := r.Count(ctx, page.GetWhere())
	if err != nil {
		return nil, err
	}
	result := types.NewDefaultPagination[T](page.GetPage(), page.GetPageSize())
	result.Total = total
	if total == 0 || int64(page.GetOffset()) >= total {
		return result, nil
	}
	items, err := r.Find(ctx, page.Filter())
	if err != nil {
		return nil, err
	}
	result.Items = items
	return result, nil
}

func (r *baseRepositoryImpl[T]) UpdateAll(ctx context.Context, data *T, where types.Where) (int64, error) {
	repo, err := r.handle(ctx)
	if err != nil {
		return 0, err
	}
	q, err := repo.BuildUpdate(data, where)
	if err != nil {
		return 0, err
	}
	r.debug(q)
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *baseRepositoryImpl[T]) DeleteAll(ctx context.Context, where types.Where) (int64, error) {
	repo, err := r.handle(ctx)
	if err != nil {
		return 0, err
	}
	q, err := repo.BuildDelete(where)
	if err != nil {
		return 0, err
	}
	r.debug(q)
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, where types.Where) (int64, error) {
	repo, err := r.handle(ctx)
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx, where)
}

func (r *baseRepositoryImpl[T]) BuildQuery(ctx context.Context, filter *types.Filter) (Statement, error) {
	repo, err := r.handle(ctx)
	if err != nil {
		return Statement{}, err
	}
	var items []*T
	q, err := repo.BuildSelect(filter, &items)
	if err != nil {
		return Statement{}, err
	}
	return render(q)
}

func (r *baseRepositoryImpl[T]) BuildUpdate(ctx context.Context, data *T, where types.Where) (Statement, error) {
	repo, err := r.handle(ctx)
	if err != nil {
		return Statement{}, err
	}
	q, err := repo.BuildUpdate(data, where)
	if err != nil {
		return Statement{}, err
	}
	return render(q)
}

func (r *baseRepositoryImpl[T]) BuildDelete(ctx context.Context, where types.Where) (Statement, error) {
	repo, err := r.handle(ctx)
	if err != nil {
		return Statement{}, err
	}
	q, err := repo.BuildDelete(where)
	if err != nil {
		return Statement{}, err
	}
	return render(q)
}

type renderable interface {
	bun.Query
	DB() *bun.DB
}

func render(q renderable) (Statement, error) {
	b, err := q.AppendQuery(q.DB().Formatter(), nil)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Operation: q.Operation(), SQL: string(b)}, nil
}

func (r *baseRepositoryImpl[T]) debug(q renderable) {
	if !r.opts.sqlDebug {
		return
	}
	stmt, err := render(q)
	if err != nil {
		database.GetLogger().Warn("Failed to render SQL", "error", err)
		return
	}
	database.GetLogger().Debug("Generated SQL", "operation", stmt.Operation, "sql", stmt.SQL)
}
