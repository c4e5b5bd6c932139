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
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

type gadget struct {
	bun.BaseModel `bun:"table:gadgets"`

	Code string `bun:"code,pk"`
}

func TestRegistry_MemoisesPerType(t *testing.T) {
	db := newTestDB(t)
	var opens atomic.Int32
	registry := NewRegistry(DataSourceFunc(func(context.Context) (*bun.DB, error) {
		opens.Add(1)
		return db, nil
	}))

	ctx := context.Background()
	repos := make([]Repository[widget], 16)
	var g errgroup.Group
	for i := range repos {
		i := i
		g.Go(func() error {
			repo, err := Get[widget](ctx, registry)
			repos[i] = repo
			return err
		})
	}
	require.NoError(t, g.Wait())
	for _, repo := range repos[1:] {
		assert.Same(t, repos[0], repo)
	}

	_, err := Get[gadget](ctx, registry)
	require.NoError(t, err)
	assert.EqualValues(t, 17, opens.Load())
	assert.Equal(t, 2, registry.Len())

	registry.Reset()
	assert.Zero(t, registry.Len())
}

func TestRegistry_DoesNotCacheFailures(t *testing.T) {
	db := newTestDB(t)
	down := errors.New("database unavailable")
	var calls atomic.Int32
	registry := NewRegistry(DataSourceFunc(func(context.Context) (*bun.DB, error) {
		if calls.Add(1) == 1 {
			return nil, down
		}
		return db, nil
	}))

	ctx := context.Background()
	_, err := Get[widget](ctx, registry)
	assert.ErrorIs(t, err, down)

	repo, err := Get[widget](ctx, registry)
	require.NoError(t, err)
	assert.NotNil(t, repo)

	_, err = Get[keyless](ctx, registry)
	assert.ErrorIs(t, err, ErrInvalidModel)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistry_RebuildsWhenDatabaseChanges(t *testing.T) {
	first, second := newTestDB(t), newTestDB(t)
	current := first
	registry := NewRegistry(DataSourceFunc(func(context.Context) (*bun.DB, error) {
		return current, nil
	}))
	ctx := context.Background()

	before, err := Get[widget](ctx, registry)
	require.NoError(t, err)
	seedWidgets(t, before, &widget{Name: "a"})
	require.NoError(t, first.Close())

	current = second
	after, err := Get[widget](ctx, registry)
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, 1, registry.Len())

	n, err := after.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	again, err := Get[widget](ctx, registry)
	require.NoError(t, err)
	assert.Same(t, after, again)
}

func TestRegistry_RequiresSource(t *testing.T) {
	_, err := Get[widget](context.Background(), NewRegistry(nil))
	assert.Error(t, err)

	_, err = Get[widget](context.Background(), NewRegistry(DataSourceFunc(func(context.Context) (*bun.DB, error) {
		return nil, nil
	})))
	assert.Error(t, err)
}

func TestStaticDataSource(t *testing.T) {
	db := newTestDB(t)
	got, err := StaticDataSource(db).Open(context.Background())
	require.NoError(t, err)
	assert.Same(t, db, got)
}
