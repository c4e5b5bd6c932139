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
	"reflect"
	"sync"

	"github.com/uptrace/bun"
)

// Registry memoises one repository per entity type over a shared DataSource.
// The source is asked for its database on every lookup; a cached repository is
// rebuilt when the source hands out a different database, e.g. after a
// reconnect. A failed lookup is not cached, so the next call retries.
type Registry struct {
	source DataSource
	mu     sync.Mutex
	repos  map[reflect.Type]registryEntry
}

type registryEntry struct {
	db   *bun.DB
	repo any
}

func NewRegistry(source DataSource) *Registry {
	return &Registry{source: source, repos: make(map[reflect.Type]registryEntry)}
}

// Source returns the data source the registry opens databases from.
func (r *Registry) Source() DataSource { return r.source }

// Reset drops every cached repository.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repos = make(map[reflect.Type]registryEntry)
}

// Len reports how many repositories are cached.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.repos)
}

// Get returns the repository for T bound to the database the source currently
// hands out, opening the data source on first use.
func Get[T any](ctx context.Context, r *Registry) (Repository[T], error) {
	if r == nil || r.source == nil {
		return nil, errors.New("repository registry has no data source")
	}
	db, err := r.source.Open(ctx)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errors.New("repository data source returned no database")
	}
	key := reflect.TypeOf((*T)(nil)).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.repos[key]; ok && cached.db == db {
		return cached.repo.(Repository[T]), nil
	}

	repo, err := NewRepository[T](db)
	if err != nil {
		return nil, err
	}
	r.repos[key] = registryEntry{db: db, repo: repo}
	return repo, nil
}
