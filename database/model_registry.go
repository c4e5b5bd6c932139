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
	"reflect"
	"sort"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

var defaultRegistry = newModelRegistry()

// SQLModel is a bun model whose table is created by migrations. Instance
// returns a struct pointer; lower Priority values are created first.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

// ModelRegistry holds at most one SQLModel per Go type.
type ModelRegistry interface {
	Register(model SQLModel)
	Models() []SQLModel
}

type modelRegistry struct {
	mu     sync.RWMutex
	index  map[reflect.Type]int
	models []SQLModel
}

func newModelRegistry() ModelRegistry {
	return &modelRegistry{index: make(map[reflect.Type]int)}
}

// Register adds model, replacing an earlier registration of the same type.
func (r *modelRegistry) Register(model SQLModel) {
	if model == nil || model.Instance() == nil {
		return
	}
	typ := modelType(model.Instance())

	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[typ]; ok {
		r.models[i] = model
		return
	}
	r.index[typ] = len(r.models)
	r.models = append(r.models, model)
}

// Models lists models by ascending priority, ties in registration order.
func (r *modelRegistry) Models() []SQLModel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]SQLModel, len(r.models))
	copy(result, r.models)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Priority() < result[j].Priority()
	})
	return result
}

type ModelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter wraps a struct pointer and priority into an SQLModel.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return &ModelAdapter{instance: instance, priority: priority}
}

func (a *ModelAdapter) Instance() interface{} { return a.instance }

func (a *ModelAdapter) Priority() int { return a.priority }

// modelTable pairs a registered model with its bun table metadata.
type modelTable struct {
	model SQLModel
	table *schema.Table
}

// registeredTables resolves the tables of registry's models on db, in
// creation order.
func registeredTables(db *bun.DB, registry ModelRegistry) []modelTable {
	models := registry.Models()
	tables := make([]modelTable, 0, len(models))
	for _, model := range models {
		tables = append(tables, modelTable{model: model, table: db.Table(modelType(model.Instance()))})
	}
	return tables
}

// GetRegisteredModels returns the default registry's models by priority.
func GetRegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

// RegisteredModel adds a model to the default registry.
func RegisteredModel(model SQLModel) {
	defaultRegistry.Register(model)
}

func RegisteredModelInstances() []interface{} {
	return modelInstances(defaultRegistry)
}

func modelInstances(registry ModelRegistry) []interface{} {
	models := registry.Models()
	instances := make([]interface{}, len(models))
	for i, model := range models {
		instances[i] = model.Instance()
	}
	return instances
}

// RegisterEntity registers the bun model T in the default registry.
func RegisterEntity[T any](priority int) {
	RegisteredModel(NewModelAdapter((*T)(nil), priority))
}
