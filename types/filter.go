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

package types

import "errors"

// ErrInvalidFilter is returned when a filter document cannot be parsed.
var ErrInvalidFilter = errors.New("invalid filter")

// Sort is a single ordering entry.
type Sort struct {
	Field     string
	Direction Direction
}

// Filter describes a read query: a page window, an optional projection, an
// ordering and a predicate. Zero Limit/Offset mean unbounded.
type Filter struct {
	Limit  int
	Offset int
	Fields []string
	Order  []Sort
	Where  Where
}

// NewFilter returns a filter scoped by where.
func NewFilter(where Where) *Filter {
	return &Filter{Where: where}
}

func (f *Filter) WithLimit(limit int) *Filter {
	f.Limit = limit
	return f
}

func (f *Filter) WithOffset(offset int) *Filter {
	f.Offset = offset
	return f
}

func (f *Filter) WithFields(fields ...string) *Filter {
	f.Fields = append(f.Fields, fields...)
	return f
}

func (f *Filter) OrderBy(field string, direction Direction) *Filter {
	f.Order = append(f.Order, Sort{Field: field, Direction: direction})
	return f
}

// MergedOrder folds the ordering entries into one list keyed by field. A later
// entry for the same field overrides the direction of an earlier one but keeps
// the earlier position.
func (f *Filter) MergedOrder() []Sort {
	if f == nil || len(f.Order) == 0 {
		return nil
	}
	index := make(map[string]int, len(f.Order))
	merged := make([]Sort, 0, len(f.Order))
	for _, s := range f.Order {
		if i, ok := index[s.Field]; ok {
			merged[i].Direction = s.Direction
			continue
		}
		index[s.Field] = len(merged)
		merged = append(merged, s)
	}
	return merged
}
