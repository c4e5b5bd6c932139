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

import "errors"

var (
	// ErrNotFound is returned when no row matches a primary key.
	ErrNotFound = errors.New("not found")

	// ErrUnknownField is returned when a filter names a property the model
	// does not have.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidModel is returned for entity types that are not bun models
	// with exactly one primary key.
	ErrInvalidModel = errors.New("invalid model")

	// ErrEmptyUpdate is returned when an update carries no column to set.
	ErrEmptyUpdate = errors.New("no columns to update")
)
