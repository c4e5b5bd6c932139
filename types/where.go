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

import (
	"errors"
	"sort"
)

// ErrUnsupportedOperator is returned for a condition operator that has no SQL
// translation.
var ErrUnsupportedOperator = errors.New("unsupported where operator")

// Operator names follow the LoopBack where-filter vocabulary.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpIn      Operator = "inq"
	OpNotIn   Operator = "nin"
	OpBetween Operator = "between"
	OpLike    Operator = "like"
	OpNotLike Operator = "nlike"
)

var operators = map[Operator]struct{}{
	OpEq: {}, OpNeq: {}, OpGt: {}, OpGte: {}, OpLt: {}, OpLte: {},
	OpIn: {}, OpNotIn: {}, OpBetween: {}, OpLike: {}, OpNotLike: {},
}

// IsValid reports whether the operator is one the compiler knows.
func (o Operator) IsValid() bool {
	_, ok := operators[o]
	return ok
}

// Where is a predicate expression. The concrete node types are Condition,
// And, Or and Not.
type Where interface {
	isWhere()
}

// Condition compares one entity property with a value. A nil Value with OpEq
// or OpNeq means IS NULL / IS NOT NULL.
type Condition struct {
	Field string
	Op    Operator
	Value any
}

// And matches when every child matches. An empty And matches everything.
type And []Where

// Or matches when any child matches. An empty Or matches nothing.
type Or []Where

// Not negates its child.
type Not struct {
	Where Where
}

func (Condition) isWhere() {}
func (And) isWhere()       {}
func (Or) isWhere()        {}
func (Not) isWhere()       {}

func Eq(field string, value any) Condition  { return Condition{field, OpEq, value} }
func Neq(field string, value any) Condition { return Condition{field, OpNeq, value} }
func Gt(field string, value any) Condition  { return Condition{field, OpGt, value} }
func Gte(field string, value any) Condition { return Condition{field, OpGte, value} }
func Lt(field string, value any) Condition  { return Condition{field, OpLt, value} }
func Lte(field string, value any) Condition { return Condition{field, OpLte, value} }

// In expects a slice value.
func In(field string, values any) Condition { return Condition{field, OpIn, values} }

// NotIn expects a slice value.
func NotIn(field string, values any) Condition { return Condition{field, OpNotIn, values} }

// Between is inclusive on both ends.
func Between(field string, low, high any) Condition {
	return Condition{field, OpBetween, []any{low, high}}
}

func Like(field string, pattern string) Condition    { return Condition{field, OpLike, pattern} }
func NotLike(field string, pattern string) Condition { return Condition{field, OpNotLike, pattern} }
func IsNull(field string) Condition                  { return Condition{field, OpEq, nil} }
func IsNotNull(field string) Condition               { return Condition{field, OpNeq, nil} }

func All(where ...Where) And { return And(where) }
func Any(where ...Where) Or  { return Or(where) }
func Negate(where Where) Not { return Not{Where: where} }

// Match builds the flat equality form: every key equals its value. Keys are
// sorted so the generated SQL is stable.
func Match(fields map[string]any) Where {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	and := make(And, 0, len(keys))
	for _, k := range keys {
		and = append(and, Eq(k, fields[k]))
	}
	if len(and) == 1 {
		return and[0]
	}
	return and
}
