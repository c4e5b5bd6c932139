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
	"fmt"
	"reflect"
	"strings"

	"github.com/tomoncle/bunrepo/types"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

const (
	matchAll  = "1 = 1"
	matchNone = "1 = 0"
)

// Predicate is a where expression compiled to a bun query fragment. Query uses
// "?" placeholders that bun fills from Args when the statement is formatted.
type Predicate struct {
	Query string
	Args  []interface{}
}

// IsEmpty reports whether the predicate constrains nothing.
func (p Predicate) IsEmpty() bool { return p.Query == "" }

// columnResolver maps entity property names to SQL column names.
type columnResolver struct {
	table *schema.Table
}

// column accepts the SQL column name or the Go struct field name.
func (c columnResolver) column(name string) (string, error) {
	if f, ok := c.table.FieldMap[name]; ok {
		return f.Name, nil
	}
	for _, f := range c.table.Fields {
		if f.GoName == name {
			return f.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %q on %s", ErrUnknownField, name, c.table.Name)
}

// CompileWhere translates a where expression into a single predicate. A nil
// expression compiles to an empty predicate.
func CompileWhere(table *schema.Table, where types.Where) (Predicate, error) {
	return columnResolver{table: table}.compile(where)
}

func (c columnResolver) compile(where types.Where) (Predicate, error) {
	switch node := where.(type) {
	case nil:
		return Predicate{}, nil
	case types.Condition:
		return c.condition(node)
	case types.And:
		return c.group(node, " AND ", matchAll)
	case types.Or:
		return c.group(node, " OR ", matchNone)
	case types.Not:
		if node.Where == nil {
			return Predicate{}, fmt.Errorf("%w: NOT without operand", types.ErrInvalidFilter)
		}
		inner, err := c.compile(node.Where)
		if err != nil {
			return Predicate{}, err
		}
		if inner.IsEmpty() {
			return Predicate{Query: matchNone}, nil
		}
		return Predicate{Query: "NOT (" + inner.Query + ")", Args: inner.Args}, nil
	default:
		return Predicate{}, fmt.Errorf("%w: expression %T", types.ErrUnsupportedOperator, where)
	}
}

func (c columnResolver) group(children []types.Where, sep, empty string) (Predicate, error) {
	parts := make([]Predicate, 0, len(children))
	for _, child := range children {
		p, err := c.compile(child)
		if err != nil {
			return Predicate{}, err
		}
		if !p.IsEmpty() {
			parts = append(parts, p)
		}
	}
	switch len(parts) {
	case 0:
		return Predicate{Query: empty}, nil
	case 1:
		return parts[0], nil
	}
	queries := make([]string, len(parts))
	var args []interface{}
	for i, p := range parts {
		queries[i] = "(" + p.Query + ")"
		args = append(args, p.Args...)
	}
	return Predicate{Query: strings.Join(queries, sep), Args: args}, nil
}

func (c columnResolver) condition(cond types.Condition) (Predicate, error) {
	col, err := c.column(cond.Field)
	if err != nil {
		return Predicate{}, err
	}
	ident := bun.Ident(col)

	binary := func(op string) Predicate {
		return Predicate{Query: "? " + op + " ?", Args: []interface{}{ident, cond.Value}}
	}

	switch cond.Op {
	case types.OpEq, "":
		if cond.Value == nil {
			return Predicate{Query: "? IS NULL", Args: []interface{}{ident}}, nil
		}
		return binary("="), nil
	case types.OpNeq:
		if cond.Value == nil {
			return Predicate{Query: "? IS NOT NULL", Args: []interface{}{ident}}, nil
		}
		return binary("<>"), nil
	case types.OpGt:
		return binary(">"), nil
	case types.OpGte:
		return binary(">="), nil
	case types.OpLt:
		return binary("<"), nil
	case types.OpLte:
		return binary("<="), nil
	case types.OpLike:
		return binary("LIKE"), nil
	case types.OpNotLike:
		return binary("NOT LIKE"), nil
	case types.OpIn, types.OpNotIn:
		n, ok := sliceLen(cond.Value)
		if !ok {
			return Predicate{}, fmt.Errorf("%w: %s on %q expects a slice", types.ErrInvalidFilter, cond.Op, cond.Field)
		}
		if n == 0 {
			if cond.Op == types.OpIn {
				return Predicate{Query: matchNone}, nil
			}
			return Predicate{Query: matchAll}, nil
		}
		op := "IN"
		if cond.Op == types.OpNotIn {
			op = "NOT IN"
		}
		return Predicate{Query: "? " + op + " (?)", Args: []interface{}{ident, bun.In(cond.Value)}}, nil
	case types.OpBetween:
		low, high, ok := bounds(cond.Value)
		if !ok {
			return Predicate{}, fmt.Errorf("%w: between on %q expects two values", types.ErrInvalidFilter, cond.Field)
		}
		return Predicate{Query: "? BETWEEN ? AND ?", Args: []interface{}{ident, low, high}}, nil
	default:
		return Predicate{}, fmt.Errorf("%w: %q on %q", types.ErrUnsupportedOperator, cond.Op, cond.Field)
	}
}

func sliceLen(v interface{}) (int, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return 0, false
	}
	return rv.Len(), true
}

func bounds(v interface{}) (interface{}, interface{}, bool) {
	n, ok := sliceLen(v)
	if !ok || n != 2 {
		return nil, nil, false
	}
	rv := reflect.ValueOf(v)
	return rv.Index(0).Interface(), rv.Index(1).Interface(), true
}
