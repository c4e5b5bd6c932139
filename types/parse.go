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
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ParseFilterJSON decodes a LoopBack style filter document, e.g.
//
//	{"where": {"status": "active", "age": {"gt": 18}}, "order": ["age DESC"], "limit": 10}
//
// An object "order" keeps the key order of the document.
func ParseFilterJSON(data []byte) (*Filter, error) {
	var doc JsonObject
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	if _, ok := toObject(doc["order"]); ok {
		var raw struct {
			Order json.RawMessage `json:"order"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		entries, err := orderedEntries(raw.Order)
		if err != nil {
			return nil, err
		}
		doc["order"] = entries
	}
	return ParseFilter(doc)
}

// orderedEntries splits a JSON object into single-key objects in document
// order.
func orderedEntries(data json.RawMessage) ([]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	var entries []interface{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		key, _ := tok.(string)
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		entries = append(entries, JsonObject{key: value})
	}
	return entries, nil
}

// ParseFilter converts a decoded filter document into a Filter. "skip" is
// accepted as an alias of "offset".
func ParseFilter(doc JsonObject) (*Filter, error) {
	filter := &Filter{}
	if doc == nil {
		return filter, nil
	}
	for key, raw := range doc {
		var err error
		switch key {
		case "limit":
			filter.Limit, err = toInt(key, raw)
		case "offset", "skip":
			filter.Offset, err = toInt(key, raw)
		case "fields":
			filter.Fields, err = parseFields(raw)
		case "order":
			filter.Order, err = parseOrder(raw)
		case "where":
			obj, ok := toObject(raw)
			if !ok {
				return nil, fmt.Errorf("%w: where must be an object", ErrInvalidFilter)
			}
			filter.Where, err = ParseWhere(obj)
		default:
			err = fmt.Errorf("%w: unknown key %q", ErrInvalidFilter, key)
		}
		if err != nil {
			return nil, err
		}
	}
	return filter, nil
}

// ParseWhere converts a LoopBack where document into an expression tree.
// Sibling keys are joined with AND in key order.
func ParseWhere(doc JsonObject) (Where, error) {
	if len(doc) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	and := make(And, 0, len(keys))
	for _, key := range keys {
		raw := doc[key]
		switch key {
		case "and", "or":
			items, ok := raw.([]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: %q expects an array", ErrInvalidFilter, key)
			}
			children := make([]Where, 0, len(items))
			for _, item := range items {
				obj, ok := toObject(item)
				if !ok {
					return nil, fmt.Errorf("%w: %q items must be objects", ErrInvalidFilter, key)
				}
				child, err := ParseWhere(obj)
				if err != nil {
					return nil, err
				}
				if child != nil {
					children = append(children, child)
				}
			}
			if key == "and" {
				and = append(and, And(children))
			} else {
				and = append(and, Or(children))
			}
		default:
			cond, err := parseCondition(key, raw)
			if err != nil {
				return nil, err
			}
			and = append(and, cond)
		}
	}
	if len(and) == 1 {
		return and[0], nil
	}
	return and, nil
}

func parseCondition(field string, raw interface{}) (Where, error) {
	obj, ok := toObject(raw)
	if !ok {
		return Eq(field, raw), nil
	}
	if len(obj) != 1 {
		return nil, fmt.Errorf("%w: %q must hold exactly one operator", ErrInvalidFilter, field)
	}
	for name, value := range obj {
		op := Operator(name)
		if !op.IsValid() {
			return nil, fmt.Errorf("%w: %q on %q", ErrUnsupportedOperator, name, field)
		}
		switch op {
		case OpBetween:
			bounds, ok := value.([]interface{})
			if !ok || len(bounds) != 2 {
				return nil, fmt.Errorf("%w: between on %q expects two values", ErrInvalidFilter, field)
			}
			return Between(field, bounds[0], bounds[1]), nil
		case OpIn, OpNotIn:
			if _, ok := value.([]interface{}); !ok {
				return nil, fmt.Errorf("%w: %s on %q expects an array", ErrInvalidFilter, op, field)
			}
		}
		return Condition{Field: field, Op: op, Value: value}, nil
	}
	return nil, nil
}

// parseFields accepts ["a", "b"] or {"a": true, "b": true}. Exclusion
// projections ({"a": false}) are rejected instead of being read as inclusion.
func parseFields(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case []interface{}:
		fields := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: fields must be strings", ErrInvalidFilter)
			}
			fields = append(fields, s)
		}
		return fields, nil
	case map[string]interface{}, JsonObject:
		obj, _ := toObject(v)
		fields := make([]string, 0, len(obj))
		for name, flag := range obj {
			b, ok := flag.(bool)
			if !ok || !b {
				return nil, fmt.Errorf("%w: field %q: only inclusion projections are supported", ErrInvalidFilter, name)
			}
			fields = append(fields, name)
		}
		sort.Strings(fields)
		return fields, nil
	default:
		return nil, fmt.Errorf("%w: fields must be an array or object", ErrInvalidFilter)
	}
}

// parseOrder accepts "a DESC", ["a DESC", "b"], {"a": "DESC"} or
// [{"a": "ASC"}, {"a": "DESC"}]. A decoded map has no key order, so the
// object form is read in key order here; ParseFilterJSON keeps document order.
func parseOrder(raw interface{}) ([]Sort, error) {
	switch v := raw.(type) {
	case string:
		return parseOrderString(v)
	case []interface{}:
		var order []Sort
		for _, item := range v {
			sorts, err := parseOrder(item)
			if err != nil {
				return nil, err
			}
			order = append(order, sorts...)
		}
		return order, nil
	case map[string]interface{}, JsonObject:
		obj, _ := toObject(v)
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		order := make([]Sort, 0, len(keys))
		for _, k := range keys {
			s, ok := obj[k].(string)
			if !ok {
				return nil, fmt.Errorf("%w: order direction of %q must be a string", ErrInvalidFilter, k)
			}
			dir := ParseDirection(s)
			if !dir.IsValid() {
				return nil, fmt.Errorf("%w: order direction %q", ErrInvalidFilter, s)
			}
			order = append(order, Sort{Field: k, Direction: dir})
		}
		return order, nil
	default:
		return nil, fmt.Errorf("%w: unsupported order value %v", ErrInvalidFilter, raw)
	}
}

func parseOrderString(s string) ([]Sort, error) {
	var order []Sort
	for _, part := range strings.Split(s, ",") {
		tokens := strings.Fields(part)
		switch len(tokens) {
		case 0:
			continue
		case 1:
			order = append(order, Sort{Field: tokens[0], Direction: Asc})
		case 2:
			dir := ParseDirection(tokens[1])
			if !dir.IsValid() {
				return nil, fmt.Errorf("%w: order direction %q", ErrInvalidFilter, tokens[1])
			}
			order = append(order, Sort{Field: tokens[0], Direction: dir})
		default:
			return nil, fmt.Errorf("%w: order clause %q", ErrInvalidFilter, part)
		}
	}
	return order, nil
}

func toObject(raw interface{}) (JsonObject, bool) {
	switch v := raw.(type) {
	case JsonObject:
		return v, true
	case map[string]interface{}:
		return v, true
	default:
		return nil, false
	}
}

func toInt(key string, raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidFilter, key)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, key, err)
		}
		return int(n), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidFilter, key)
	}
}
