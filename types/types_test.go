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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_MergedOrder(t *testing.T) {
	filter := NewFilter(nil).
		OrderBy("a", Asc).
		OrderBy("b", Desc).
		OrderBy("a", Desc)

	assert.Equal(t, []Sort{{"a", Desc}, {"b", Desc}}, filter.MergedOrder())
	assert.Nil(t, (&Filter{}).MergedOrder())
	assert.Nil(t, (*Filter)(nil).MergedOrder())
}

func TestMatch(t *testing.T) {
	assert.Nil(t, Match(nil))
	assert.Equal(t, Eq("status", "active"), Match(map[string]any{"status": "active"}))
	assert.Equal(t,
		And{Eq("a", 1), Eq("b", 2)},
		Match(map[string]any{"b": 2, "a": 1}),
	)
}

func TestDirection(t *testing.T) {
	assert.Equal(t, Asc, ParseDirection("asc"))
	assert.Equal(t, Desc, ParseDirection(" DESC "))
	assert.Equal(t, Asc, ParseDirection(""))

	bad := ParseDirection("up")
	assert.False(t, bad.IsValid())
	assert.Equal(t, IllegalValue, bad.Number())
	assert.Equal(t, IllegalName, bad.Name())
	assert.Equal(t, "descending", Desc.Desc())
	assert.Equal(t, "DESC", Desc.String())
}

func TestOperator_IsValid(t *testing.T) {
	assert.True(t, OpBetween.IsValid())
	assert.False(t, Operator("regexp").IsValid())
}

func TestPageRequest(t *testing.T) {
	page := NewPageRequest(3, 20, Eq("status", "active"), []Sort{{"id", Desc}})
	filter := page.Filter()

	assert.Equal(t, 20, filter.Limit)
	assert.Equal(t, 40, filter.Offset)
	assert.Equal(t, Eq("status", "active"), filter.Where)
	assert.Equal(t, []Sort{{"id", Desc}}, filter.Order)

	defaults := NewDefaultPageRequest(0, 0)
	assert.Equal(t, 1, defaults.GetPage())
	assert.Equal(t, 10, defaults.GetPageSize())
	assert.Equal(t, 0, defaults.GetOffset())
}

func TestPagination_Pages(t *testing.T) {
	p := NewDefaultPagination[struct{}](1, 10)
	assert.Equal(t, 0, p.Pages())
	p.Total = 21
	assert.Equal(t, 3, p.Pages())
}

func TestJsonObject_ValueScan(t *testing.T) {
	obj := JsonObject{"color": "red"}
	v, err := obj.Value()
	require.NoError(t, err)

	var fromBytes JsonObject
	require.NoError(t, fromBytes.Scan(v))
	assert.Equal(t, "red", fromBytes["color"])

	var fromString JsonObject
	require.NoError(t, fromString.Scan(`{"size": 2}`))
	assert.Equal(t, float64(2), fromString["size"])

	var empty JsonObject
	require.NoError(t, empty.Scan(nil))
	assert.NotNil(t, empty)

	assert.Error(t, empty.Scan(42))

	var arr JsonArray
	require.NoError(t, arr.Scan(`[{"a": 1}]`))
	assert.Len(t, arr, 1)
}
