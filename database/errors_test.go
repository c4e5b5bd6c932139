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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsSqlError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		wantIs bool
		want   SQLError
	}{
		{"nil", nil, false, UnknownErr},
		{"no rows", fmt.Errorf("find: %w", sql.ErrNoRows), true, NoRowsErr},
		{"pq duplicate", &pq.Error{Code: "23505"}, true, DuplicateKeyErr},
		{"wrapped pq not null", fmt.Errorf("insert: %w", &pq.Error{Code: "23502"}), true, NotNullViolationErr},
		{"pq undefined table", &pq.Error{Code: "42P01"}, true, NoTableErr},
		{"pq other", &pq.Error{Code: "40001"}, true, UnknownErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, true, DuplicateKeyErr},
		{"mysql unknown column", &mysql.MySQLError{Number: 1054}, true, NoColumnErr},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: widgets.id (1555)"), true, DuplicateKeyErr},
		{"sqlite no table", errors.New("SQL logic error: no such table: widgets (1)"), true, NoTableErr},
		{"unrelated", errors.New("connection refused"), false, UnknownErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is, kind := IsSqlError(tt.err)
			assert.Equal(t, tt.wantIs, is)
			assert.Equal(t, tt.want, kind)
		})
	}
}
