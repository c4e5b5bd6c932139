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
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tomoncle/bunrepo/types"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID        int64            `bun:"id,pk,autoincrement"`
	Name      string           `bun:"name,notnull"`
	Status    string           `bun:"status"`
	Quantity  int              `bun:"quantity"`
	Attrs     types.JsonObject `bun:"attrs,type:text"`
	CreatedAt time.Time        `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type keyless struct {
	Name string `bun:"name"`
}

// newTestDB opens an isolated in-memory sqlite database with the widgets table.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)
	sqldb.SetConnMaxIdleTime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*widget)(nil)).Exec(context.Background())
	require.NoError(t, err)
	return db
}

func newWidgetRepo(t *testing.T) (Repository[widget], *bun.DB) {
	t.Helper()
	db := newTestDB(t)
	repo, err := NewRepository[widget](db)
	require.NoError(t, err)
	return repo, db
}

func seedWidgets(t *testing.T, repo Repository[widget], widgets ...*widget) {
	t.Helper()
	require.NoError(t, repo.Save(context.Background(), widgets...))
}
