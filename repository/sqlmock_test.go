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
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/tomoncle/bunrepo/types"
)

func newMockRepo(t *testing.T) (Repository[widget], sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo, err := NewRepository[widget](db)
	require.NoError(t, err)
	return repo, mock
}

func TestRepository_SaveUsesOnConflictForPostgres(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name" RETURNING *`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	w := &widget{Name: "bolt"}
	require.NoError(t, repo.Save(context.Background(), w))
	assert.EqualValues(t, 42, w.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PropagatesDriverErrors(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "w"."id"`)).WillReturnError(boom)
	_, err := repo.FindOneByID(ctx, 1)
	assert.ErrorIs(t, err, boom)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "widgets"`)).WillReturnError(boom)
	_, err = repo.DeleteByID(ctx, 1)
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*)`)).WillReturnError(boom)
	_, err = repo.Count(ctx, types.Eq("status", "active"))
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ReportsAffectedRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "widgets" AS "w" SET "status" = 'retired' WHERE ("id" = 7)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	n, err := repo.UpdateByID(ctx, 7, &widget{Status: "retired"})
	require.NoError(t, err)
	assert.Zero(t, n)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "widgets" AS "w" WHERE ("status" IN ('a', 'b'))`)).
		WillReturnResult(sqlmock.NewResult(0, 5))
	n, err = repo.DeleteAll(ctx, types.In("status", []string{"a", "b"}))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}
