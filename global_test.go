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

package bunrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/tomoncle/bunrepo"
	"github.com/tomoncle/bunrepo/database"
	"github.com/tomoncle/bunrepo/types"
)

type SystemConfig struct {
	bun.BaseModel `bun:"table:system_config,alias:sc"`

	ID          int64     `bun:"id,type:integer,pk,autoincrement" json:"id"`
	ConfigKey   string    `bun:"config_key,notnull,unique" json:"config_key"`
	ConfigValue string    `bun:"config_value" json:"config_value"`
	Description string    `bun:"description" json:"description"`
	ConfigType  string    `bun:"config_type,notnull,default:'string'" json:"config_type"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

func TestQuery(t *testing.T) {
	database.RegisterEntity[SystemConfig](0)

	conn := database.DefaultConnectionConfig()
	conn.Type = "sqlite"
	conn.DBName = database.MemoryDBName
	require.NoError(t, database.SetupDB(&database.Config{
		ConnectionConfig:  *conn,
		DataMigrateConfig: database.DataMigrateConfig{EnableMigrateOnStartup: true},
	}))
	defer func() { _ = database.CloseDB() }()

	svc := bunrepo.NewDefault[SystemConfig]()
	ctx := context.Background()

	_, err := svc.CreateAll(ctx, []*SystemConfig{
		{ConfigKey: "site.name", ConfigValue: "bunrepo"},
		{ConfigKey: "site.port", ConfigValue: "8080", ConfigType: "int"},
		{ConfigKey: "mail.enabled", ConfigValue: "true", ConfigType: "bool"},
	})
	require.NoError(t, err)

	sysConfigs, err := svc.Find(ctx, types.NewFilter(types.Like("config_key", "site.%")).OrderBy("ConfigKey", types.Asc))
	require.NoError(t, err)
	t.Logf("search with %d rows", len(sysConfigs))
	require.Len(t, sysConfigs, 2)
	for _, c := range sysConfigs {
		t.Logf("data: %v", c)
	}
	assert.Equal(t, "site.name", sysConfigs[0].ConfigKey)
	assert.False(t, sysConfigs[0].CreatedAt.IsZero())

	migrations, err := database.NewMigrationManager(database.GetDB(), nil, database.GetLogger()).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, migrations)
}
