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
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/uptrace/bun"
)

// ErrNotInitialized is returned by Open before InitDB or SetupDB.
var ErrNotInitialized = errors.New("database not initialized")

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory
	globalConfig  *Config
	openMu        sync.Mutex
)

// GetDB returns the global Bun database instance, or nil before it connects.
func GetDB() *bun.DB {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetDB()
	}
	return nil
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() AbstractDatabaseManager {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetManager()
	}
	return nil
}

// GetDatabaseFactory returns the global database factory.
func GetDatabaseFactory() *BaseDatabaseFactory {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalFactory
}

// GetConfig returns the configuration passed to SetupDB or InitDB.
func GetConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}

// SetupDB installs the global factory for cfg without connecting. The first
// Open connects and, when enabled, runs migrations.
func SetupDB(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("database configuration cannot be empty")
	}
	factory := NewDatabaseFactory()
	if _, err := factory.CreateFromConfig(&cfg.ConnectionConfig); err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	globalMu.Lock()
	old := globalFactory
	globalFactory, globalConfig = factory, cfg
	globalMu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

// Open is the global data source: it returns the connected database of the
// global factory, connecting and migrating on first use.
func Open(ctx context.Context) (*bun.DB, error) {
	factory := GetDatabaseFactory()
	if factory == nil {
		return nil, ErrNotInitialized
	}
	if db := factory.GetDB(); db != nil {
		return db, nil
	}

	openMu.Lock()
	defer openMu.Unlock()
	if db := factory.GetDB(); db != nil {
		return db, nil
	}
	cfg := GetConfig()
	if err := factory.InitializeDatabase(ctx, cfg.DataMigrateConfig.EnableMigrateOnStartup); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return factory.GetDB(), nil
}

// InitDB sets up the global database and connects immediately.
func InitDB(cfg *Config) (*bun.DB, error) {
	if err := SetupDB(cfg); err != nil {
		return nil, err
	}
	return Open(context.Background())
}

// CloseDB closes the global database connection.
func CloseDB() error {
	if f := GetDatabaseFactory(); f != nil {
		return f.Close()
	}
	return nil
}

// GetHealthStatus returns the current database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetHealthStatus(ctx)
	}
	return &HealthStatus{
		Healthy:   false,
		Connected: false,
		LastError: "Database not initialized",
	}
}

// GetDatabaseStats returns global database statistics.
func GetDatabaseStats() *DBStats {
	if f := GetDatabaseFactory(); f != nil {
		return f.GetStats()
	}
	return &DBStats{}
}

// RunMigrations executes database migrations on the global database.
func RunMigrations(ctx context.Context) error {
	manager := GetDatabaseManager()
	if manager == nil {
		return ErrNotInitialized
	}
	return manager.RunMigrations(ctx)
}
