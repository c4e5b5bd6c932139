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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/tomoncle/bunrepo/utils"
)

const envPrefix = "DB_"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterStructValidation(validateConnection, ConnectionConfig{})
	})
	return validate
}

// validateConnection requires a host for every server-based database.
func validateConnection(sl validator.StructLevel) {
	c := sl.Current().Interface().(ConnectionConfig)
	if !isSQLite(c.Type) && c.Host == "" {
		sl.ReportError(c.Host, "Host", "host", "required", "")
	}
}

func isSQLite(typ string) bool { return typ == "sqlite" || typ == "sqlite3" }

// LoadConfig builds a Config from defaults, the YAML file at path (optional),
// the given .env files (".env" when none is named, missing files ignored) and
// DB_* environment variables, then validates it.
func LoadConfig(path string, envFiles ...string) (*Config, error) {
	cfg := &Config{ConnectionConfig: *DefaultConnectionConfig()}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	if err := ApplyEnv(&cfg.ConnectionConfig); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides connection settings from DB_* environment variables.
// Durations are whole seconds or Go duration strings.
func ApplyEnv(cfg *ConnectionConfig) error {
	k := koanf.New(".")
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return fmt.Errorf("failed to read %s environment: %w", envPrefix, err)
	}

	strs := map[string]*string{
		"type":     &cfg.Type,
		"host":     &cfg.Host,
		"username": &cfg.Username,
		"password": &cfg.Password,
		"name":     &cfg.DBName,
		"sslmode":  &cfg.SSLMode,
		"charset":  &cfg.Charset,
	}
	for key, dst := range strs {
		if v := k.String(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"port":                &cfg.Port,
		"max_idle_conns":      &cfg.MaxIdleConns,
		"max_open_conns":      &cfg.MaxOpenConns,
		"max_reconnect_tries": &cfg.MaxReconnectTries,
	}
	for key, dst := range ints {
		if k.Exists(key) {
			*dst = k.Int(key)
		}
	}

	bools := map[string]*bool{
		"enable_reconnect": &cfg.EnableReconnect,
		"enable_query_log": &cfg.EnableQueryLog,
		"enable_metrics":   &cfg.EnableMetrics,
		"enable_tracing":   &cfg.EnableTracing,
	}
	for key, dst := range bools {
		if k.Exists(key) {
			*dst = k.Bool(key)
		}
	}

	durations := map[string]*time.Duration{
		"conn_max_lifetime":     &cfg.ConnMaxLifetime,
		"conn_max_idle_time":    &cfg.ConnMaxIdleTime,
		"connect_timeout":       &cfg.ConnectTimeout,
		"reconnect_interval":    &cfg.ReconnectInterval,
		"health_check_interval": &cfg.HealthCheckInterval,
		"slow_query_time":       &cfg.SlowQueryTime,
	}
	for key, dst := range durations {
		if d, ok := utils.ParseSeconds(k.String(key)); ok {
			*dst = d
		}
	}
	return nil
}

// ValidateConfig checks the connection settings against their validate tags.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("database configuration cannot be empty")
	}
	if err := getValidator().Struct(cfg); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}
	return nil
}
