// Package database provides connection management for MySQL, PostgreSQL and
// SQLite on top of Bun: configuration loading and validation, a lazily
// connecting data source, health checks, query hooks for logging, metrics and
// tracing, driver error classification and table migrations for registered
// models.
package database
