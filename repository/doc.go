// Package repository provides the bun-backed ORM handle for a single entity
// type: upsert, primary-key lookups and mutations, counting, and translation
// of types.Filter and types.Where into bun query builders. Registry memoises
// one handle per entity type over a lazily opened DataSource.
package repository
