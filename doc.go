// Package bunrepo provides a generic entity repository on top of the bun ORM.
//
// A Repository[T] exposes create, read, update, delete, count and filtered
// queries for a bun model T with a single primary key:
//
//	repo := bunrepo.NewDefault[User]()
//	users, err := repo.Find(ctx, types.NewFilter(types.Eq("status", "active")).
//		OrderBy("name", types.Asc).
//		WithLimit(20))
//
// Filters and where expressions come from package types. The ORM handle is
// resolved lazily from a repository.Registry, so a repository can be built
// before the database is connected.
package bunrepo
