// Package stores provides persistence layer implementations for Loadout.
// It includes SQLite-based storage with WAL mode, connection pooling,
// and CRUD operations for assembled plan history, profile activation
// records, and a module resolution cache.
package stores
