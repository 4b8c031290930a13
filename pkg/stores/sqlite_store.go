package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// Open database with SQLite-specific connection parameters
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection and set PRAGMAs
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// CreateAssembly records one plan assembly
func (s *SQLiteStore) CreateAssembly(ctx context.Context, a *Assembly) error {
	query := `
		INSERT INTO assemblies (id, profile_name, profile_origin, status, plan, module_count, provider, model, work_dir, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.ProfileName,
		a.ProfileOrigin,
		a.Status,
		a.Plan,
		a.ModuleCount,
		a.Provider,
		a.Model,
		a.WorkDir,
		a.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create assembly: %w", err)
	}

	return nil
}

// GetAssembly retrieves an assembly by ID
func (s *SQLiteStore) GetAssembly(ctx context.Context, id string) (*Assembly, error) {
	query := `
		SELECT id, profile_name, profile_origin, status, plan, module_count, provider, model, work_dir, created_at
		FROM assemblies
		WHERE id = ?
	`

	a := &Assembly{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.ProfileName,
		&a.ProfileOrigin,
		&a.Status,
		&a.Plan,
		&a.ModuleCount,
		&a.Provider,
		&a.Model,
		&a.WorkDir,
		&a.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assembly not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assembly: %w", err)
	}

	return a, nil
}

// LatestAssembly retrieves the most recently recorded assembly
func (s *SQLiteStore) LatestAssembly(ctx context.Context) (*Assembly, error) {
	query := `
		SELECT id, profile_name, profile_origin, status, plan, module_count, provider, model, work_dir, created_at
		FROM assemblies
		ORDER BY created_at DESC
		LIMIT 1
	`

	a := &Assembly{}
	err := s.db.QueryRowContext(ctx, query).Scan(
		&a.ID,
		&a.ProfileName,
		&a.ProfileOrigin,
		&a.Status,
		&a.Plan,
		&a.ModuleCount,
		&a.Provider,
		&a.Model,
		&a.WorkDir,
		&a.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no assemblies recorded")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest assembly: %w", err)
	}

	return a, nil
}

// ListAssemblies lists assemblies with pagination, newest first
func (s *SQLiteStore) ListAssemblies(ctx context.Context, limit, offset int) ([]*Assembly, error) {
	query := `
		SELECT id, profile_name, profile_origin, status, plan, module_count, provider, model, work_dir, created_at
		FROM assemblies
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list assemblies: %w", err)
	}
	defer rows.Close()

	assemblies := []*Assembly{}
	for rows.Next() {
		a := &Assembly{}
		err := rows.Scan(
			&a.ID,
			&a.ProfileName,
			&a.ProfileOrigin,
			&a.Status,
			&a.Plan,
			&a.ModuleCount,
			&a.Provider,
			&a.Model,
			&a.WorkDir,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assembly: %w", err)
		}
		assemblies = append(assemblies, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assemblies: %w", err)
	}

	return assemblies, nil
}

// DeleteAssembly deletes an assembly by ID
func (s *SQLiteStore) DeleteAssembly(ctx context.Context, id string) error {
	query := `DELETE FROM assemblies WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete assembly: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("assembly not found: %s", id)
	}

	return nil
}

// PruneAssemblies deletes all but the newest keep assemblies and returns the
// number of rows removed
func (s *SQLiteStore) PruneAssemblies(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must be non-negative, got: %d", keep)
	}

	query := `
		DELETE FROM assemblies
		WHERE id NOT IN (
			SELECT id FROM assemblies
			ORDER BY created_at DESC
			LIMIT ?
		)
	`

	result, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune assemblies: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// AppendActivation appends a profile activation record
func (s *SQLiteStore) AppendActivation(ctx context.Context, entry *Activation) error {
	query := `
		INSERT INTO activations (action, scope, profile, timestamp)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		entry.Action,
		entry.Scope,
		entry.Profile,
		entry.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to append activation: %w", err)
	}

	// Get the auto-generated ID
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get activation ID: %w", err)
	}

	entry.ID = id
	return nil
}

// ListActivations lists activation records with optional filters and pagination
func (s *SQLiteStore) ListActivations(ctx context.Context, scope *string, profile *string, limit, offset int) ([]*Activation, error) {
	query := `
		SELECT id, action, scope, profile, timestamp
		FROM activations
		WHERE (? IS NULL OR scope = ?)
		  AND (? IS NULL OR profile = ?)
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, scope, scope, profile, profile, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list activations: %w", err)
	}
	defer rows.Close()

	entries := []*Activation{}
	for rows.Next() {
		entry := &Activation{}
		err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&entry.Scope,
			&entry.Profile,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activation: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activations: %w", err)
	}

	return entries, nil
}

// UpsertResolution inserts or updates a cached module resolution
func (s *SQLiteStore) UpsertResolution(ctx context.Context, r *Resolution) error {
	query := `
		INSERT INTO resolutions (
			id, module_id, layer, source, ttl, expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(module_id) DO UPDATE SET
			layer = excluded.layer,
			source = excluded.source,
			ttl = excluded.ttl,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	// Format expires_at to SQLite-compatible datetime string
	var expiresAtStr *string
	if r.ExpiresAt != nil {
		formatted := r.ExpiresAt.UTC().Format("2006-01-02 15:04:05")
		expiresAtStr = &formatted
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.ModuleID,
		r.Layer,
		r.Source,
		r.TTL,
		expiresAtStr,
		r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		r.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert resolution: %w", err)
	}

	return nil
}

// GetResolution retrieves a cached resolution by module id, skipping expired
// entries
func (s *SQLiteStore) GetResolution(ctx context.Context, moduleID string) (*Resolution, error) {
	query := `
		SELECT id, module_id, layer, source, ttl, expires_at, created_at, updated_at
		FROM resolutions
		WHERE module_id = ?
		  AND (expires_at IS NULL OR datetime(expires_at) > datetime('now'))
	`

	r := &Resolution{}
	err := s.db.QueryRowContext(ctx, query, moduleID).Scan(
		&r.ID,
		&r.ModuleID,
		&r.Layer,
		&r.Source,
		&r.TTL,
		&r.ExpiresAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("resolution not found or expired: %s", moduleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resolution: %w", err)
	}

	return r, nil
}

// ListResolutions lists cached resolutions with optional layer filter and
// pagination
func (s *SQLiteStore) ListResolutions(ctx context.Context, layer *string, limit, offset int) ([]*Resolution, error) {
	query := `
		SELECT id, module_id, layer, source, ttl, expires_at, created_at, updated_at
		FROM resolutions
		WHERE (? IS NULL OR layer = ?)
		  AND (expires_at IS NULL OR datetime(expires_at) > datetime('now'))
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, layer, layer, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	defer rows.Close()

	resolutions := []*Resolution{}
	for rows.Next() {
		r := &Resolution{}
		err := rows.Scan(
			&r.ID,
			&r.ModuleID,
			&r.Layer,
			&r.Source,
			&r.TTL,
			&r.ExpiresAt,
			&r.CreatedAt,
			&r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		resolutions = append(resolutions, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resolutions: %w", err)
	}

	return resolutions, nil
}

// DeleteExpiredResolutions deletes all expired cached resolutions
func (s *SQLiteStore) DeleteExpiredResolutions(ctx context.Context) (int64, error) {
	query := `DELETE FROM resolutions WHERE expires_at IS NOT NULL AND datetime(expires_at) <= datetime('now')`

	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired resolutions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// DeleteResolution deletes a cached resolution by ID
func (s *SQLiteStore) DeleteResolution(ctx context.Context, id string) error {
	query := `DELETE FROM resolutions WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete resolution: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("resolution not found: %s", id)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
