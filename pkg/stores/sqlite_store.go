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

// timeFormat is understood both by SQLite's datetime() and by the driver
// when scanning DATETIME columns back into time.Time.
const timeFormat = "2006-01-02 15:04:05.000"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

var _ Store = (*SQLiteStore)(nil)

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	// Every connection to :memory: is a separate database.
	if cfg.Path == ":memory:" {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{cfg: cfg}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

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

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	// SQLite transactions are serializable; _txlock=immediate takes the
	// write lock up front.
	return s.db.BeginTx(ctx, nil)
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// CreateCollection creates a new collection record
func (s *SQLiteStore) CreateCollection(ctx context.Context, c *Collection) error {
	return createCollection(ctx, s.db, c)
}

func createCollection(ctx context.Context, ex execer, c *Collection) error {
	query := `
		INSERT INTO collections (id, target_id, namespace, root, instance_count, fact_count, error, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := ex.ExecContext(ctx, query,
		c.ID,
		c.TargetID,
		c.Namespace,
		c.Root,
		c.InstanceCount,
		c.FactCount,
		c.Error,
		c.CollectedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// GetCollection retrieves a collection by ID
func (s *SQLiteStore) GetCollection(ctx context.Context, id string) (*Collection, error) {
	query := `
		SELECT id, target_id, namespace, root, instance_count, fact_count, error, collected_at
		FROM collections
		WHERE id = ?
	`

	c := &Collection{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.TargetID,
		&c.Namespace,
		&c.Root,
		&c.InstanceCount,
		&c.FactCount,
		&c.Error,
		&c.CollectedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	return c, nil
}

// ListCollections lists collections, newest first
func (s *SQLiteStore) ListCollections(ctx context.Context, targetID *string, limit, offset int) ([]*Collection, error) {
	query := `
		SELECT id, target_id, namespace, root, instance_count, fact_count, error, collected_at
		FROM collections
		WHERE (? IS NULL OR target_id = ?)
		ORDER BY collected_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, targetID, targetID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	collections := []*Collection{}
	for rows.Next() {
		c := &Collection{}
		err := rows.Scan(
			&c.ID,
			&c.TargetID,
			&c.Namespace,
			&c.Root,
			&c.InstanceCount,
			&c.FactCount,
			&c.Error,
			&c.CollectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}

	return collections, nil
}

// RecordCollection stores a collection and the facts it published in one
// transaction. Facts of the same target and namespace that this collection
// did not publish are deleted.
func (s *SQLiteStore) RecordCollection(ctx context.Context, c *Collection, facts []*Fact) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := recordCollection(ctx, tx, c, facts); err != nil {
		_ = s.RollbackTx(tx)
		return err
	}

	if err := s.CommitTx(tx); err != nil {
		return fmt.Errorf("failed to commit collection: %w", err)
	}
	return nil
}

func recordCollection(ctx context.Context, tx *sql.Tx, c *Collection, facts []*Fact) error {
	if err := createCollection(ctx, tx, c); err != nil {
		return err
	}

	for _, fact := range facts {
		if fact.TargetID != c.TargetID || fact.Namespace != c.Namespace {
			return fmt.Errorf("fact %s belongs to %s/%s, not collection target %s/%s",
				fact.Key, fact.TargetID, fact.Namespace, c.TargetID, c.Namespace)
		}
		id := c.ID
		fact.CollectionID = &id
		if err := upsertFact(ctx, tx, fact); err != nil {
			return err
		}
	}

	query := `
		DELETE FROM facts
		WHERE target_id = ? AND namespace = ?
		  AND (collection_id IS NULL OR collection_id != ?)
	`
	if _, err := tx.ExecContext(ctx, query, c.TargetID, c.Namespace, c.ID); err != nil {
		return fmt.Errorf("failed to remove stale facts: %w", err)
	}

	return nil
}

// UpsertFact inserts or updates a fact
func (s *SQLiteStore) UpsertFact(ctx context.Context, fact *Fact) error {
	return upsertFact(ctx, s.db, fact)
}

func upsertFact(ctx context.Context, ex execer, fact *Fact) error {
	query := `
		INSERT INTO facts (
			id, collection_id, target_id, namespace, key, value, ttl, expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(target_id, namespace, key) DO UPDATE SET
			collection_id = excluded.collection_id,
			value = excluded.value,
			ttl = excluded.ttl,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	var expiresAt *string
	if fact.ExpiresAt != nil {
		formatted := fact.ExpiresAt.UTC().Format(timeFormat)
		expiresAt = &formatted
	}

	_, err := ex.ExecContext(ctx, query,
		fact.ID,
		fact.CollectionID,
		fact.TargetID,
		fact.Namespace,
		fact.Key,
		fact.Value,
		fact.TTL,
		expiresAt,
		fact.CreatedAt.UTC().Format(timeFormat),
		fact.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fact: %w", err)
	}

	return nil
}

// GetFact retrieves an unexpired fact by target, namespace, and key
func (s *SQLiteStore) GetFact(ctx context.Context, targetID, namespace, key string) (*Fact, error) {
	query := `
		SELECT id, collection_id, target_id, namespace, key, value, ttl, expires_at, created_at, updated_at
		FROM facts
		WHERE target_id = ? AND namespace = ? AND key = ?
		  AND (expires_at IS NULL OR datetime(expires_at) > datetime('now'))
	`

	fact := &Fact{}
	err := s.db.QueryRowContext(ctx, query, targetID, namespace, key).Scan(
		&fact.ID,
		&fact.CollectionID,
		&fact.TargetID,
		&fact.Namespace,
		&fact.Key,
		&fact.Value,
		&fact.TTL,
		&fact.ExpiresAt,
		&fact.CreatedAt,
		&fact.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fact %s/%s/%s: %w", targetID, namespace, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fact: %w", err)
	}

	return fact, nil
}

// ListFacts lists unexpired facts ordered by target, namespace and key
func (s *SQLiteStore) ListFacts(ctx context.Context, filter FactFilter, limit, offset int) ([]*Fact, error) {
	query := `
		SELECT id, collection_id, target_id, namespace, key, value, ttl, expires_at, created_at, updated_at
		FROM facts
		WHERE (? IS NULL OR target_id = ?)
		  AND (? IS NULL OR namespace = ?)
		  AND (? IS NULL OR key = ?)
		  AND (expires_at IS NULL OR datetime(expires_at) > datetime('now'))
		ORDER BY target_id, namespace, key
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query,
		filter.TargetID, filter.TargetID,
		filter.Namespace, filter.Namespace,
		filter.Key, filter.Key,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list facts: %w", err)
	}
	defer rows.Close()

	facts := []*Fact{}
	for rows.Next() {
		fact := &Fact{}
		err := rows.Scan(
			&fact.ID,
			&fact.CollectionID,
			&fact.TargetID,
			&fact.Namespace,
			&fact.Key,
			&fact.Value,
			&fact.TTL,
			&fact.ExpiresAt,
			&fact.CreatedAt,
			&fact.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		facts = append(facts, fact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating facts: %w", err)
	}

	return facts, nil
}

// DeleteExpiredFacts deletes all expired facts
func (s *SQLiteStore) DeleteExpiredFacts(ctx context.Context) (int64, error) {
	query := `DELETE FROM facts WHERE expires_at IS NOT NULL AND datetime(expires_at) <= datetime('now')`

	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired facts: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// DeleteFact deletes a fact by ID
func (s *SQLiteStore) DeleteFact(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete fact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("fact %s: %w", id, ErrNotFound)
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
