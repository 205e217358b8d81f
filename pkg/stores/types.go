package stores

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist or has expired.
var ErrNotFound = errors.New("not found")

// Collection records one gathering of facts for a target.
type Collection struct {
	ID            string    `json:"id"`
	TargetID      string    `json:"target_id"` // host identifier
	Namespace     string    `json:"namespace"` // collector name, e.g. "jboss"
	Root          string    `json:"root"`      // scanned directory
	InstanceCount int       `json:"instance_count"`
	FactCount     int       `json:"fact_count"`
	Error         *string   `json:"error,omitempty"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Fact is a published fact as last recorded for a target.
type Fact struct {
	ID           string     `json:"id"`
	CollectionID *string    `json:"collection_id,omitempty"`
	TargetID     string     `json:"target_id"`
	Namespace    string     `json:"namespace"`
	Key          string     `json:"key"` // fact name, e.g. "jboss_instances"
	Value        string     `json:"value"`
	TTL          int        `json:"ttl"` // seconds, 0 = no expiry
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FactFilter narrows ListFacts. Nil fields match everything.
type FactFilter struct {
	TargetID  *string
	Namespace *string
	Key       *string
}

// Store defines the interface for the fact history.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Collection operations
	CreateCollection(ctx context.Context, c *Collection) error
	GetCollection(ctx context.Context, id string) (*Collection, error)
	ListCollections(ctx context.Context, targetID *string, limit, offset int) ([]*Collection, error)
	RecordCollection(ctx context.Context, c *Collection, facts []*Fact) error

	// Fact operations
	UpsertFact(ctx context.Context, fact *Fact) error
	GetFact(ctx context.Context, targetID, namespace, key string) (*Fact, error)
	ListFacts(ctx context.Context, filter FactFilter, limit, offset int) ([]*Fact, error)
	DeleteExpiredFacts(ctx context.Context) (int64, error)
	DeleteFact(ctx context.Context, id string) error

	// Utility
	HealthCheck(ctx context.Context) error
}
