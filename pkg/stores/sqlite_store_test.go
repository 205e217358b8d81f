package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// setupTestStore creates a file-backed SQLite store in a temp dir
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: filepath.Join(t.TempDir(), "facts.db"),
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func newFact(id, key, value string, now time.Time) *Fact {
	return &Fact{
		ID:        id,
		TargetID:  "host-001",
		Namespace: "jboss",
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestHealthCheck_Uninitialized(t *testing.T) {
	store, _ := NewSQLiteStore(Config{Path: ":memory:"})
	if err := store.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error for uninitialized store")
	}
	if err := store.Migrate(context.Background()); err == nil {
		t.Fatal("expected migrate error for uninitialized store")
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"collections", "facts"} {
		var count int
		if err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}

	// Running migrations twice is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

// TestCollectionOperations tests collection create/get/list
func TestCollectionOperations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	older := &Collection{
		ID:            "col-001",
		TargetID:      "host-001",
		Namespace:     "jboss",
		Root:          "/usr/local/jboss/server",
		InstanceCount: 2,
		FactCount:     2,
		CollectedAt:   now.Add(-time.Minute),
	}
	newer := &Collection{
		ID:          "col-002",
		TargetID:    "host-001",
		Namespace:   "jboss",
		Root:        "/usr/local/jboss/server",
		Error:       strPtr("permission denied"),
		CollectedAt: now,
	}
	other := &Collection{
		ID:          "col-003",
		TargetID:    "host-002",
		Namespace:   "jboss",
		Root:        "/usr/local/jboss/server",
		CollectedAt: now,
	}

	for _, c := range []*Collection{older, newer, other} {
		if err := store.CreateCollection(ctx, c); err != nil {
			t.Fatalf("failed to create collection %s: %v", c.ID, err)
		}
	}

	got, err := store.GetCollection(ctx, "col-001")
	if err != nil {
		t.Fatalf("failed to get collection: %v", err)
	}
	if got.InstanceCount != 2 || got.FactCount != 2 {
		t.Errorf("unexpected counts: instances=%d facts=%d", got.InstanceCount, got.FactCount)
	}
	if got.Error != nil {
		t.Errorf("expected nil error, got %q", *got.Error)
	}
	if d := got.CollectedAt.Sub(older.CollectedAt); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("collected_at round trip drifted by %v", d)
	}

	got, err = store.GetCollection(ctx, "col-002")
	if err != nil {
		t.Fatalf("failed to get collection: %v", err)
	}
	if got.Error == nil || *got.Error != "permission denied" {
		t.Errorf("expected error to round trip, got %v", got.Error)
	}

	if _, err := store.GetCollection(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	target := "host-001"
	list, err := store.ListCollections(ctx, &target, 10, 0)
	if err != nil {
		t.Fatalf("failed to list collections: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(list))
	}
	if list[0].ID != "col-002" {
		t.Errorf("expected newest collection first, got %s", list[0].ID)
	}

	all, err := store.ListCollections(ctx, nil, 10, 0)
	if err != nil {
		t.Fatalf("failed to list collections: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 collections, got %d", len(all))
	}
}

// TestFactOperations tests fact upsert, lookup, expiry and deletion
func TestFactOperations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// No expiry
	fact1 := newFact("fact-001", "jboss_instances", "api_server1,api_server2", now)
	if err := store.UpsertFact(ctx, fact1); err != nil {
		t.Fatalf("failed to upsert fact: %v", err)
	}

	// Future expiry
	expiresAt := now.Add(time.Hour)
	fact2 := newFact("fact-002", "api_server_instances", "api_server1,api_server2", now)
	fact2.TTL = 3600
	fact2.ExpiresAt = &expiresAt
	if err := store.UpsertFact(ctx, fact2); err != nil {
		t.Fatalf("failed to upsert fact with TTL: %v", err)
	}

	// Already expired
	expiredAt := now.Add(-time.Hour)
	fact3 := newFact("fact-003", "old_instances", "old1", now.Add(-2*time.Hour))
	fact3.TTL = 3600
	fact3.ExpiresAt = &expiredAt
	if err := store.UpsertFact(ctx, fact3); err != nil {
		t.Fatalf("failed to upsert expired fact: %v", err)
	}

	retrieved, err := store.GetFact(ctx, "host-001", "jboss", "jboss_instances")
	if err != nil {
		t.Fatalf("failed to get fact: %v", err)
	}
	if retrieved.Value != fact1.Value {
		t.Errorf("expected Value %s, got %s", fact1.Value, retrieved.Value)
	}
	if retrieved.ExpiresAt != nil {
		t.Errorf("expected no expiry, got %v", retrieved.ExpiresAt)
	}

	if _, err := store.GetFact(ctx, "host-001", "jboss", "old_instances"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired fact, got %v", err)
	}

	target := "host-001"
	facts, err := store.ListFacts(ctx, FactFilter{TargetID: &target}, 10, 0)
	if err != nil {
		t.Fatalf("failed to list facts: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 non-expired facts, got %d", len(facts))
	}
	if facts[0].Key != "api_server_instances" || facts[1].Key != "jboss_instances" {
		t.Errorf("expected facts ordered by key, got %s, %s", facts[0].Key, facts[1].Key)
	}

	key := "jboss_instances"
	facts, err = store.ListFacts(ctx, FactFilter{Key: &key}, 10, 0)
	if err != nil {
		t.Fatalf("failed to list facts by key: %v", err)
	}
	if len(facts) != 1 {
		t.Errorf("expected 1 fact for key filter, got %d", len(facts))
	}

	// Upsert replaces the value of an existing key
	updated := newFact("fact-004", "jboss_instances", "api_server1", now)
	if err := store.UpsertFact(ctx, updated); err != nil {
		t.Fatalf("failed to update fact: %v", err)
	}
	retrieved, err = store.GetFact(ctx, "host-001", "jboss", "jboss_instances")
	if err != nil {
		t.Fatalf("failed to get updated fact: %v", err)
	}
	if retrieved.Value != "api_server1" {
		t.Errorf("expected updated value, got %s", retrieved.Value)
	}
	if retrieved.ID != fact1.ID {
		t.Errorf("expected upsert to keep original ID %s, got %s", fact1.ID, retrieved.ID)
	}

	deleted, err := store.DeleteExpiredFacts(ctx)
	if err != nil {
		t.Fatalf("failed to delete expired facts: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 expired fact deleted, got %d", deleted)
	}

	if err := store.DeleteFact(ctx, fact1.ID); err != nil {
		t.Fatalf("failed to delete fact: %v", err)
	}
	if err := store.DeleteFact(ctx, fact1.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

// TestRecordCollection tests that recording mirrors the latest published facts
func TestRecordCollection(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := &Collection{
		ID: "col-001", TargetID: "host-001", Namespace: "jboss",
		Root: "/usr/local/jboss/server", InstanceCount: 3, FactCount: 3, CollectedAt: now,
	}
	err := store.RecordCollection(ctx, first, []*Fact{
		newFact("f1", "jboss_instances", "a1,a2,b1", now),
		newFact("f2", "a_instances", "a1,a2", now),
		newFact("f3", "b_instances", "b1", now),
	})
	if err != nil {
		t.Fatalf("failed to record first collection: %v", err)
	}

	second := &Collection{
		ID: "col-002", TargetID: "host-001", Namespace: "jboss",
		Root: "/usr/local/jboss/server", InstanceCount: 1, FactCount: 2, CollectedAt: now.Add(time.Second),
	}
	err = store.RecordCollection(ctx, second, []*Fact{
		newFact("f4", "jboss_instances", "a1", now),
		newFact("f5", "a_instances", "a1", now),
	})
	if err != nil {
		t.Fatalf("failed to record second collection: %v", err)
	}

	target := "host-001"
	facts, err := store.ListFacts(ctx, FactFilter{TargetID: &target}, 10, 0)
	if err != nil {
		t.Fatalf("failed to list facts: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected stale b_instances to be removed, got %d facts", len(facts))
	}
	for _, f := range facts {
		if f.CollectionID == nil || *f.CollectionID != "col-002" {
			t.Errorf("fact %s not attributed to latest collection: %v", f.Key, f.CollectionID)
		}
		if f.Value != "a1" {
			t.Errorf("fact %s has stale value %s", f.Key, f.Value)
		}
	}

	// An empty gathering clears the target's facts.
	empty := &Collection{
		ID: "col-003", TargetID: "host-001", Namespace: "jboss",
		Root: "/usr/local/jboss/server", CollectedAt: now.Add(2 * time.Second),
	}
	if err := store.RecordCollection(ctx, empty, nil); err != nil {
		t.Fatalf("failed to record empty collection: %v", err)
	}
	facts, err = store.ListFacts(ctx, FactFilter{TargetID: &target}, 10, 0)
	if err != nil {
		t.Fatalf("failed to list facts: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("expected no facts after empty collection, got %d", len(facts))
	}
}

// TestRecordCollection_RollsBack tests that a bad fact aborts the whole record
func TestRecordCollection_RollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	c := &Collection{
		ID: "col-001", TargetID: "host-001", Namespace: "jboss",
		Root: "/usr/local/jboss/server", CollectedAt: now,
	}
	foreign := newFact("f2", "x_instances", "x1", now)
	foreign.TargetID = "host-999"

	err := store.RecordCollection(ctx, c, []*Fact{
		newFact("f1", "jboss_instances", "x1", now),
		foreign,
	})
	if err == nil {
		t.Fatal("expected error for fact of another target")
	}

	if _, err := store.GetCollection(ctx, "col-001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected collection to be rolled back, got %v", err)
	}
	if _, err := store.GetFact(ctx, "host-001", "jboss", "jboss_instances"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected fact to be rolled back, got %v", err)
	}
}

// TestTransactions tests manual transaction helpers
func TestTransactions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	c := &Collection{ID: "col-tx", TargetID: "h", Namespace: "jboss", Root: "/", CollectedAt: time.Now()}
	if err := createCollection(ctx, tx, c); err != nil {
		t.Fatalf("failed to create collection in tx: %v", err)
	}
	if err := store.RollbackTx(tx); err != nil {
		t.Fatalf("failed to roll back: %v", err)
	}
	if _, err := store.GetCollection(ctx, "col-tx"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected rolled back collection to be absent, got %v", err)
	}

	tx, err = store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	if err := createCollection(ctx, tx, c); err != nil {
		t.Fatalf("failed to create collection in tx: %v", err)
	}
	if err := store.CommitTx(tx); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	if _, err := store.GetCollection(ctx, "col-tx"); err != nil {
		t.Errorf("expected committed collection, got %v", err)
	}
}
