package stores_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/loadout-sh/loadout/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	// Create store configuration
	store, err := stores.NewSQLiteStore(stores.Config{
		Path:            ":memory:", // Use in-memory database for example
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Fatal(err)
	}

	// Initialize the database connection
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	defer store.Close()

	// Store is now ready to use
	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_CreateAssembly demonstrates recording a plan assembly.
func ExampleSQLiteStore_CreateAssembly() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Record an assembly
	a := &stores.Assembly{
		ID:            "asm-001",
		ProfileName:   "dev",
		ProfileOrigin: "local profile.active",
		Status:        stores.AssemblyStatusOK,
		Plan:          `{"session":{"orchestrator":"loop-basic","context":"context-simple"}}`,
		ModuleCount:   4,
		Provider:      "provider-anthropic",
		CreatedAt:     time.Now(),
	}

	if err := store.CreateAssembly(ctx, a); err != nil {
		log.Fatal(err)
	}

	// Retrieve the assembly
	retrieved, err := store.GetAssembly(ctx, "asm-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Assembly: %s, Profile: %s, Status: %s\n", retrieved.ID, retrieved.ProfileName, retrieved.Status)
	// Output: Assembly: asm-001, Profile: dev, Status: ok
}

// ExampleSQLiteStore_AppendActivation demonstrates logging profile activations.
func ExampleSQLiteStore_AppendActivation() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Log an activation
	entry := &stores.Activation{
		Action:    "profile.set",
		Scope:     "local",
		Profile:   "dev",
		Timestamp: time.Now(),
	}

	if err := store.AppendActivation(ctx, entry); err != nil {
		log.Fatal(err)
	}

	// Retrieve activations
	scope := "local"
	entries, err := store.ListActivations(ctx, &scope, nil, 10, 0)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Activation count: %d, Profile: %s\n", len(entries), entries[0].Profile)
	// Output: Activation count: 1, Profile: dev
}

// ExampleSQLiteStore_UpsertResolution demonstrates caching resolutions with TTL.
func ExampleSQLiteStore_UpsertResolution() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Cache a resolution without expiry
	r := &stores.Resolution{
		ID:        "res-001",
		ModuleID:  "tool-filesystem",
		Layer:     "scope-global",
		Source:    "git+https://example.com/modules.git#tools/filesystem",
		TTL:       0, // Never expires
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := store.UpsertResolution(ctx, r); err != nil {
		log.Fatal(err)
	}

	// Retrieve the cached resolution
	retrieved, err := store.GetResolution(ctx, "tool-filesystem")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Resolution: %s via %s\n", retrieved.ModuleID, retrieved.Layer)
	// Output: Resolution: tool-filesystem via scope-global
}

// ExampleSQLiteStore_BeginTx demonstrates using transactions.
func ExampleSQLiteStore_BeginTx() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Begin transaction
	tx, err := store.BeginTx(ctx)
	if err != nil {
		log.Fatal(err)
	}

	// Perform operations within transaction
	query := `
		INSERT INTO assemblies (id, profile_name, status, plan, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query, "asm-tx-001", "dev", "ok", "{}", time.Now())

	if err != nil {
		_ = store.RollbackTx(tx)
		log.Fatal(err)
	}

	// Commit transaction
	if err := store.CommitTx(tx); err != nil {
		log.Fatal(err)
	}

	// Verify the assembly was created
	a, err := store.GetAssembly(ctx, "asm-tx-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Transaction committed: Assembly %s recorded\n", a.ID)
	// Output: Transaction committed: Assembly asm-tx-001 recorded
}
