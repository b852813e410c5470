package database

import (
	"context"
	"os"
	"testing"
)

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := "test_integration.db"
	defer os.Remove(dbPath)

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	// Test that tables were created by migrations
	tables := []string{
		"parents", "children", "rewards", "screen_time_sessions",
		"ledger_entries", "redemptions", "analytics_events",
		"aggregated_metrics", "settings",
	}

	for _, table := range tables {
		query := "SELECT name FROM sqlite_master WHERE type='table' AND name=?"
		var name string
		err := db.QueryRowContext(ctx, query, table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := "test_transactions.db"
	defer os.Remove(dbPath)

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()

	// Test successful transaction
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO parents (email, password_hash, name) VALUES (?, ?, ?)",
		"test@example.com", "hashedpass", "Test Parent")
	if err != nil {
		tx.Rollback()
		t.Fatalf("Failed to insert in transaction: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit transaction: %v", err)
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM parents WHERE email = ?", "test@example.com").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query after commit: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 parent, got %d", count)
	}

	// Test rollback
	tx2, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to begin second transaction: %v", err)
	}

	_, err = tx2.ExecContext(ctx, "INSERT INTO parents (email, password_hash, name) VALUES (?, ?, ?)",
		"test2@example.com", "hashedpass", "Second Parent")
	if err != nil {
		tx2.Rollback()
		t.Fatalf("Failed to insert in second transaction: %v", err)
	}

	if err := tx2.Rollback(); err != nil {
		t.Fatalf("Failed to rollback transaction: %v", err)
	}

	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM parents WHERE email = ?", "test2@example.com").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 parents after rollback, got %d", count)
	}
}

// TestUniqueConstraints verifies the idempotency guards the ledger relies on
func TestUniqueConstraints(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := "test_unique.db"
	defer os.Remove(dbPath)

	db, err := Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	parentID, err := db.ExecReturningID("INSERT INTO parents (email, password_hash, name) VALUES (?, ?, ?)",
		"unique@example.com", "hashedpass", "Unique Parent")
	if err != nil {
		t.Fatalf("Failed to insert parent: %v", err)
	}
	childID, err := db.ExecReturningID("INSERT INTO children (parent_id, name) VALUES (?, ?)",
		parentID, "Alex")
	if err != nil {
		t.Fatalf("Failed to insert child: %v", err)
	}

	insert := "INSERT INTO ledger_entries (child_id, kind, points, reference) VALUES (?, ?, ?, ?)"
	if _, err := db.Exec(insert, childID, "earn", 10, "session-1"); err != nil {
		t.Fatalf("Failed to insert ledger entry: %v", err)
	}

	_, err = db.Exec(insert, childID, "earn", 10, "session-1")
	if err == nil {
		t.Fatal("Expected duplicate (kind, reference) insert to fail")
	}
	if !db.Dialect.IsUniqueViolation(err) {
		t.Errorf("Expected unique violation, got: %v", err)
	}

	// same reference under a different kind is a distinct entry
	if _, err := db.Exec(insert, childID, "adjust", 10, "session-1"); err != nil {
		t.Errorf("Different kind with same reference should insert: %v", err)
	}
}
