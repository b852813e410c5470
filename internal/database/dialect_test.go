package database

import (
	"errors"
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		if result := dialect.DriverName(); result != "sqlite3" {
			t.Errorf("DriverName() = %v, want sqlite3", result)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if !dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		if result := dialect.MigrationsSubdir(); result != "sqlite" {
			t.Errorf("MigrationsSubdir() = %v, want sqlite", result)
		}
	})

	t.Run("BoolValue", func(t *testing.T) {
		if dialect.BoolValue(true) != "1" || dialect.BoolValue(false) != "0" {
			t.Error("SQLite booleans should render as 1 and 0")
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		if result := dialect.DriverName(); result != "postgres" {
			t.Errorf("DriverName() = %v, want postgres", result)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		if result := dialect.MigrationsSubdir(); result != "postgres" {
			t.Errorf("MigrationsSubdir() = %v, want postgres", result)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		if result := dialect.DriverName(); result != "mysql" {
			t.Errorf("DriverName() = %v, want mysql", result)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if !dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		if result := dialect.MigrationsSubdir(); result != "mysql" {
			t.Errorf("MigrationsSubdir() = %v, want mysql", result)
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM children WHERE id = ?",
			expected: "SELECT * FROM children WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM children WHERE id = ?",
			expected: "SELECT * FROM children WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO ledger_entries (child_id, kind, points, reference) VALUES (?, ?, ?, ?)",
			expected: "INSERT INTO ledger_entries (child_id, kind, points, reference) VALUES ($1, $2, $3, $4)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE children SET point_balance = ? WHERE id = ?",
			expected: "UPDATE children SET point_balance = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestIsUniqueViolationIgnoresOtherErrors(t *testing.T) {
	dialects := []Dialect{NewSQLiteDialect(), NewPostgresDialect(), NewMySQLDialect()}
	for _, d := range dialects {
		if d.IsUniqueViolation(errors.New("connection reset")) {
			t.Errorf("%s: plain error misclassified as unique violation", d.DriverName())
		}
		if d.IsUniqueViolation(nil) {
			t.Errorf("%s: nil misclassified as unique violation", d.DriverName())
		}
	}
}
