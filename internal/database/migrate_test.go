package database

import (
	"context"
	"testing"
)

func TestCollectMigrations(t *testing.T) {
	for _, dialect := range []string{dialectPostgres, dialectSQLite} {
		t.Run(dialect, func(t *testing.T) {
			migrations, err := collectMigrations(migrationsFS, "migrations/"+dialect)
			if err != nil {
				t.Fatalf("collectMigrations() error = %v", err)
			}
			if len(migrations) < 2 {
				t.Fatalf("expected at least 2 migrations, got %d", len(migrations))
			}
			for i := 1; i < len(migrations); i++ {
				if migrations[i].version <= migrations[i-1].version {
					t.Errorf("migrations not ordered: %d after %d", migrations[i].version, migrations[i-1].version)
				}
			}
		})
	}
}

func TestMigrateSQLite(t *testing.T) {
	ctx := context.Background()

	db, err := OpenSQLite(ctx, MemoryPath)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer db.Close()

	if err := MigrateSQLite(ctx, db, nil); err != nil {
		t.Fatalf("MigrateSQLite() error = %v", err)
	}
	// Second run is a no-op
	if err := MigrateSQLite(ctx, db, nil); err != nil {
		t.Fatalf("MigrateSQLite() second run error = %v", err)
	}

	for _, table := range []string{"conversations", "messages", "notifications", "users"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	var applied int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("counting migrations: %v", err)
	}
	if applied != 3 {
		t.Errorf("applied migrations = %d, want 3", applied)
	}
}

func TestPairIndexRejectsReversedDuplicate(t *testing.T) {
	ctx := context.Background()

	db, err := OpenSQLite(ctx, MemoryPath)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer db.Close()

	if err := MigrateSQLite(ctx, db, nil); err != nil {
		t.Fatalf("MigrateSQLite() error = %v", err)
	}

	if _, err := db.ExecContext(ctx,
		"INSERT INTO conversations (user1_id, user2_id, created_at) VALUES (1, 2, datetime('now'))",
	); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO conversations (user1_id, user2_id, created_at) VALUES (2, 1, datetime('now'))",
	); err == nil {
		t.Error("expected reversed pair to violate the unique index")
	}
}
