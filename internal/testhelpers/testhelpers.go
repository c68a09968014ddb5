package testhelpers

import (
	"context"
	"database/sql"
	"strconv"
	"testing"

	"github.com/johnwards/talentflow/internal/database"
)

// NewTestDB returns an in-memory SQLite database configured the same way as
// production. The database is closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// NewMigratedDB returns a NewTestDB with the full schema applied.
func NewMigratedDB(t *testing.T) *sql.DB {
	t.Helper()

	db := NewTestDB(t)
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// InsertJob inserts a bare open job row and returns its ID.
func InsertJob(t *testing.T, db *sql.DB, title string) string {
	t.Helper()

	res, err := db.Exec(
		`INSERT INTO jobs (title, status, created_at, updated_at)
		 VALUES (?, 'open', '2024-01-01T00:00:00.000Z', '2024-01-01T00:00:00.000Z')`,
		title,
	)
	if err != nil {
		t.Fatalf("insert job: %v", err)
	}
	id, _ := res.LastInsertId()
	return strconv.FormatInt(id, 10)
}
