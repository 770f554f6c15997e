// Package dbtest opens throwaway SQLite databases carrying the production schema.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/digkill/magicpic/internal/database"
	"github.com/digkill/magicpic/internal/models"
)

// New returns a migrated database that is closed when the test ends.
func New(t testing.TB) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "magicpic.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := database.Open(database.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(context.Background(), db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// InsertUser creates a user with the given balance and returns its id.
func InsertUser(t testing.TB, db *sql.DB, email string, credits int) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO users (email, hashed_password, name, credits, referral_code) VALUES (?, 'x', ?, ?, ?)`,
		email, email, credits, email)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// InsertStyle creates a category (if needed) and an active style costing credits.
func InsertStyle(t testing.TB, db *sql.DB, slug string, credits int) *models.Style {
	t.Helper()
	if _, err := db.Exec(`INSERT OR IGNORE INTO categories (name, slug) VALUES ('General', 'general')`); err != nil {
		t.Fatalf("insert category: %v", err)
	}
	var categoryID int64
	if err := db.QueryRow(`SELECT id FROM categories WHERE slug = 'general'`).Scan(&categoryID); err != nil {
		t.Fatalf("select category: %v", err)
	}
	res, err := db.Exec(`INSERT INTO styles (category_id, name, slug, prompt_template, tags, credits_required) VALUES (?, ?, ?, ?, '[]', ?)`,
		categoryID, slug, slug, "Turn the photo into "+slug+".", credits)
	if err != nil {
		t.Fatalf("insert style: %v", err)
	}
	id, _ := res.LastInsertId()
	return &models.Style{
		ID:              id,
		CategoryID:      categoryID,
		Name:            slug,
		Slug:            slug,
		PromptTemplate:  "Turn the photo into " + slug + ".",
		CreditsRequired: credits,
		IsActive:        true,
	}
}

// Balance reads a user's credits or fails the test.
func Balance(t testing.TB, db *sql.DB, userID int64) int {
	t.Helper()
	var credits int
	if err := db.QueryRow(`SELECT credits FROM users WHERE id = ?`, userID).Scan(&credits); err != nil {
		t.Fatalf("read balance: %v", err)
	}
	return credits
}

// Count returns SELECT COUNT(*) FROM table.
func Count(t testing.TB, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
