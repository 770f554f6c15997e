package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by writes that matched no row. Lookups return a nil
// model instead.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update collides with a unique key.
var ErrDuplicate = errors.New("duplicate entry")

// Page bounds a list query. Zero values fall back to the first page of 50.
type Page struct {
	Page  int
	Limit int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > 200 {
		p.Limit = 50
	}
	return p
}

func (p Page) Offset() int {
	n := p.normalize()
	return (n.Page - 1) * n.Limit
}

// likePattern escapes with '!' because MySQL and SQLite disagree on the default LIKE escape.
func likePattern(search string) string {
	return "%" + escapeLike(strings.ToLower(strings.TrimSpace(search))) + "%"
}

// escapeLike quotes LIKE wildcards for use with ESCAPE '!'.
func escapeLike(s string) string {
	return strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(s)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
