package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/digkill/magicpic/internal/database"
	"github.com/digkill/magicpic/internal/models"
)

type StyleRepository struct {
	db *sql.DB
}

func NewStyleRepository(db *sql.DB) *StyleRepository {
	return &StyleRepository{db: db}
}

const styleSelect = `
SELECT s.id, s.category_id, s.name, s.slug, COALESCE(s.description, ''), s.preview_key, s.prompt_template,
       COALESCE(s.negative_prompt, ''), COALESCE(s.tags, ''), s.credits_required, s.uses_count,
       s.is_trending, s.is_new, s.is_active, s.display_order, s.created_at, s.updated_at,
       c.id, c.name, c.slug, COALESCE(c.icon, ''), COALESCE(c.description, ''), COALESCE(c.preview_key, ''), c.display_order, c.is_active
FROM styles s
JOIN categories c ON c.id = s.category_id`

func scanStyle(row rowScanner) (*models.Style, error) {
	var s models.Style
	var c models.Category
	var tags string
	if err := row.Scan(
		&s.ID, &s.CategoryID, &s.Name, &s.Slug, &s.Description, &s.PreviewKey, &s.PromptTemplate,
		&s.NegativePrompt, &tags, &s.CreditsRequired, &s.UsesCount,
		&s.IsTrending, &s.IsNew, &s.IsActive, &s.DisplayOrder, &s.CreatedAt, &s.UpdatedAt,
		&c.ID, &c.Name, &c.Slug, &c.Icon, &c.Description, &c.PreviewKey, &c.DisplayOrder, &c.IsActive,
	); err != nil {
		return nil, err
	}
	s.Tags = decodeTags(tags)
	s.Category = &c
	return &s, nil
}

func decodeTags(raw string) []string {
	tags := []string{}
	if raw == "" {
		return tags
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	return tags
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	raw, _ := json.Marshal(tags)
	return string(raw)
}

func (r *StyleRepository) queryOne(ctx context.Context, where string, args ...any) (*models.Style, error) {
	row := r.db.QueryRowContext(ctx, styleSelect+" WHERE "+where, args...)
	s, err := scanStyle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan style: %w", err)
	}
	return s, nil
}

func (r *StyleRepository) GetByID(ctx context.Context, id int64) (*models.Style, error) {
	return r.queryOne(ctx, "s.id = ?", id)
}

// GetActive returns the style only when it is enabled; disabled styles are
// indistinguishable from missing ones for callers generating images.
func (r *StyleRepository) GetActive(ctx context.Context, id int64) (*models.Style, error) {
	return r.queryOne(ctx, "s.id = ? AND s.is_active = ?", id, true)
}

func (r *StyleRepository) GetBySlug(ctx context.Context, slug string) (*models.Style, error) {
	return r.queryOne(ctx, "s.slug = ?", slug)
}

type StyleFilter struct {
	// CategorySlug restricts the list to one category.
	CategorySlug string
	Trending     *bool
	Search       string
	// IncludeInactive is set by the admin console only.
	IncludeInactive bool
	Limit           int
}

func (r *StyleRepository) List(ctx context.Context, filter StyleFilter) ([]models.Style, error) {
	var clauses []string
	var args []any
	if !filter.IncludeInactive {
		clauses = append(clauses, "s.is_active = ?")
		args = append(args, true)
	}
	if filter.CategorySlug != "" {
		clauses = append(clauses, "c.slug = ?")
		args = append(args, filter.CategorySlug)
	}
	if filter.Trending != nil {
		clauses = append(clauses, "s.is_trending = ?")
		args = append(args, *filter.Trending)
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := likePattern(filter.Search)
		clauses = append(clauses, "(LOWER(s.name) LIKE ? ESCAPE '!' OR LOWER(COALESCE(s.description, '')) LIKE ? ESCAPE '!')")
		args = append(args, pattern, pattern)
	}

	query := styleSelect
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY s.display_order ASC, s.uses_count DESC, s.id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list styles: %w", err)
	}
	defer rows.Close()

	var styles []models.Style
	for rows.Next() {
		s, err := scanStyle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan style list: %w", err)
		}
		styles = append(styles, *s)
	}
	return styles, rows.Err()
}

// Trending returns active trending styles, most used first.
func (r *StyleRepository) Trending(ctx context.Context, limit int) ([]models.Style, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, styleSelect+`
WHERE s.is_active = ? AND s.is_trending = ?
ORDER BY s.uses_count DESC, s.id ASC
LIMIT ?`, true, true, limit)
	if err != nil {
		return nil, fmt.Errorf("list trending styles: %w", err)
	}
	defer rows.Close()

	var styles []models.Style
	for rows.Next() {
		s, err := scanStyle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trending style: %w", err)
		}
		styles = append(styles, *s)
	}
	return styles, rows.Err()
}

func (r *StyleRepository) Create(ctx context.Context, s *models.Style) (*models.Style, error) {
	const query = `
INSERT INTO styles (category_id, name, slug, description, preview_key, prompt_template, negative_prompt, tags,
                    credits_required, is_trending, is_new, is_active, display_order)
VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		s.CategoryID, s.Name, s.Slug, s.Description, s.PreviewKey, s.PromptTemplate, s.NegativePrompt, encodeTags(s.Tags),
		s.CreditsRequired, s.IsTrending, s.IsNew, s.IsActive, s.DisplayOrder,
	)
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, fmt.Errorf("insert style: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("insert style: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Update overwrites every editable column; uses_count is owned by the ledger.
func (r *StyleRepository) Update(ctx context.Context, s *models.Style) error {
	const query = `
UPDATE styles
SET category_id = ?, name = ?, slug = ?, description = NULLIF(?, ''), preview_key = ?, prompt_template = ?,
    negative_prompt = NULLIF(?, ''), tags = ?, credits_required = ?, is_trending = ?, is_new = ?, is_active = ?,
    display_order = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		s.CategoryID, s.Name, s.Slug, s.Description, s.PreviewKey, s.PromptTemplate,
		s.NegativePrompt, encodeTags(s.Tags), s.CreditsRequired, s.IsTrending, s.IsNew, s.IsActive,
		s.DisplayOrder, s.ID,
	)
	if err != nil {
		if database.IsDuplicate(err) {
			return fmt.Errorf("update style: %w", ErrDuplicate)
		}
		return fmt.Errorf("update style: %w", err)
	}
	return nil
}

func (r *StyleRepository) SetPreviewKey(ctx context.Context, id int64, key string) error {
	const query = `UPDATE styles SET preview_key = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, key, id); err != nil {
		return fmt.Errorf("set style preview: %w", err)
	}
	return nil
}

func (r *StyleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM styles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete style: %w", err)
	}
	return checkAffected(res)
}

func (r *StyleRepository) Count(ctx context.Context) (total, active int, err error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_active = ? THEN 1 ELSE 0 END), 0) FROM styles`, true)
	if err := row.Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("count styles: %w", err)
	}
	return total, active, nil
}
