package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/digkill/magicpic/internal/models"
)

type CreationRepository struct {
	db *sql.DB
}

func NewCreationRepository(db *sql.DB) *CreationRepository {
	return &CreationRepository{db: db}
}

const creationSelect = `
SELECT cr.id, cr.user_id, cr.style_id, cr.original_key, COALESCE(cr.generated_key, ''), COALESCE(cr.thumbnail_key, ''),
       COALESCE(cr.mood, ''), COALESCE(cr.weather, ''), COALESCE(cr.dress_style, ''), COALESCE(cr.custom_prompt, ''),
       COALESCE(cr.prompt_used, ''), cr.credits_used, COALESCE(cr.processing_time, 0), cr.likes_count, cr.views_count,
       cr.is_public, cr.is_featured, cr.is_deleted, cr.created_at,
       s.id, s.category_id, s.name, s.slug, COALESCE(s.description, ''), s.preview_key, s.prompt_template,
       COALESCE(s.negative_prompt, ''), COALESCE(s.tags, ''), s.credits_required, s.uses_count,
       s.is_trending, s.is_new, s.is_active, s.display_order, s.created_at, s.updated_at,
       c.id, c.name, c.slug, COALESCE(c.icon, ''), COALESCE(c.description, ''), COALESCE(c.preview_key, ''), c.display_order, c.is_active
FROM creations cr
JOIN styles s ON s.id = cr.style_id
JOIN categories c ON c.id = s.category_id`

func scanCreation(row rowScanner) (*models.Creation, error) {
	var cr models.Creation
	var s models.Style
	var c models.Category
	var tags string
	if err := row.Scan(
		&cr.ID, &cr.UserID, &cr.StyleID, &cr.OriginalKey, &cr.GeneratedKey, &cr.ThumbnailKey,
		&cr.Modifiers.Mood, &cr.Modifiers.Weather, &cr.Modifiers.DressStyle, &cr.Modifiers.CustomPrompt,
		&cr.PromptUsed, &cr.CreditsUsed, &cr.ProcessingTime, &cr.LikesCount, &cr.ViewsCount,
		&cr.IsPublic, &cr.IsFeatured, &cr.IsDeleted, &cr.CreatedAt,
		&s.ID, &s.CategoryID, &s.Name, &s.Slug, &s.Description, &s.PreviewKey, &s.PromptTemplate,
		&s.NegativePrompt, &tags, &s.CreditsRequired, &s.UsesCount,
		&s.IsTrending, &s.IsNew, &s.IsActive, &s.DisplayOrder, &s.CreatedAt, &s.UpdatedAt,
		&c.ID, &c.Name, &c.Slug, &c.Icon, &c.Description, &c.PreviewKey, &c.DisplayOrder, &c.IsActive,
	); err != nil {
		return nil, err
	}
	s.Tags = decodeTags(tags)
	s.Category = &c
	cr.Style = &s
	return &cr, nil
}

func (r *CreationRepository) GetByID(ctx context.Context, id int64) (*models.Creation, error) {
	row := r.db.QueryRowContext(ctx, creationSelect+` WHERE cr.id = ?`, id)
	cr, err := scanCreation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan creation: %w", err)
	}
	return cr, nil
}

// ListByUser returns the user's non-deleted creations, newest first.
func (r *CreationRepository) ListByUser(ctx context.Context, userID int64, page Page) ([]models.Creation, error) {
	page = page.normalize()
	return r.list(ctx, creationSelect+`
WHERE cr.user_id = ? AND cr.is_deleted = ?
ORDER BY cr.created_at DESC, cr.id DESC
LIMIT ? OFFSET ?`, userID, false, page.Limit, page.Offset())
}

// ListRecent is the admin feed across all users, deleted rows included.
func (r *CreationRepository) ListRecent(ctx context.Context, page Page) ([]models.Creation, error) {
	page = page.normalize()
	return r.list(ctx, creationSelect+`
ORDER BY cr.created_at DESC, cr.id DESC
LIMIT ? OFFSET ?`, page.Limit, page.Offset())
}

func (r *CreationRepository) list(ctx context.Context, query string, args ...any) ([]models.Creation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list creations: %w", err)
	}
	defer rows.Close()

	var out []models.Creation
	for rows.Next() {
		cr, err := scanCreation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan creation list: %w", err)
		}
		out = append(out, *cr)
	}
	return out, rows.Err()
}

// SoftDelete hides a creation owned by userID. Stored objects are left for the sweep.
func (r *CreationRepository) SoftDelete(ctx context.Context, id, userID int64) error {
	const query = `UPDATE creations SET is_deleted = ? WHERE id = ? AND user_id = ? AND is_deleted = ?`
	res, err := r.db.ExecContext(ctx, query, true, id, userID, false)
	if err != nil {
		return fmt.Errorf("soft delete creation: %w", err)
	}
	return checkAffected(res)
}

// IsKeyReferenced reports whether any creation row points at key. Older rows
// hold full object URLs, so a ref ending in "/"+key, or carrying it before a
// query string, counts as well.
func (r *CreationRepository) IsKeyReferenced(ctx context.Context, key string) (bool, error) {
	const query = `
SELECT 1 FROM creations
WHERE original_key = ? OR generated_key = ? OR thumbnail_key = ?
   OR original_key LIKE ? ESCAPE '!' OR generated_key LIKE ? ESCAPE '!' OR thumbnail_key LIKE ? ESCAPE '!'
   OR original_key LIKE ? ESCAPE '!' OR generated_key LIKE ? ESCAPE '!' OR thumbnail_key LIKE ? ESCAPE '!'
LIMIT 1`
	escaped := escapeLike(strings.TrimPrefix(key, "/"))
	suffix := "%/" + escaped
	signed := "%/" + escaped + "?%"
	var dummy int
	err := r.db.QueryRowContext(ctx, query,
		key, key, key,
		suffix, suffix, suffix,
		signed, signed, signed,
	).Scan(&dummy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check key reference: %w", err)
	}
	return true, nil
}

type CreationStats struct {
	Total        int `json:"total"`
	Since        int `json:"since"`
	CreditsSpent int `json:"credits_spent"`
}

// Stats counts all creations and those created at or after since.
func (r *CreationRepository) Stats(ctx context.Context, since time.Time) (CreationStats, error) {
	const query = `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(credits_used), 0)
FROM creations`
	var st CreationStats
	if err := r.db.QueryRowContext(ctx, query, since.UTC()).Scan(&st.Total, &st.Since, &st.CreditsSpent); err != nil {
		return CreationStats{}, fmt.Errorf("creation stats: %w", err)
	}
	return st, nil
}

type StyleUsage struct {
	StyleID   int64  `json:"style_id"`
	Name      string `json:"name"`
	Creations int    `json:"creations"`
}

func (r *CreationRepository) TopStyles(ctx context.Context, limit int) ([]StyleUsage, error) {
	const query = `
SELECT s.id, s.name, COUNT(cr.id) AS n
FROM creations cr
JOIN styles s ON s.id = cr.style_id
GROUP BY s.id, s.name
ORDER BY n DESC, s.id ASC
LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top styles: %w", err)
	}
	defer rows.Close()

	var out []StyleUsage
	for rows.Next() {
		var u StyleUsage
		if err := rows.Scan(&u.StyleID, &u.Name, &u.Creations); err != nil {
			return nil, fmt.Errorf("scan style usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
