package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/magicpic/internal/database"
	"github.com/digkill/magicpic/internal/models"
)

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, name, slug, COALESCE(icon, ''), COALESCE(description, ''), COALESCE(preview_key, ''), display_order, is_active`

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Icon, &c.Description, &c.PreviewKey, &c.DisplayOrder, &c.IsActive); err != nil {
		return nil, err
	}
	return &c, nil
}

// CategoryWithCount is a category plus the number of active styles in it.
type CategoryWithCount struct {
	models.Category
	StylesCount int `json:"styles_count"`
}

// ListWithCounts returns categories ordered for display. activeOnly hides
// disabled categories from public listings.
func (r *CategoryRepository) ListWithCounts(ctx context.Context, activeOnly bool) ([]CategoryWithCount, error) {
	query := `
SELECT c.id, c.name, c.slug, COALESCE(c.icon, ''), COALESCE(c.description, ''), COALESCE(c.preview_key, ''), c.display_order, c.is_active,
       (SELECT COUNT(*) FROM styles s WHERE s.category_id = c.id AND s.is_active = ?) AS styles_count
FROM categories c`
	args := []any{true}
	if activeOnly {
		query += ` WHERE c.is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY c.display_order ASC, c.id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []CategoryWithCount
	for rows.Next() {
		var c CategoryWithCount
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Icon, &c.Description, &c.PreviewKey, &c.DisplayOrder, &c.IsActive, &c.StylesCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return c, nil
}

func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = ?`, slug)
	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan category by slug: %w", err)
	}
	return c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	const query = `
INSERT INTO categories (name, slug, icon, description, preview_key, display_order, is_active)
VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?)`
	res, err := r.db.ExecContext(ctx, query, c.Name, c.Slug, c.Icon, c.Description, c.PreviewKey, c.DisplayOrder, c.IsActive)
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, fmt.Errorf("insert category: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	const query = `
UPDATE categories
SET name = ?, slug = ?, icon = NULLIF(?, ''), description = NULLIF(?, ''), preview_key = NULLIF(?, ''), display_order = ?, is_active = ?
WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, c.Name, c.Slug, c.Icon, c.Description, c.PreviewKey, c.DisplayOrder, c.IsActive, c.ID)
	if err != nil {
		if database.IsDuplicate(err) {
			return fmt.Errorf("update category: %w", ErrDuplicate)
		}
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return checkAffected(res)
}
