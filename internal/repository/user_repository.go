package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/digkill/magicpic/internal/database"
	"github.com/digkill/magicpic/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) DB() *sql.DB {
	return r.db
}

const userColumns = `id, email, hashed_password, name, COALESCE(phone, ''), COALESCE(avatar_url, ''), credits, referral_code, is_verified, is_active, last_login, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.Name, &u.Phone, &u.AvatarURL, &u.Credits, &u.ReferralCode, &u.IsVerified, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.LastLogin = nullTime(lastLogin)
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// FindByEmail matches case-insensitively; emails are stored lower-cased.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE referral_code = ?`, code)
	var dummy int
	if err := row.Scan(&dummy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check referral code: %w", err)
	}
	return true, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	const query = `
INSERT INTO users (email, hashed_password, name, phone, avatar_url, credits, referral_code, is_verified, is_active)
VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, strings.ToLower(strings.TrimSpace(user.Email)), user.HashedPassword, user.Name, user.Phone, user.AvatarURL, user.Credits, user.ReferralCode, user.IsVerified, user.IsActive)
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, fmt.Errorf("insert user: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, userID int64) error {
	const query = `UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// Balance reads the current credit balance straight from the store.
func (r *UserRepository) Balance(ctx context.Context, userID int64) (int, error) {
	row := r.db.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = ?`, userID)
	var credits int
	if err := row.Scan(&credits); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("user %d: %w", userID, sql.ErrNoRows)
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return credits, nil
}

type UserFilter struct {
	Search     string
	IsVerified *bool
	IsActive   *bool
	Page
}

func (f UserFilter) where() (string, []any) {
	var clauses []string
	var args []any
	if strings.TrimSpace(f.Search) != "" {
		clauses = append(clauses, `(LOWER(name) LIKE ? ESCAPE '!' OR email LIKE ? ESCAPE '!')`)
		pattern := likePattern(f.Search)
		args = append(args, pattern, pattern)
	}
	if f.IsVerified != nil {
		clauses = append(clauses, `is_verified = ?`)
		args = append(args, *f.IsVerified)
	}
	if f.IsActive != nil {
		clauses = append(clauses, `is_active = ?`)
		args = append(args, *f.IsActive)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns one page of users, newest first, plus the total matching count.
func (r *UserRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int, error) {
	where, args := filter.where()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	page := filter.Page.normalize()
	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user list: %w", err)
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Count returns all users and those created at or after since.
func (r *UserRepository) Count(ctx context.Context, since time.Time) (total, newSince int, err error) {
	const query = `SELECT COUNT(*), COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) FROM users`
	if err := r.db.QueryRowContext(ctx, query, since.UTC()).Scan(&total, &newSince); err != nil {
		return 0, 0, fmt.Errorf("count users: %w", err)
	}
	return total, newSince, nil
}
