// Package ledger owns every write that changes a credit balance or a style's
// usage counter. Each operation is a single database transaction.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/magicpic/internal/database"
	"github.com/digkill/magicpic/internal/models"
)

var (
	// ErrInsufficientCredits means the balance does not cover the debit.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrTrialExhausted means the device already has a guest usage row.
	ErrTrialExhausted = errors.New("guest trial exhausted")
	// ErrUserNotFound means the user row is gone.
	ErrUserNotFound = errors.New("user not found")
)

type Ledger struct {
	db *sql.DB
}

func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// CommitCreation debits the creation's cost, inserts the creation, bumps the
// style's uses_count and records the debit, all or nothing. On success the
// creation's ID is set and the remaining balance is returned.
func (l *Ledger) CommitCreation(ctx context.Context, c *models.Creation) (int, error) {
	if c.CreditsUsed <= 0 {
		return 0, fmt.Errorf("commit creation: non-positive cost %d", c.CreditsUsed)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET credits = credits - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND credits >= ?`,
		c.CreditsUsed, c.UserID, c.CreditsUsed)
	if err != nil {
		return 0, fmt.Errorf("debit credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, c.UserID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("check user: %w", err)
		}
		return 0, ErrInsufficientCredits
	}

	res, err = tx.ExecContext(ctx, `
INSERT INTO creations (user_id, style_id, original_key, generated_key, thumbnail_key, mood, weather, dress_style,
                       custom_prompt, prompt_used, credits_used, processing_time, is_public)
VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?)`,
		c.UserID, c.StyleID, c.OriginalKey, c.GeneratedKey, c.ThumbnailKey,
		c.Modifiers.Mood, c.Modifiers.Weather, c.Modifiers.DressStyle, c.Modifiers.CustomPrompt,
		c.PromptUsed, c.CreditsUsed, c.ProcessingTime, c.IsPublic)
	if err != nil {
		return 0, fmt.Errorf("insert creation: %w", err)
	}
	creationID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE styles SET uses_count = uses_count + 1 WHERE id = ?`, c.StyleID); err != nil {
		return 0, fmt.Errorf("increment style uses: %w", err)
	}

	var balance int
	if err := tx.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = ?`, c.UserID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}

	if err := insertTransaction(ctx, tx, c.UserID, -c.CreditsUsed, balance, models.TransactionGeneration, &creationID, ""); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	c.ID = creationID
	return balance, nil
}

// CommitGuestTrial records the device's single guest generation and bumps the
// style's uses_count. A concurrent first request for the same device loses on
// the unique key and gets ErrTrialExhausted.
func (l *Ledger) CommitGuestTrial(ctx context.Context, deviceID string, styleID int64) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO guest_usages (device_id, style_id) VALUES (?, ?)`, deviceID, styleID); err != nil {
		if database.IsDuplicate(err) {
			return ErrTrialExhausted
		}
		return fmt.Errorf("insert guest usage: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE styles SET uses_count = uses_count + 1 WHERE id = ?`, styleID); err != nil {
		return fmt.Errorf("increment style uses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Adjust applies an operator grant or deduction. Deductions larger than the
// balance floor it at zero; the recorded amount is what actually moved.
func (l *Ledger) Adjust(ctx context.Context, userID int64, delta int, description string) (int, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = ?`, userID).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}

	applied := delta
	if current+delta < 0 {
		applied = -current
	}
	if applied == 0 {
		return current, nil
	}

	// A relative update keeps a concurrent debit from being overwritten.
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET credits = credits + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND credits + ? >= 0`,
		applied, userID, applied)
	if err != nil {
		return 0, fmt.Errorf("adjust credits: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return 0, ErrInsufficientCredits
	}

	var balance int
	if err := tx.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}

	if err := insertTransaction(ctx, tx, userID, applied, balance, models.TransactionAdminAdjustment, nil, description); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return balance, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, userID int64, amount, balanceAfter int, kind models.TransactionKind, creationID *int64, description string) error {
	var cid sql.NullInt64
	if creationID != nil {
		cid = sql.NullInt64{Int64: *creationID, Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO credit_transactions (user_id, amount, balance_after, kind, creation_id, description)
VALUES (?, ?, ?, ?, ?, NULLIF(?, ''))`,
		userID, amount, balanceAfter, string(kind), cid, description)
	if err != nil {
		return fmt.Errorf("insert credit transaction: %w", err)
	}
	return nil
}
