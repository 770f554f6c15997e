package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/digkill/magicpic/internal/models"
)

// TransactionRepository reads the credit audit trail. Rows are written by the ledger only.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64, page Page) ([]models.CreditTransaction, error) {
	page = page.normalize()
	const query = `
SELECT id, user_id, amount, balance_after, kind, creation_id, COALESCE(description, ''), created_at
FROM credit_transactions
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list credit transactions: %w", err)
	}
	defer rows.Close()

	var out []models.CreditTransaction
	for rows.Next() {
		var t models.CreditTransaction
		var kind string
		var creationID sql.NullInt64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.BalanceAfter, &kind, &creationID, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credit transaction: %w", err)
		}
		t.Kind = models.TransactionKind(kind)
		if creationID.Valid {
			id := creationID.Int64
			t.CreationID = &id
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
