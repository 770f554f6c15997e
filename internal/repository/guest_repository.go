package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/magicpic/internal/models"
)

type GuestRepository struct {
	db *sql.DB
}

func NewGuestRepository(db *sql.DB) *GuestRepository {
	return &GuestRepository{db: db}
}

func (r *GuestRepository) FindByDevice(ctx context.Context, deviceID string) (*models.GuestUsage, error) {
	const query = `SELECT id, device_id, style_id, created_at FROM guest_usages WHERE device_id = ?`
	var g models.GuestUsage
	if err := r.db.QueryRowContext(ctx, query, deviceID).Scan(&g.ID, &g.DeviceID, &g.StyleID, &g.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan guest usage: %w", err)
	}
	return &g, nil
}

func (r *GuestRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM guest_usages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count guest usages: %w", err)
	}
	return n, nil
}
