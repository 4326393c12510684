package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avdeevsm/servergate/internal/models"
)

// ReconcileCheckout финализирует оплаченную checkout-сессию одной транзакцией:
// регистрирует событие, создаёт подписку и, если применялся код скидки,
// фиксирует его использование. Все три записи защищены уникальными
// ограничениями, поэтому повторная доставка того же события — no-op.
// Возвращает false, если событие уже было обработано.
func (s *Storage) ReconcileCheckout(ctx context.Context, eventID string, sub models.Subscription, discountCodeID *int) (bool, error) {
	const op = "storage.ReconcileCheckout"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO payment_events (event_id) VALUES ($1) ON CONFLICT (event_id) DO NOTHING`,
		eventID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		// Событие уже обработано, новых записей не будет.
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return false, nil
	}

	var subID int
	err = tx.QueryRowContext(ctx,
		`INSERT INTO subscriptions (user_id, server_id, start_date, expires_at, paid, via_coupon)
		 SELECT $1, $2, $3, $4, $5, $6
		 WHERE NOT EXISTS (
		     SELECT 1 FROM subscriptions
		     WHERE user_id = $1 AND server_id = $2 AND expires_at > NOW()
		 )
		 RETURNING id`,
		sub.UserID, sub.ServerID, sub.StartDate, sub.ExpiresAt, sub.Paid, sub.ViaCoupon).Scan(&subID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if discountCodeID != nil {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO discount_code_usages (discount_code_id, user_id)
			 VALUES ($1, $2)
			 ON CONFLICT (discount_code_id, user_id) DO NOTHING`,
			*discountCodeID, sub.UserID); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}
