package repository

import (
	"context"
	"fmt"

	"github.com/avdeevsm/servergate/internal/models"
)

// HasActiveSubscription проверяет наличие у пользователя активной подписки на сервер.
func (s *Storage) HasActiveSubscription(ctx context.Context, userID, serverID int) (bool, error) {
	const op = "storage.HasActiveSubscription"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM subscriptions
			      WHERE user_id = $1 AND server_id = $2 AND expires_at > NOW()
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userID, serverID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ListUserSubscriptions возвращает подписки пользователя с данными сервера,
// отсортированные по дате окончания.
func (s *Storage) ListUserSubscriptions(ctx context.Context, userID int) ([]*models.SubscriptionInfo, error) {
	const op = "storage.ListUserSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT sub.id, sub.user_id, sub.server_id, sub.start_date, sub.expires_at,
			      sub.paid, sub.via_coupon, u.username, u.email, srv.name
			  FROM subscriptions sub
			  JOIN users u ON u.id = sub.user_id
			  JOIN servers srv ON srv.id = sub.server_id
			  WHERE sub.user_id = $1
			  ORDER BY sub.expires_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionInfo
	for rows.Next() {
		var item models.SubscriptionInfo
		if err := rows.Scan(&item.ID, &item.UserID, &item.ServerID, &item.StartDate,
			&item.ExpiresAt, &item.Paid, &item.ViaCoupon, &item.Username, &item.Email,
			&item.ServerName); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListAllSubscriptions возвращает все подписки с данными пользователя и сервера,
// с пагинацией, отсортированные по дате окончания.
func (s *Storage) ListAllSubscriptions(ctx context.Context, limit, offset int) ([]*models.SubscriptionInfo, error) {
	const op = "storage.ListAllSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT sub.id, sub.user_id, sub.server_id, sub.start_date, sub.expires_at,
			      sub.paid, sub.via_coupon, u.username, u.email, srv.name
			  FROM subscriptions sub
			  JOIN users u ON u.id = sub.user_id
			  JOIN servers srv ON srv.id = sub.server_id
			  ORDER BY sub.expires_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionInfo
	for rows.Next() {
		var item models.SubscriptionInfo
		if err := rows.Scan(&item.ID, &item.UserID, &item.ServerID, &item.StartDate,
			&item.ExpiresAt, &item.Paid, &item.ViaCoupon, &item.Username, &item.Email,
			&item.ServerName); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RemoveSubscription удаляет подписку по ID и возвращает количество удалённых строк.
func (s *Storage) RemoveSubscription(ctx context.Context, id int) (int, error) {
	const op = "storage.RemoveSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM subscriptions WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
