package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avdeevsm/servergate/internal/models"
)

// CreateDiscountCode вставляет новый код скидки и возвращает его ID.
func (s *Storage) CreateDiscountCode(ctx context.Context, code models.DiscountCode) (int, error) {
	const op = "storage.CreateDiscountCode"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO discount_codes (code, server_id, discount_amount, expires_at, max_uses, created_by)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		code.Code, code.ServerID, code.DiscountAmount, code.ExpiresAt, code.MaxUses,
		code.CreatedBy).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// FindValidDiscountCode ищет непросроченный код, применимый к серверу:
// либо привязанный к нему, либо глобальный (server_id IS NULL).
func (s *Storage) FindValidDiscountCode(ctx context.Context, code string, serverID int) (*models.DiscountCode, error) {
	const op = "storage.FindValidDiscountCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, code, server_id, discount_amount, expires_at, max_uses, created_by, created_at
			  FROM discount_codes
			  WHERE code = $1
			    AND (server_id = $2 OR server_id IS NULL)
			    AND expires_at > NOW()`
	return s.scanDiscountCode(s.DB.QueryRowContext(ctx, query, code, serverID), op)
}

// GetDiscountCodeByCode возвращает код скидки по его строковому значению.
func (s *Storage) GetDiscountCodeByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	const op = "storage.GetDiscountCodeByCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, code, server_id, discount_amount, expires_at, max_uses, created_by, created_at
			  FROM discount_codes
			  WHERE code = $1`
	return s.scanDiscountCode(s.DB.QueryRowContext(ctx, query, code), op)
}

// GetDiscountCode возвращает код скидки по ID.
func (s *Storage) GetDiscountCode(ctx context.Context, id int) (*models.DiscountCode, error) {
	const op = "storage.GetDiscountCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, code, server_id, discount_amount, expires_at, max_uses, created_by, created_at
			  FROM discount_codes
			  WHERE id = $1`
	return s.scanDiscountCode(s.DB.QueryRowContext(ctx, query, id), op)
}

func (s *Storage) scanDiscountCode(row *sql.Row, op string) (*models.DiscountCode, error) {
	var result models.DiscountCode
	var serverID, createdBy sql.NullInt64
	if err := row.Scan(&result.ID, &result.Code, &serverID, &result.DiscountAmount,
		&result.ExpiresAt, &result.MaxUses, &createdBy, &result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if serverID.Valid {
		v := int(serverID.Int64)
		result.ServerID = &v
	}
	if createdBy.Valid {
		v := int(createdBy.Int64)
		result.CreatedBy = &v
	}
	return &result, nil
}

// ListDiscountCodes возвращает все коды скидок, новые первыми.
func (s *Storage) ListDiscountCodes(ctx context.Context) ([]*models.DiscountCode, error) {
	const op = "storage.ListDiscountCodes"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, code, server_id, discount_amount, expires_at, max_uses, created_by, created_at
			  FROM discount_codes
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.DiscountCode
	for rows.Next() {
		var item models.DiscountCode
		var serverID, createdBy sql.NullInt64
		if err := rows.Scan(&item.ID, &item.Code, &serverID, &item.DiscountAmount,
			&item.ExpiresAt, &item.MaxUses, &createdBy, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if serverID.Valid {
			v := int(serverID.Int64)
			item.ServerID = &v
		}
		if createdBy.Valid {
			v := int(createdBy.Int64)
			item.CreatedBy = &v
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RemoveDiscountCode удаляет код скидки по ID, возвращает количество удалённых строк.
func (s *Storage) RemoveDiscountCode(ctx context.Context, id int) (int, error) {
	const op = "storage.RemoveDiscountCode"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM discount_codes WHERE id = $1`
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

// CountDiscountCodeUsages подсчитывает число использований кода.
func (s *Storage) CountDiscountCodeUsages(ctx context.Context, codeID int) (int, error) {
	const op = "storage.CountDiscountCodeUsages"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM discount_code_usages WHERE discount_code_id = $1`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, codeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// HasUserUsedDiscountCode проверяет, применял ли пользователь данный код.
func (s *Storage) HasUserUsedDiscountCode(ctx context.Context, codeID, userID int) (bool, error) {
	const op = "storage.HasUserUsedDiscountCode"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM discount_code_usages
			      WHERE discount_code_id = $1 AND user_id = $2
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, codeID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// RecordDiscountCodeUsage фиксирует использование кода пользователем.
// Уникальный индекс по (discount_code_id, user_id) делает повторную вставку
// no-op, поэтому код тратится не более одного раза даже при дублировании
// вебхука. Возвращает false, если запись уже существовала.
func (s *Storage) RecordDiscountCodeUsage(ctx context.Context, codeID, userID int) (bool, error) {
	const op = "storage.RecordDiscountCodeUsage"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO discount_code_usages (discount_code_id, user_id)
			  VALUES ($1, $2)
			  ON CONFLICT (discount_code_id, user_id) DO NOTHING`
	result, err := s.DB.ExecContext(ctx, query, codeID, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}
