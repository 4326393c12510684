package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avdeevsm/servergate/internal/models"
)

// CreateServer вставляет новый сервер и возвращает его ID.
func (s *Storage) CreateServer(ctx context.Context, server models.Server) (int, error) {
	const op = "storage.CreateServer"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO servers (name, description, user_id)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		server.Name, server.Description, server.UserID).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetServer возвращает сервер по его ID.
func (s *Storage) GetServer(ctx context.Context, id int) (*models.Server, error) {
	const op = "storage.GetServer"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, description, user_id, created_at
			  FROM servers WHERE id = $1`
	var result models.Server
	var description sql.NullString
	row := s.DB.QueryRowContext(ctx, query, id)
	if err := row.Scan(&result.ID, &result.Name, &description, &result.UserID,
		&result.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if description.Valid {
		result.Description = &description.String
	}
	return &result, nil
}

// ListServers возвращает список всех серверов.
func (s *Storage) ListServers(ctx context.Context) ([]*models.Server, error) {
	const op = "storage.ListServers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, description, user_id, created_at
			  FROM servers
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanServers(rows, op)
}

// ListAvailableServers возвращает серверы, на которые у пользователя
// нет активной подписки (expires_at строго в будущем).
func (s *Storage) ListAvailableServers(ctx context.Context, userID int) ([]*models.Server, error) {
	const op = "storage.ListAvailableServers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, description, user_id, created_at
			  FROM servers
			  WHERE id NOT IN (
			      SELECT server_id FROM subscriptions
			      WHERE user_id = $1 AND expires_at > NOW()
			  )
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanServers(rows, op)
}

func scanServers(rows *sql.Rows, op string) ([]*models.Server, error) {
	var result []*models.Server
	for rows.Next() {
		var item models.Server
		var description sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &description, &item.UserID,
			&item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if description.Valid {
			item.Description = &description.String
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ServerNameExists проверяет занятость имени сервера, исключая запись excludeID.
func (s *Storage) ServerNameExists(ctx context.Context, name string, excludeID int) (bool, error) {
	const op = "storage.ServerNameExists"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (SELECT 1 FROM servers WHERE name = $1 AND id <> $2)`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// UpdateServer обновляет имя и описание сервера, возвращает количество изменённых строк.
func (s *Storage) UpdateServer(ctx context.Context, id int, name string, description *string) (int, error) {
	const op = "storage.UpdateServer"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE servers SET name = $2, description = $3 WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id, name, description)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// RemoveServer удаляет сервер по ID, возвращает количество удалённых строк.
// Подписки и их использования кодов удаляются каскадно, коды скидок остаются
// с server_id = NULL.
func (s *Storage) RemoveServer(ctx context.Context, id int) (int, error) {
	const op = "storage.RemoveServer"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM servers WHERE id = $1`
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
