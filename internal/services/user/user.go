// Package user содержит бизнес-логику чтения данных пользователей.
package user

import (
	"context"
	"errors"

	"github.com/avdeevsm/servergate/internal/models"
	"github.com/avdeevsm/servergate/internal/storage/repository"
)

// ErrUserNotFound возвращается, когда пользователь отсутствует.
var ErrUserNotFound = errors.New("user not found")

// Repository описывает методы хранилища для чтения пользователей.
type Repository interface {
	// GetUser возвращает пользователя по ID.
	GetUser(ctx context.Context, id int) (*models.User, error)
	// ListUsers возвращает всех пользователей.
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Service реализует операции чтения пользователей.
type Service struct {
	repo Repository
}

// New создает новый экземпляр Service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Profile возвращает пользователя по ID.
func (s *Service) Profile(ctx context.Context, id int) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// List возвращает всех пользователей.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListUsers(ctx)
}
