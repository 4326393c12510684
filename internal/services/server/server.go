// Package server содержит бизнес-логику управления каталогом серверов.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avdeevsm/servergate/internal/models"
	"github.com/avdeevsm/servergate/internal/storage/repository"
)

// Ошибки управления серверами.
var (
	ErrServerNotFound  = errors.New("server not found")
	ErrServerNameTaken = errors.New("server name already taken")
)

// listCacheKey — ключ кэша полного списка серверов.
const listCacheKey = "servers:all"

// Repository описывает методы хранилища для работы с серверами.
type Repository interface {
	// CreateServer сохраняет новый сервер и возвращает его ID.
	CreateServer(ctx context.Context, server models.Server) (int, error)
	// GetServer возвращает сервер по ID.
	GetServer(ctx context.Context, id int) (*models.Server, error)
	// ListServers возвращает все серверы.
	ListServers(ctx context.Context) ([]*models.Server, error)
	// ServerNameExists проверяет занятость имени, исключая сервер excludeID.
	ServerNameExists(ctx context.Context, name string, excludeID int) (bool, error)
	// UpdateServer обновляет имя и описание сервера.
	UpdateServer(ctx context.Context, id int, name string, description *string) (int, error)
	// RemoveServer удаляет сервер по ID.
	RemoveServer(ctx context.Context, id int) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует бизнес-логику каталога серверов.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, log: log}
}

// Create добавляет сервер в каталог. Имя должно быть уникальным.
func (s *Service) Create(ctx context.Context, name string, description *string, ownerID int) (int, error) {
	taken, err := s.repo.ServerNameExists(ctx, name, 0)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, ErrServerNameTaken
	}

	id, err := s.repo.CreateServer(ctx, models.Server{
		Name:        name,
		Description: description,
		UserID:      ownerID,
	})
	if err != nil {
		return 0, err
	}
	s.invalidateList()
	s.log.Info("server created", slog.Int("id", id), slog.String("name", name))
	return id, nil
}

// Read возвращает сервер по ID.
func (s *Service) Read(ctx context.Context, id int) (*models.Server, error) {
	server, err := s.repo.GetServer(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrServerNotFound
		}
		return nil, err
	}
	return server, nil
}

// List возвращает все серверы каталога, используя кэш со списком.
func (s *Service) List(ctx context.Context) ([]*models.Server, error) {
	var cached []*models.Server
	found, err := s.cache.Get(listCacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read server list from cache", slog.Any("err", err))
	}
	if found {
		return cached, nil
	}

	servers, err := s.repo.ListServers(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(listCacheKey, servers, time.Hour); err != nil {
		s.log.Warn("failed to cache server list", slog.Any("err", err))
	}
	return servers, nil
}

// Update обновляет имя и описание сервера. Новое имя не должно
// конфликтовать с другими серверами.
func (s *Service) Update(ctx context.Context, id int, name string, description *string) error {
	taken, err := s.repo.ServerNameExists(ctx, name, id)
	if err != nil {
		return err
	}
	if taken {
		return ErrServerNameTaken
	}

	count, err := s.repo.UpdateServer(ctx, id, name, description)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrServerNotFound
	}
	s.invalidateList()
	return nil
}

// Remove удаляет сервер вместе с его подписками.
func (s *Service) Remove(ctx context.Context, id int) error {
	count, err := s.repo.RemoveServer(ctx, id)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrServerNotFound
	}
	s.invalidateList()
	s.log.Info("server removed", slog.Int("id", id))
	return nil
}

func (s *Service) invalidateList() {
	if err := s.cache.Invalidate(listCacheKey); err != nil {
		s.log.Warn("failed to invalidate server list cache", slog.Any("err", err))
	}
}
