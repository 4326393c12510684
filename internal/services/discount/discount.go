// Package discount содержит бизнес-логику кодов скидок: проверку применимости
// кода к покупке и административное управление кодами.
package discount

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/avdeevsm/servergate/internal/models"
	"github.com/avdeevsm/servergate/internal/storage/repository"
)

// Ошибки проверки кода скидки. Каждая причина отказа различима,
// обработчики транслируют их в отдельные ответы клиенту.
var (
	ErrInvalidOrExpiredCode = errors.New("invalid or expired discount code")
	ErrMaxUsesReached       = errors.New("discount code has reached maximum uses")
	ErrCodeAlreadyUsed      = errors.New("discount code already used by this user")
	ErrServerNotFound       = errors.New("server not found")
	ErrExpiryInPast         = errors.New("expiry date must be in the future")
	ErrBadExpiryFormat      = errors.New("expiry date must be in RFC3339 format")
)

// Repository определяет методы для работы с кодами скидок в хранилище.
type Repository interface {
	// FindValidDiscountCode ищет непросроченный код, применимый к серверу.
	FindValidDiscountCode(ctx context.Context, code string, serverID int) (*models.DiscountCode, error)
	// CountDiscountCodeUsages подсчитывает число использований кода.
	CountDiscountCodeUsages(ctx context.Context, codeID int) (int, error)
	// HasUserUsedDiscountCode проверяет, применял ли пользователь данный код.
	HasUserUsedDiscountCode(ctx context.Context, codeID, userID int) (bool, error)
	// CreateDiscountCode вставляет новый код и возвращает его ID.
	CreateDiscountCode(ctx context.Context, code models.DiscountCode) (int, error)
	// GetDiscountCode возвращает код по ID.
	GetDiscountCode(ctx context.Context, id int) (*models.DiscountCode, error)
	// ListDiscountCodes возвращает все коды.
	ListDiscountCodes(ctx context.Context) ([]*models.DiscountCode, error)
	// RemoveDiscountCode удаляет код по ID.
	RemoveDiscountCode(ctx context.Context, id int) (int, error)
	// GetServer возвращает сервер по ID.
	GetServer(ctx context.Context, id int) (*models.Server, error)
}

// Service реализует бизнес-логику кодов скидок.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// Evaluate проверяет код для пары пользователь/сервер и возвращает сумму скидки.
// Метод ничего не изменяет: использование кода фиксируется только после
// подтверждения оплаты, а не при попытке покупки.
func (s *Service) Evaluate(ctx context.Context, userID, serverID int, code string) (int, error) {
	discountCode, err := s.repo.FindValidDiscountCode(ctx, code, serverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrInvalidOrExpiredCode
		}
		return 0, err
	}

	uses, err := s.repo.CountDiscountCodeUsages(ctx, discountCode.ID)
	if err != nil {
		return 0, err
	}
	if uses >= discountCode.MaxUses {
		return 0, ErrMaxUsesReached
	}

	used, err := s.repo.HasUserUsedDiscountCode(ctx, discountCode.ID, userID)
	if err != nil {
		return 0, err
	}
	if used {
		return 0, ErrCodeAlreadyUsed
	}

	return discountCode.DiscountAmount, nil
}

// Generate создает новый код скидки со случайным 8-символьным значением.
// ServerID равный нулю означает глобальный код, применимый к любому серверу.
func (s *Service) Generate(ctx context.Context, createdBy int, req models.DummyDiscountCode) (*models.DiscountCode, error) {
	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadExpiryFormat, err)
	}
	if !expiresAt.After(time.Now()) {
		return nil, ErrExpiryInPast
	}

	var serverID *int
	if req.ServerID != 0 {
		if _, err := s.repo.GetServer(ctx, req.ServerID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrServerNotFound
			}
			return nil, err
		}
		serverID = &req.ServerID
	}

	code, err := randomCode(8)
	if err != nil {
		return nil, err
	}

	discountCode := models.DiscountCode{
		Code:           code,
		ServerID:       serverID,
		DiscountAmount: req.DiscountAmount,
		ExpiresAt:      expiresAt,
		MaxUses:        req.MaxUses,
		CreatedBy:      &createdBy,
	}
	id, err := s.repo.CreateDiscountCode(ctx, discountCode)
	if err != nil {
		return nil, err
	}
	discountCode.ID = id

	s.log.Info("generated discount code", slog.Int("id", id), slog.String("code", code))
	return &discountCode, nil
}

// List возвращает все коды скидок.
func (s *Service) List(ctx context.Context) ([]*models.DiscountCode, error) {
	return s.repo.ListDiscountCodes(ctx)
}

// Read возвращает код скидки по ID.
func (s *Service) Read(ctx context.Context, id int) (*models.DiscountCode, error) {
	return s.repo.GetDiscountCode(ctx, id)
}

// Remove удаляет код скидки по ID и возвращает количество удалённых записей.
func (s *Service) Remove(ctx context.Context, id int) (int, error) {
	return s.repo.RemoveDiscountCode(ctx, id)
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomCode(length int) (string, error) {
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		result[i] = codeAlphabet[n.Int64()]
	}
	return string(result), nil
}
