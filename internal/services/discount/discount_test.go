package discount

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avdeevsm/servergate/internal/models"
	"github.com/avdeevsm/servergate/internal/storage/repository"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) FindValidDiscountCode(ctx context.Context, code string, serverID int) (*models.DiscountCode, error) {
	args := m.Called(ctx, code, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DiscountCode), args.Error(1)
}
func (m *RepoMock) CountDiscountCodeUsages(ctx context.Context, codeID int) (int, error) {
	args := m.Called(ctx, codeID)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) HasUserUsedDiscountCode(ctx context.Context, codeID, userID int) (bool, error) {
	args := m.Called(ctx, codeID, userID)
	return args.Bool(0), args.Error(1)
}
func (m *RepoMock) CreateDiscountCode(ctx context.Context, code models.DiscountCode) (int, error) {
	args := m.Called(ctx, code)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) GetDiscountCode(ctx context.Context, id int) (*models.DiscountCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DiscountCode), args.Error(1)
}
func (m *RepoMock) ListDiscountCodes(ctx context.Context) ([]*models.DiscountCode, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DiscountCode), args.Error(1)
}
func (m *RepoMock) RemoveDiscountCode(ctx context.Context, id int) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) GetServer(ctx context.Context, id int) (*models.Server, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Server), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestService_Evaluate(t *testing.T) {
	validCode := &models.DiscountCode{
		ID:             5,
		Code:           "SAVE10",
		DiscountAmount: 10,
		MaxUses:        3,
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	}

	tests := []struct {
		name       string
		setupMock  func(*RepoMock)
		wantAmount int
		wantErr    error
	}{
		{
			name: "валидный код возвращает сумму скидки",
			setupMock: func(m *RepoMock) {
				m.On("FindValidDiscountCode", mock.Anything, "SAVE10", 7).Return(validCode, nil)
				m.On("CountDiscountCodeUsages", mock.Anything, 5).Return(1, nil)
				m.On("HasUserUsedDiscountCode", mock.Anything, 5, 1).Return(false, nil)
			},
			wantAmount: 10,
		},
		{
			name: "несуществующий или просроченный код",
			setupMock: func(m *RepoMock) {
				m.On("FindValidDiscountCode", mock.Anything, "SAVE10", 7).
					Return(nil, fmt.Errorf("storage.FindValidDiscountCode: %w", repository.ErrNotFound))
			},
			wantErr: ErrInvalidOrExpiredCode,
		},
		{
			name: "лимит использований исчерпан",
			setupMock: func(m *RepoMock) {
				m.On("FindValidDiscountCode", mock.Anything, "SAVE10", 7).Return(validCode, nil)
				m.On("CountDiscountCodeUsages", mock.Anything, 5).Return(3, nil)
			},
			wantErr: ErrMaxUsesReached,
		},
		{
			name: "пользователь уже применял код",
			setupMock: func(m *RepoMock) {
				m.On("FindValidDiscountCode", mock.Anything, "SAVE10", 7).Return(validCode, nil)
				m.On("CountDiscountCodeUsages", mock.Anything, 5).Return(1, nil)
				m.On("HasUserUsedDiscountCode", mock.Anything, 5, 1).Return(true, nil)
			},
			wantErr: ErrCodeAlreadyUsed,
		},
		{
			name: "ошибка хранилища пробрасывается как есть",
			setupMock: func(m *RepoMock) {
				m.On("FindValidDiscountCode", mock.Anything, "SAVE10", 7).
					Return(nil, errors.New("db down"))
			},
			wantErr: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repoMock := new(RepoMock)
			tt.setupMock(repoMock)

			svc := New(repoMock, newTestLogger())
			amount, err := svc.Evaluate(context.Background(), 1, 7, "SAVE10")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr.Error(), err.Error())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantAmount, amount)
			}
			repoMock.AssertExpectations(t)
		})
	}
}

func TestService_Generate(t *testing.T) {
	future := time.Now().Add(48 * time.Hour).Format(time.RFC3339)
	past := time.Now().Add(-time.Hour).Format(time.RFC3339)

	tests := []struct {
		name      string
		req       models.DummyDiscountCode
		setupMock func(*RepoMock)
		wantErr   error
	}{
		{
			name: "глобальный код без сервера",
			req:  models.DummyDiscountCode{DiscountAmount: 10, ExpiresAt: future, MaxUses: 1},
			setupMock: func(m *RepoMock) {
				m.On("CreateDiscountCode", mock.Anything, mock.MatchedBy(func(c models.DiscountCode) bool {
					return c.ServerID == nil && len(c.Code) == 8 && c.DiscountAmount == 10
				})).Return(11, nil)
			},
		},
		{
			name: "код для существующего сервера",
			req:  models.DummyDiscountCode{ServerID: 7, DiscountAmount: 5, ExpiresAt: future, MaxUses: 2},
			setupMock: func(m *RepoMock) {
				m.On("GetServer", mock.Anything, 7).Return(&models.Server{ID: 7, Name: "eu-1"}, nil)
				m.On("CreateDiscountCode", mock.Anything, mock.MatchedBy(func(c models.DiscountCode) bool {
					return c.ServerID != nil && *c.ServerID == 7
				})).Return(12, nil)
			},
		},
		{
			name: "сервер не найден",
			req:  models.DummyDiscountCode{ServerID: 99, DiscountAmount: 5, ExpiresAt: future, MaxUses: 2},
			setupMock: func(m *RepoMock) {
				m.On("GetServer", mock.Anything, 99).
					Return(nil, fmt.Errorf("storage.GetServer: %w", repository.ErrNotFound))
			},
			wantErr: ErrServerNotFound,
		},
		{
			name:      "дата истечения в прошлом",
			req:       models.DummyDiscountCode{DiscountAmount: 5, ExpiresAt: past, MaxUses: 1},
			setupMock: func(_ *RepoMock) {},
			wantErr:   ErrExpiryInPast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repoMock := new(RepoMock)
			tt.setupMock(repoMock)

			svc := New(repoMock, newTestLogger())
			code, err := svc.Generate(context.Background(), 1, tt.req)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Len(t, code.Code, 8)
			}
			repoMock.AssertExpectations(t)
		})
	}
}
