package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avdeevsm/servergate/internal/lib/jwt"
	"github.com/avdeevsm/servergate/internal/lib/password"
	"github.com/avdeevsm/servergate/internal/models"
	"github.com/avdeevsm/servergate/internal/storage/repository"
)

type UsersMock struct {
	mock.Mock
}

func (m *UsersMock) RegisterUser(ctx context.Context, user models.User) (int, error) {
	args := m.Called(ctx, user)
	return args.Int(0), args.Error(1)
}

func (m *UsersMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UsersMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UsersMock) ConsumeVerificationToken(ctx context.Context, token string) (int, error) {
	args := m.Called(ctx, token)
	return args.Int(0), args.Error(1)
}

func (m *UsersMock) UpdateVerificationToken(ctx context.Context, userID int, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *UsersMock) UpdateLastLogin(ctx context.Context, userID int, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

type MailMock struct {
	mock.Mock
}

func (m *MailMock) PublishVerificationEmail(msg models.VerificationEmail) error {
	args := m.Called(msg)
	return args.Error(0)
}

// TokenStoreStub хранит токены в map, чтобы проверять ротацию без Redis.
type TokenStoreStub struct {
	data map[string]string
}

func newTokenStoreStub() *TokenStoreStub {
	return &TokenStoreStub{data: map[string]string{}}
}

func (s *TokenStoreStub) Set(key string, value any, _ time.Duration) error {
	s.data[key] = value.(string)
	return nil
}

func (s *TokenStoreStub) Get(key string, result any) (bool, error) {
	v, ok := s.data[key]
	if !ok {
		return false, nil
	}
	*result.(*string) = v
	return true, nil
}

func (s *TokenStoreStub) Invalidate(key string) error {
	delete(s.data, key)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(users *UsersMock, mail *MailMock, tokens TokenStore) *Service {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	return New(users, mail, tokens, maker, 24*time.Hour, discardLogger())
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("успешная регистрация ставит письмо в очередь", func(t *testing.T) {
		users := new(UsersMock)
		mail := new(MailMock)
		users.On("RegisterUser", ctx, mock.MatchedBy(func(u models.User) bool {
			return u.Username == "alice" && u.Role == "user" && !u.IsVerified &&
				u.VerificationToken != nil && *u.VerificationToken != ""
		})).Return(7, nil)
		mail.On("PublishVerificationEmail", mock.MatchedBy(func(msg models.VerificationEmail) bool {
			return msg.Email == "alice@example.com" && msg.Token != ""
		})).Return(nil)

		svc := newService(users, mail, newTokenStoreStub())
		id, err := svc.Register(ctx, "alice@example.com", "alice", "secret123")

		require.NoError(t, err)
		assert.Equal(t, 7, id)
		users.AssertExpectations(t)
		mail.AssertExpectations(t)
	})

	t.Run("занятое имя или email", func(t *testing.T) {
		users := new(UsersMock)
		mail := new(MailMock)
		users.On("RegisterUser", ctx, mock.Anything).Return(0, repository.ErrAlreadyExists)

		svc := newService(users, mail, newTokenStoreStub())
		_, err := svc.Register(ctx, "alice@example.com", "alice", "secret123")

		require.ErrorIs(t, err, ErrUserExists)
		mail.AssertNotCalled(t, "PublishVerificationEmail")
	})

	t.Run("сбой очереди не отменяет регистрацию", func(t *testing.T) {
		users := new(UsersMock)
		mail := new(MailMock)
		users.On("RegisterUser", ctx, mock.Anything).Return(7, nil)
		mail.On("PublishVerificationEmail", mock.Anything).Return(assert.AnError)

		svc := newService(users, mail, newTokenStoreStub())
		id, err := svc.Register(ctx, "alice@example.com", "alice", "secret123")

		require.NoError(t, err)
		assert.Equal(t, 7, id)
	})
}

func TestService_VerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("токен подтверждён", func(t *testing.T) {
		users := new(UsersMock)
		users.On("ConsumeVerificationToken", ctx, "tok-1").Return(7, nil)

		svc := newService(users, new(MailMock), newTokenStoreStub())
		require.NoError(t, svc.VerifyEmail(ctx, "tok-1"))
	})

	t.Run("неизвестный или использованный токен", func(t *testing.T) {
		users := new(UsersMock)
		users.On("ConsumeVerificationToken", ctx, "tok-1").Return(0, repository.ErrNotFound)

		svc := newService(users, new(MailMock), newTokenStoreStub())
		require.ErrorIs(t, svc.VerifyEmail(ctx, "tok-1"), ErrInvalidVerification)
	})

	t.Run("пустой токен", func(t *testing.T) {
		svc := newService(new(UsersMock), new(MailMock), newTokenStoreStub())
		require.ErrorIs(t, svc.VerifyEmail(ctx, ""), ErrInvalidVerification)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	hash, err := password.GetHash("secret123")
	require.NoError(t, err)

	verifiedUser := func() *models.User {
		return &models.User{ID: 7, Username: "alice", Email: "alice@example.com",
			PasswordHash: hash, Role: "user", IsVerified: true}
	}

	t.Run("успешный вход", func(t *testing.T) {
		users := new(UsersMock)
		users.On("GetUserByUsername", ctx, "alice").Return(verifiedUser(), nil)
		users.On("UpdateLastLogin", ctx, 7, mock.Anything).Return(nil)

		svc := newService(users, new(MailMock), newTokenStoreStub())
		token, refresh, role, err := svc.Login(ctx, "alice", "secret123")

		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.NotEmpty(t, refresh)
		assert.Equal(t, "user", role)
		users.AssertExpectations(t)
	})

	t.Run("неверный пароль", func(t *testing.T) {
		users := new(UsersMock)
		users.On("GetUserByUsername", ctx, "alice").Return(verifiedUser(), nil)

		svc := newService(users, new(MailMock), newTokenStoreStub())
		_, _, _, err := svc.Login(ctx, "alice", "wrong")

		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("пользователь не найден", func(t *testing.T) {
		users := new(UsersMock)
		users.On("GetUserByUsername", ctx, "ghost").Return(nil, repository.ErrNotFound)

		svc := newService(users, new(MailMock), newTokenStoreStub())
		_, _, _, err := svc.Login(ctx, "ghost", "secret123")

		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("email не подтверждён", func(t *testing.T) {
		user := verifiedUser()
		user.IsVerified = false
		users := new(UsersMock)
		users.On("GetUserByUsername", ctx, "alice").Return(user, nil)

		svc := newService(users, new(MailMock), newTokenStoreStub())
		_, _, _, err := svc.Login(ctx, "alice", "secret123")

		require.ErrorIs(t, err, ErrEmailNotVerified)
	})
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()

	hash, err := password.GetHash("secret123")
	require.NoError(t, err)
	user := &models.User{ID: 7, Username: "alice", PasswordHash: hash,
		Role: "user", IsVerified: true}

	t.Run("ротация refresh-токена", func(t *testing.T) {
		users := new(UsersMock)
		users.On("GetUserByUsername", ctx, "alice").Return(user, nil)
		users.On("UpdateLastLogin", ctx, 7, mock.Anything).Return(nil)
		store := newTokenStoreStub()

		svc := newService(users, new(MailMock), store)
		_, refresh, _, err := svc.Login(ctx, "alice", "secret123")
		require.NoError(t, err)

		token2, refresh2, err := svc.Refresh(ctx, refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, token2)
		assert.NotEqual(t, refresh, refresh2)

		// Старый токен больше не принимается.
		_, _, err = svc.Refresh(ctx, refresh)
		require.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("неизвестный refresh-токен", func(t *testing.T) {
		svc := newService(new(UsersMock), new(MailMock), newTokenStoreStub())
		_, _, err := svc.Refresh(ctx, "missing")
		require.ErrorIs(t, err, ErrInvalidRefreshToken)
	})

	t.Run("logout инвалидирует токен", func(t *testing.T) {
		users := new(UsersMock)
		users.On("GetUserByUsername", ctx, "alice").Return(user, nil)
		users.On("UpdateLastLogin", ctx, 7, mock.Anything).Return(nil)
		store := newTokenStoreStub()

		svc := newService(users, new(MailMock), store)
		_, refresh, _, err := svc.Login(ctx, "alice", "secret123")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, refresh))
		_, _, err = svc.Refresh(ctx, refresh)
		require.ErrorIs(t, err, ErrInvalidRefreshToken)
	})
}

func TestService_ResendVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("новый токен и письмо для неподтверждённого адреса", func(t *testing.T) {
		users := new(UsersMock)
		mail := new(MailMock)
		users.On("GetUserByEmail", ctx, "alice@example.com").Return(&models.User{
			ID: 7, Username: "alice", Email: "alice@example.com"}, nil)
		users.On("UpdateVerificationToken", ctx, 7, mock.Anything).Return(nil)
		mail.On("PublishVerificationEmail", mock.Anything).Return(nil)

		svc := newService(users, mail, newTokenStoreStub())
		require.NoError(t, svc.ResendVerification(ctx, "alice@example.com"))
		users.AssertExpectations(t)
		mail.AssertExpectations(t)
	})

	t.Run("подтверждённый адрес пропускается", func(t *testing.T) {
		users := new(UsersMock)
		mail := new(MailMock)
		users.On("GetUserByEmail", ctx, "alice@example.com").Return(&models.User{
			ID: 7, IsVerified: true}, nil)

		svc := newService(users, mail, newTokenStoreStub())
		require.NoError(t, svc.ResendVerification(ctx, "alice@example.com"))
		mail.AssertNotCalled(t, "PublishVerificationEmail")
	})

	t.Run("неизвестный адрес не раскрывается", func(t *testing.T) {
		users := new(UsersMock)
		users.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrNotFound)

		svc := newService(users, new(MailMock), newTokenStoreStub())
		require.NoError(t, svc.ResendVerification(ctx, "ghost@example.com"))
	})
}
