// Package auth содержит бизнес-логику регистрации, подтверждения email
// и аутентификации пользователей.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avdeevsm/servergate/internal/lib/jwt"
	"github.com/avdeevsm/servergate/internal/lib/password"
	"github.com/avdeevsm/servergate/internal/models"
	"github.com/avdeevsm/servergate/internal/storage/repository"
)

// Ошибки аутентификации и подтверждения email.
var (
	ErrUserExists          = errors.New("username or email already taken")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailNotVerified    = errors.New("email is not verified")
	ErrInvalidVerification = errors.New("invalid or already used verification token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его ID.
	RegisterUser(ctx context.Context, user models.User) (int, error)

	// GetUserByUsername возвращает пользователя по имени или ошибку, если не найден.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByEmail возвращает пользователя по email или ошибку, если не найден.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// ConsumeVerificationToken однократно подтверждает email по токену.
	ConsumeVerificationToken(ctx context.Context, token string) (int, error)

	// UpdateVerificationToken выдаёт пользователю новый токен подтверждения.
	UpdateVerificationToken(ctx context.Context, userID int, token string) error

	// UpdateLastLogin фиксирует время последнего входа.
	UpdateLastLogin(ctx context.Context, userID int, at time.Time) error
}

// MailPublisher отправляет письмо подтверждения в очередь доставки.
type MailPublisher interface {
	PublishVerificationEmail(msg models.VerificationEmail) error
}

// TokenStore хранит refresh-токены с TTL.
type TokenStore interface {
	Set(key string, value any, expiration time.Duration) error
	Get(key string, result any) (bool, error)
	Invalidate(key string) error
}

// Service отвечает за регистрацию, подтверждение email, вход и обновление токенов.
type Service struct {
	users      UserRepository
	mail       MailPublisher
	tokens     TokenStore
	jwtMaker   jwt.Maker
	refreshTTL time.Duration
	log        *slog.Logger
}

// New создает новый экземпляр Service.
func New(users UserRepository, mail MailPublisher, tokens TokenStore,
	jwtMaker jwt.Maker, refreshTTL time.Duration, log *slog.Logger) *Service {
	return &Service{
		users:      users,
		mail:       mail,
		tokens:     tokens,
		jwtMaker:   jwtMaker,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

// Register создает нового пользователя с хэшированием пароля и дефолтной
// ролью "user", затем ставит письмо подтверждения в очередь отправки.
// Уникальность имени и email обеспечивается ограничениями базы.
func (s *Service) Register(ctx context.Context, email, username, rawPassword string) (int, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return 0, err
	}
	token := uuid.NewString()
	user := models.User{
		Email:             email,
		Username:          username,
		PasswordHash:      hashed,
		Role:              "user", // дефолтная роль при регистрации
		IsVerified:        false,
		VerificationToken: &token,
	}
	id, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return 0, ErrUserExists
		}
		return 0, err
	}

	if err := s.mail.PublishVerificationEmail(models.VerificationEmail{
		Email:    email,
		Username: username,
		Token:    token,
	}); err != nil {
		// Пользователь уже создан, письмо можно запросить повторно
		// через resend-verification.
		s.log.Error("failed to enqueue verification email",
			slog.Int("user_id", id), slog.String("email", email))
	}
	return id, nil
}

// VerifyEmail подтверждает email по токену из письма. Токен одноразовый.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidVerification
	}
	_, err := s.users.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidVerification
		}
		return err
	}
	return nil
}

// ResendVerification выдаёт пользователю новый токен подтверждения и
// ставит письмо в очередь. Для уже подтверждённых адресов ничего не делает.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Не раскрываем наличие адреса в базе.
			return nil
		}
		return err
	}
	if user.IsVerified {
		return nil
	}

	token := uuid.NewString()
	if err := s.users.UpdateVerificationToken(ctx, user.ID, token); err != nil {
		return err
	}
	return s.mail.PublishVerificationEmail(models.VerificationEmail{
		Email:    user.Email,
		Username: user.Username,
		Token:    token,
	})
}

// Login проверяет пароль пользователя и генерирует пару токенов.
// Вход разрешён только после подтверждения email.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (token, refresh, role string, err error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", "", ErrInvalidCredentials
		}
		return "", "", "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", "", "", ErrInvalidCredentials
	}
	if !user.IsVerified {
		return "", "", "", ErrEmailNotVerified
	}

	token, refresh, err = s.issueTokens(user)
	if err != nil {
		return "", "", "", err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.log.Error("failed to update last login", slog.Int("user_id", user.ID))
	}
	return token, refresh, user.Role, nil
}

// Refresh обменивает refresh-токен на новую пару токенов. Старый токен
// инвалидируется, повторное использование невозможно.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (token, refresh string, err error) {
	var username string
	found, err := s.tokens.Get(refreshKey(refreshToken), &username)
	if err != nil {
		return "", "", err
	}
	if !found {
		return "", "", ErrInvalidRefreshToken
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrInvalidRefreshToken
		}
		return "", "", err
	}

	if err := s.tokens.Invalidate(refreshKey(refreshToken)); err != nil {
		return "", "", err
	}
	return s.issueTokens(user)
}

// Logout инвалидирует refresh-токен пользователя.
func (s *Service) Logout(_ context.Context, refreshToken string) error {
	return s.tokens.Invalidate(refreshKey(refreshToken))
}

// ValidateToken проверяет JWT и возвращает claims пользователя.
func (s *Service) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.jwtMaker.ParseToken(token)
}

func (s *Service) issueTokens(user *models.User) (token, refresh string, err error) {
	token, err = s.jwtMaker.GenerateToken(user.Username, user.Role, user.ID)
	if err != nil {
		return "", "", err
	}
	refresh = uuid.NewString()
	if err := s.tokens.Set(refreshKey(refresh), user.Username, s.refreshTTL); err != nil {
		return "", "", err
	}
	return token, refresh, nil
}

func refreshKey(token string) string {
	return fmt.Sprintf("refresh:%s", token)
}
