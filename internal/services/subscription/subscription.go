// Package subscription содержит бизнес-логику жизненного цикла подписки:
// проверку покупки, расчёт цены, создание checkout-сессии у платёжного
// провайдера и финализацию подписки после подтверждения оплаты.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/avdeevsm/servergate/internal/models"
	"github.com/avdeevsm/servergate/internal/paymentprovider"
	"github.com/avdeevsm/servergate/internal/storage/repository"
)

// Ошибки оформления подписки. Каждая причина отказа сообщается клиенту отдельно.
var (
	ErrServerNotFound    = errors.New("server not found")
	ErrInvalidDuration   = errors.New("months must be 1, 3, 6 or 12")
	ErrAlreadySubscribed = errors.New("active subscription for this server already exists")
	ErrInvalidAmount     = errors.New("invalid subscription amount")
)

// allowedMonths — фиксированные тарифные периоды подписки.
var allowedMonths = map[int]bool{1: true, 3: true, 6: true, 12: true}

// PlanConfig — параметры тарификации, собираются на старте процесса
// и передаются в сервис явно.
type PlanConfig struct {
	PricePerMonth int    // Цена за месяц в целых единицах валюты
	Currency      string // Код валюты
	FrontendURL   string // База для success/cancel редиректов
}

// Repository определяет методы хранилища, используемые жизненным циклом подписки.
type Repository interface {
	// GetServer возвращает сервер по ID.
	GetServer(ctx context.Context, id int) (*models.Server, error)
	// HasActiveSubscription проверяет наличие активной подписки на сервер.
	HasActiveSubscription(ctx context.Context, userID, serverID int) (bool, error)
	// ListAvailableServers возвращает серверы без активной подписки пользователя.
	ListAvailableServers(ctx context.Context, userID int) ([]*models.Server, error)
	// ListUserSubscriptions возвращает подписки пользователя.
	ListUserSubscriptions(ctx context.Context, userID int) ([]*models.SubscriptionInfo, error)
	// ListAllSubscriptions возвращает все подписки с пагинацией.
	ListAllSubscriptions(ctx context.Context, limit, offset int) ([]*models.SubscriptionInfo, error)
	// RemoveSubscription удаляет подписку по ID.
	RemoveSubscription(ctx context.Context, id int) (int, error)
	// GetDiscountCodeByCode возвращает код скидки по строковому значению.
	GetDiscountCodeByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	// ReconcileCheckout финализирует оплаченную сессию одной транзакцией.
	ReconcileCheckout(ctx context.Context, eventID string, sub models.Subscription, discountCodeID *int) (bool, error)
}

// DiscountEvaluator проверяет код скидки без его использования.
type DiscountEvaluator interface {
	Evaluate(ctx context.Context, userID, serverID int, code string) (int, error)
}

// Provider создаёт checkout-сессии у платёжного провайдера.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params paymentprovider.CreateSessionParams) (*paymentprovider.CheckoutSession, error)
}

// Service реализует бизнес-логику подписок.
type Service struct {
	repo      Repository
	evaluator DiscountEvaluator
	provider  Provider
	plan      PlanConfig
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, evaluator DiscountEvaluator, provider Provider, plan PlanConfig, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		evaluator: evaluator,
		provider:  provider,
		plan:      plan,
		log:       log,
	}
}

// Initiate проверяет покупку и открывает checkout-сессию у провайдера.
// В базу данных на этом этапе ничего не пишется: единственной записью
// о намерении остаётся сессия, которая либо подтверждается вебхуком,
// либо истекает на стороне провайдера.
func (s *Service) Initiate(ctx context.Context, userID, serverID, months int, discountCode string) (*models.CheckoutSession, error) {
	server, err := s.repo.GetServer(ctx, serverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrServerNotFound
		}
		return nil, err
	}

	if !allowedMonths[months] {
		return nil, ErrInvalidDuration
	}

	subscribed, err := s.repo.HasActiveSubscription(ctx, userID, serverID)
	if err != nil {
		return nil, err
	}
	if subscribed {
		return nil, ErrAlreadySubscribed
	}

	discountAmount := 0
	viaCoupon := false
	if discountCode != "" {
		discountAmount, err = s.evaluator.Evaluate(ctx, userID, serverID, discountCode)
		if err != nil {
			return nil, err
		}
		viaCoupon = true
	}

	basePrice := months * s.plan.PricePerMonth
	finalPrice := basePrice - discountAmount
	if finalPrice < 0 {
		finalPrice = 0
	}
	if finalPrice <= 0 {
		return nil, ErrInvalidAmount
	}

	productName := fmt.Sprintf("%s (%d month)", server.Name, months)
	if months > 1 {
		productName = fmt.Sprintf("%s (%d months)", server.Name, months)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, paymentprovider.CreateSessionParams{
		ProductName: productName,
		AmountCents: int64(finalPrice) * 100,
		Currency:    s.plan.Currency,
		SuccessURL:  s.plan.FrontendURL + "/subscription/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   s.plan.FrontendURL + "/subscription/cancel",
		Metadata: map[string]string{
			"user_id":       strconv.Itoa(userID),
			"server_id":     strconv.Itoa(serverID),
			"months":        strconv.Itoa(months),
			"discount_code": discountCode,
			"via_coupon":    strconv.FormatBool(viaCoupon),
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout session created",
		slog.String("session_id", session.ID),
		slog.Int("user_id", userID),
		slog.Int("server_id", serverID),
		slog.Int("amount", finalPrice))

	return &models.CheckoutSession{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
		ExpiresAt:   time.Unix(session.ExpiresAt, 0).UTC(),
		Amount:      finalPrice,
		Currency:    s.plan.Currency,
	}, nil
}

// AvailableServers возвращает серверы, на которые у пользователя ещё нет
// активной подписки.
func (s *Service) AvailableServers(ctx context.Context, userID int) ([]*models.Server, error) {
	return s.repo.ListAvailableServers(ctx, userID)
}

// ListForUser возвращает подписки пользователя с данными серверов.
func (s *Service) ListForUser(ctx context.Context, userID int) ([]*models.SubscriptionInfo, error) {
	return s.repo.ListUserSubscriptions(ctx, userID)
}

// ListAll возвращает все подписки с данными пользователей и серверов.
func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]*models.SubscriptionInfo, error) {
	return s.repo.ListAllSubscriptions(ctx, limit, offset)
}

// Cancel удаляет подписку по ID и возвращает количество удалённых записей.
func (s *Service) Cancel(ctx context.Context, id int) (int, error) {
	count, err := s.repo.RemoveSubscription(ctx, id)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info("subscription cancelled", slog.Int("id", id))
	}
	return count, nil
}
