package subscription

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/avdeevsm/servergate/internal/models"
	"github.com/avdeevsm/servergate/internal/paymentprovider"
	"github.com/avdeevsm/servergate/internal/storage/repository"
)

// ErrBadMetadata возвращается, когда metadata события не содержит
// корректных данных покупки. Такие события подтверждаются без обработки,
// повторная доставка их не исправит.
var ErrBadMetadata = errors.New("malformed checkout metadata")

// ProcessEvent обрабатывает событие платёжного провайдера. Единственный
// источник правды о покупке — metadata, записанная при создании сессии.
// Повторная доставка одного и того же события безопасна: дедупликация
// выполняется в хранилище по ID события.
func (s *Service) ProcessEvent(ctx context.Context, event *paymentprovider.Event) error {
	if event.Type != paymentprovider.EventCheckoutCompleted {
		s.log.Debug("ignoring event", slog.String("type", event.Type))
		return nil
	}

	meta, err := parseCheckoutMetadata(event.Data.Object.Metadata)
	if err != nil {
		s.log.Error("checkout event with malformed metadata",
			slog.String("event_id", event.ID))
		return err
	}

	var discountCodeID *int
	if meta.DiscountCode != "" {
		dc, err := s.repo.GetDiscountCodeByCode(ctx, meta.DiscountCode)
		switch {
		case err == nil:
			discountCodeID = &dc.ID
		case errors.Is(err, repository.ErrNotFound):
			// Код удалили между оплатой и вебхуком: подписка всё равно
			// оформляется, теряется только запись об использовании.
			s.log.Warn("discount code vanished before reconciliation",
				slog.String("code", meta.DiscountCode),
				slog.String("event_id", event.ID))
		default:
			return err
		}
	}

	now := time.Now().UTC()
	sub := models.Subscription{
		UserID:    meta.UserID,
		ServerID:  meta.ServerID,
		StartDate: now,
		ExpiresAt: now.AddDate(0, meta.Months, 0),
		Paid:      true,
		ViaCoupon: meta.ViaCoupon,
	}

	created, err := s.repo.ReconcileCheckout(ctx, event.ID, sub, discountCodeID)
	if err != nil {
		return err
	}
	if !created {
		s.log.Info("duplicate checkout event ignored", slog.String("event_id", event.ID))
		return nil
	}

	s.log.Info("subscription activated",
		slog.String("event_id", event.ID),
		slog.Int("user_id", meta.UserID),
		slog.Int("server_id", meta.ServerID),
		slog.Time("expires_at", sub.ExpiresAt))
	return nil
}

// parseCheckoutMetadata восстанавливает данные покупки из metadata сессии.
func parseCheckoutMetadata(raw map[string]string) (models.CheckoutMetadata, error) {
	userID, errUser := strconv.Atoi(raw["user_id"])
	serverID, errServer := strconv.Atoi(raw["server_id"])
	months, errMonths := strconv.Atoi(raw["months"])
	if errUser != nil || errServer != nil || errMonths != nil || months <= 0 {
		return models.CheckoutMetadata{}, ErrBadMetadata
	}
	return models.CheckoutMetadata{
		UserID:       userID,
		ServerID:     serverID,
		Months:       months,
		DiscountCode: raw["discount_code"],
		ViaCoupon:    raw["via_coupon"] == "true",
	}, nil
}
