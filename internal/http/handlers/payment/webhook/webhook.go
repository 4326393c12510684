// Package webhook реализует HTTP-обработчик событий платёжного провайдера.
//
// Обработчик проверяет подпись сырого тела запроса, разбирает событие и
// передаёт его сервису подписок. Ответ с кодом 2xx подтверждает доставку,
// любой другой код приводит к повторной доставке события провайдером.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/avdeevsm/servergate/internal/http/response"
	"github.com/avdeevsm/servergate/internal/lib/sl"
	"github.com/avdeevsm/servergate/internal/paymentprovider"
	"github.com/avdeevsm/servergate/internal/services/subscription"
)

// Service описывает интерфейс обработки платёжных событий.
type Service interface {
	ProcessEvent(ctx context.Context, event *paymentprovider.Event) error
}

type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

func New(log *slog.Logger, service Service, webhookSecret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: webhookSecret,
	}
}

// ServeHTTP godoc
// @Summary Вебхук платёжного провайдера
// @Description Принимает события оплаты, проверяет подпись и активирует подписку.
// @Description Повторная доставка события безопасна.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param Stripe-Signature header string true "Подпись тела запроса"
// @Success 200 {object} response.Response "Событие обработано"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или тело запроса"
// @Failure 500 {object} response.ErrorResponse "Ошибка обработки, событие будет доставлено повторно"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if err := paymentprovider.VerifySignature(payload, sigHeader, h.webhookSecret); err != nil {
		log.Error("webhook signature verification failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var event paymentprovider.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Error("failed to decode event", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid event payload"))
		return
	}
	log.Info("webhook event received",
		slog.String("event_id", event.ID),
		slog.String("type", event.Type))

	if err := h.service.ProcessEvent(r.Context(), &event); err != nil {
		// Битую metadata повторная доставка не исправит, событие подтверждается.
		if errors.Is(err, subscription.ErrBadMetadata) {
			log.Error("event acknowledged without processing", sl.Err(err))
			render.JSON(w, r, response.OK())
			return
		}
		log.Error("failed to process event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process event"))
		return
	}

	render.JSON(w, r, response.OK())
}
