// Package subscribe реализует HTTP-обработчик оформления подписки на сервер.
//
// Handler принимает JSON-запрос с ID сервера, сроком и необязательным кодом скидки,
// валидирует их, извлекает ID пользователя из контекста и открывает checkout-сессию
// у платёжного провайдера. Подписка активируется позже, после подтверждения оплаты
// вебхуком.
package subscribe

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/avdeevsm/servergate/internal/http/middlewarectx"
	"github.com/avdeevsm/servergate/internal/http/response"
	"github.com/avdeevsm/servergate/internal/lib/sl"
	"github.com/avdeevsm/servergate/internal/models"
	"github.com/avdeevsm/servergate/internal/services/discount"
	"github.com/avdeevsm/servergate/internal/services/subscription"
)

// Handler управляет HTTP-запросами на оформление подписки.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики подписок
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики оформления подписки.
type Service interface {
	Initiate(ctx context.Context, userID, serverID, months int, discountCode string) (*models.CheckoutSession, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Оформить подписку на сервер
// @Description Проверяет покупку и открывает checkout-сессию у платёжного провайдера.
// @Description Возвращает URL для оплаты. Подписка активируется после подтверждения оплаты.
// @Tags Subscriptions
// @Accept  json
// @Produce  json
// @Param request body models.DummySubscribe true "Параметры подписки"
// @Success 200 {object} map[string]any "Сессия оплаты создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или параметры покупки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Сервер не найден"
// @Failure 409 {object} response.ErrorResponse "Подписка уже активна"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при создании сессии"
// @Router /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.subscribe"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummySubscribe
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.Any("request", req))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	userID, ok := r.Context().Value(middlewarectx.UserID).(int)
	if !ok || userID == 0 {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	session, err := h.service.Initiate(r.Context(), userID, req.ServerID, req.Months, req.DiscountCode)
	if err != nil {
		h.writeInitiateError(w, r, log, err)
		return
	}

	log.Info("checkout session created", slog.String("session_id", session.SessionID))
	render.JSON(w, r, response.OKWithData(session))
}

func (h *Handler) writeInitiateError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, subscription.ErrServerNotFound):
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("server not found"))
	case errors.Is(err, subscription.ErrInvalidDuration):
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("months must be 1, 3, 6 or 12"))
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("active subscription for this server already exists"))
	case errors.Is(err, subscription.ErrInvalidAmount):
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid subscription amount"))
	case errors.Is(err, discount.ErrInvalidOrExpiredCode),
		errors.Is(err, discount.ErrMaxUsesReached),
		errors.Is(err, discount.ErrCodeAlreadyUsed):
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error(err.Error()))
	default:
		log.Error("failed to initiate subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not initiate subscription"))
		return
	}
	log.Error("subscription rejected", sl.Err(err))
}
