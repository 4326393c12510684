// Package create реализует HTTP-обработчик генерации кода скидки.
//
// Код генерируется случайным образом, привязывается к серверу или действует
// глобально и ограничен сроком и числом использований.
package create

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
)

// Service описывает интерфейс генерации кодов скидок.
type Service interface {
	Generate(ctx context.Context, createdBy int, req models.DummyDiscountCode) (*models.DiscountCode, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Сгенерировать код скидки
// @Description Создает новый код скидки с привязкой к серверу или глобальный. Доступно только администратору.
// @Tags Discounts
// @Accept  json
// @Produce  json
// @Param request body models.DummyDiscountCode true "Параметры кода скидки"
// @Success 200 {object} map[string]any "Код создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или параметры"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Сервер не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /discount-codes [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.discount.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyDiscountCode
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
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

	userID, ok := r.Context().Value(middlewarectx.UserID).(int)
	if !ok || userID == 0 {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	code, err := h.service.Generate(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, discount.ErrServerNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("server not found"))
		case errors.Is(err, discount.ErrExpiryInPast):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("expiry date must be in the future"))
		case errors.Is(err, discount.ErrBadExpiryFormat):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("expiry date must be in RFC3339 format"))
		default:
			log.Error("failed to generate discount code", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to generate discount code"))
		}
		return
	}

	log.Info("discount code generated", slog.Int("id", code.ID), slog.String("code", code.Code))
	render.JSON(w, r, response.OKWithData(code))
}
