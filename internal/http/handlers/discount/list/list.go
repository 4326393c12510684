// Package list реализует HTTP-обработчик списка кодов скидок.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/avdeevsm/servergate/internal/http/response"
	"github.com/avdeevsm/servergate/internal/lib/sl"
	"github.com/avdeevsm/servergate/internal/models"
)

// Service описывает интерфейс чтения кодов скидок.
type Service interface {
	List(ctx context.Context) ([]*models.DiscountCode, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список кодов скидок
// @Description Возвращает все коды скидок. Доступно только администратору.
// @Tags Discounts
// @Produce  json
// @Success 200 {object} map[string]any "Список кодов"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /discount-codes [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.discount.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	codes, err := h.service.List(r.Context())
	if err != nil {
		log.Error("failed to list discount codes", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list discount codes"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"discount_codes": codes,
		"count":          len(codes),
	}))
}
