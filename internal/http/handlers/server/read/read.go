// Package read реализует HTTP-обработчик чтения сервера по ID.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/avdeevsm/servergate/internal/http/response"
	"github.com/avdeevsm/servergate/internal/lib/sl"
	"github.com/avdeevsm/servergate/internal/models"
	"github.com/avdeevsm/servergate/internal/services/server"
)

// Service описывает интерфейс чтения сервера.
type Service interface {
	Read(ctx context.Context, id int) (*models.Server, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получить сервер
// @Description Возвращает сервер каталога по ID.
// @Tags Servers
// @Produce  json
// @Param id path int true "ID сервера"
// @Success 200 {object} map[string]any "Данные сервера"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 404 {object} response.ErrorResponse "Сервер не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /servers/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.server.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("invalid id format", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	srv, err := h.service.Read(r.Context(), id)
	if err != nil {
		if errors.Is(err, server.ErrServerNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("server not found"))
			return
		}
		log.Error("failed to read server", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to read server"))
		return
	}

	render.JSON(w, r, response.OKWithData(srv))
}
