// Package remove реализует HTTP-обработчик удаления сервера из каталога.
//
// Вместе с сервером каскадно удаляются его подписки.
package remove

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
	"github.com/avdeevsm/servergate/internal/services/server"
)

// Service описывает интерфейс удаления сервера.
type Service interface {
	Remove(ctx context.Context, id int) error
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить сервер
// @Description Удаляет сервер из каталога вместе с его подписками. Доступно только администратору.
// @Tags Servers
// @Produce  json
// @Param id path int true "ID сервера"
// @Success 200 {object} response.Response "Сервер удалён"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Сервер не найден"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /servers/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.server.remove"

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

	if err := h.service.Remove(r.Context(), id); err != nil {
		if errors.Is(err, server.ErrServerNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("server not found"))
			return
		}
		log.Error("failed to remove server", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to remove server"))
		return
	}

	log.Info("server removed", slog.Int("id", id))
	render.JSON(w, r, response.OK())
}
