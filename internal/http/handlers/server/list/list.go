// Package list реализует HTTP-обработчик списка серверов каталога.
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

// Service описывает интерфейс чтения каталога серверов.
type Service interface {
	List(ctx context.Context) ([]*models.Server, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список серверов
// @Description Возвращает все серверы каталога.
// @Tags Servers
// @Produce  json
// @Success 200 {object} map[string]any "Список серверов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /servers [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.server.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	servers, err := h.service.List(r.Context())
	if err != nil {
		log.Error("failed to list servers", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list servers"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"servers": servers,
		"count":   len(servers),
	}))
}
