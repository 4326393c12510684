// Package available реализует HTTP-обработчик списка серверов, доступных для подписки.
package available

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/avdeevsm/servergate/internal/http/middlewarectx"
	"github.com/avdeevsm/servergate/internal/http/response"
	"github.com/avdeevsm/servergate/internal/lib/sl"
	"github.com/avdeevsm/servergate/internal/models"
)

// Service описывает интерфейс выборки доступных серверов.
type Service interface {
	AvailableServers(ctx context.Context, userID int) ([]*models.Server, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Серверы, доступные для подписки
// @Description Возвращает серверы, на которые у текущего пользователя нет активной подписки.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} map[string]any "Список доступных серверов"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions/available [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.available"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := r.Context().Value(middlewarectx.UserID).(int)
	if !ok || userID == 0 {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	servers, err := h.service.AvailableServers(r.Context(), userID)
	if err != nil {
		log.Error("failed to list available servers", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list available servers"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"servers": servers,
		"count":   len(servers),
	}))
}
