// Package list реализует HTTP-обработчик списка подписок.
//
// Обычный пользователь видит только свои подписки, админ — все с пагинацией.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/avdeevsm/servergate/internal/http/middlewarectx"
	"github.com/avdeevsm/servergate/internal/http/response"
	"github.com/avdeevsm/servergate/internal/lib/sl"
	"github.com/avdeevsm/servergate/internal/models"
)

// Service описывает интерфейс чтения подписок.
type Service interface {
	ListForUser(ctx context.Context, userID int) ([]*models.SubscriptionInfo, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.SubscriptionInfo, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список подписок
// @Description Возвращает подписки текущего пользователя. Для роли admin возвращает все подписки с пагинацией.
// @Tags Subscriptions
// @Produce  json
// @Param limit query int false "Размер страницы (только для admin)"
// @Param offset query int false "Смещение (только для admin)"
// @Success 200 {object} map[string]any "Список подписок"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscriptions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.list"

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
	role, _ := r.Context().Value(middlewarectx.Role).(string)

	var (
		subs []*models.SubscriptionInfo
		err  error
	)
	if role == "admin" {
		limit, lerr := strconv.Atoi(r.URL.Query().Get("limit"))
		if lerr != nil || limit <= 0 {
			limit = 10
		}
		offset, oerr := strconv.Atoi(r.URL.Query().Get("offset"))
		if oerr != nil || offset < 0 {
			offset = 0
		}
		subs, err = h.service.ListAll(r.Context(), limit, offset)
	} else {
		subs, err = h.service.ListForUser(r.Context(), userID)
	}
	if err != nil {
		log.Error("failed to list subscriptions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list subscriptions"))
		return
	}

	log.Info("success to list subscriptions", slog.Int("count", len(subs)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscriptions": subs,
		"count":         len(subs),
	}))
}
