// Package update реализует HTTP-обработчик обновления сервера каталога.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/avdeevsm/servergate/internal/http/response"
	"github.com/avdeevsm/servergate/internal/lib/sl"
	"github.com/avdeevsm/servergate/internal/models"
	"github.com/avdeevsm/servergate/internal/services/server"
)

// Service описывает интерфейс обновления сервера.
type Service interface {
	Update(ctx context.Context, id int, name string, description *string) error
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
// @Summary Обновить сервер
// @Description Обновляет имя и описание сервера. Новое имя не должно конфликтовать с другими серверами. Доступно только администратору.
// @Tags Servers
// @Accept  json
// @Produce  json
// @Param id path int true "ID сервера"
// @Param request body models.DummyServer true "Новые данные сервера"
// @Success 200 {object} response.Response "Сервер обновлён"
// @Failure 400 {object} response.ErrorResponse "Некорректный ID или JSON"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Сервер не найден"
// @Failure 409 {object} response.ErrorResponse "Имя сервера уже занято"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /servers/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.server.update"

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

	var req models.DummyServer
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.Update(r.Context(), id, req.Name, &req.Description); err != nil {
		switch {
		case errors.Is(err, server.ErrServerNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("server not found"))
		case errors.Is(err, server.ErrServerNameTaken):
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("server name already taken"))
		default:
			log.Error("failed to update server", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to update server"))
		}
		return
	}

	log.Info("server updated", slog.Int("id", id))
	render.JSON(w, r, response.OK())
}
