// Package verifyemail реализует HTTP-обработчик подтверждения email по токену из письма.
//
// Токен передаётся в query-параметре и одноразов: повторное использование
// возвращает ошибку.
package verifyemail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/avdeevsm/servergate/internal/http/response"
	"github.com/avdeevsm/servergate/internal/lib/sl"
	"github.com/avdeevsm/servergate/internal/services/auth"
)

// Service описывает интерфейс подтверждения email.
type Service interface {
	VerifyEmail(ctx context.Context, token string) error
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Подтверждение email
// @Description Подтверждает адрес электронной почты по одноразовому токену из письма.
// @Tags Auth
// @Produce  json
// @Param token query string true "Токен подтверждения"
// @Success 200 {object} map[string]any "Email подтверждён"
// @Failure 400 {object} response.ErrorResponse "Токен отсутствует или недействителен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/verify-email [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verifyemail"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	if err := h.service.VerifyEmail(r.Context(), token); err != nil {
		if errors.Is(err, auth.ErrInvalidVerification) {
			log.Error("verification token rejected")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid or already used verification token"))
			return
		}
		log.Error("failed to verify email", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("email verified")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "email verified successfully",
	}))
}
