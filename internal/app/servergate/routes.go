package servergate

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/avdeevsm/servergate/internal/http/handlers/auth/login"
	"github.com/avdeevsm/servergate/internal/http/handlers/auth/logout"
	"github.com/avdeevsm/servergate/internal/http/handlers/auth/refresh"
	"github.com/avdeevsm/servergate/internal/http/handlers/auth/register"
	"github.com/avdeevsm/servergate/internal/http/handlers/auth/resendverification"
	"github.com/avdeevsm/servergate/internal/http/handlers/auth/verifyemail"
	discountcreate "github.com/avdeevsm/servergate/internal/http/handlers/discount/create"
	discountlist "github.com/avdeevsm/servergate/internal/http/handlers/discount/list"
	discountread "github.com/avdeevsm/servergate/internal/http/handlers/discount/read"
	discountremove "github.com/avdeevsm/servergate/internal/http/handlers/discount/remove"
	"github.com/avdeevsm/servergate/internal/http/handlers/health"
	"github.com/avdeevsm/servergate/internal/http/handlers/payment/webhook"
	servercreate "github.com/avdeevsm/servergate/internal/http/handlers/server/create"
	serverlist "github.com/avdeevsm/servergate/internal/http/handlers/server/list"
	serverread "github.com/avdeevsm/servergate/internal/http/handlers/server/read"
	serverremove "github.com/avdeevsm/servergate/internal/http/handlers/server/remove"
	serverupdate "github.com/avdeevsm/servergate/internal/http/handlers/server/update"
	"github.com/avdeevsm/servergate/internal/http/handlers/subscription/available"
	sublist "github.com/avdeevsm/servergate/internal/http/handlers/subscription/list"
	subremove "github.com/avdeevsm/servergate/internal/http/handlers/subscription/remove"
	"github.com/avdeevsm/servergate/internal/http/handlers/subscription/subscribe"
	userlist "github.com/avdeevsm/servergate/internal/http/handlers/user/list"
	userprofile "github.com/avdeevsm/servergate/internal/http/handlers/user/profile"
	"github.com/avdeevsm/servergate/internal/http/middlewarectx"
	"github.com/avdeevsm/servergate/internal/lib/jwt"
	authservice "github.com/avdeevsm/servergate/internal/services/auth"
	discountservice "github.com/avdeevsm/servergate/internal/services/discount"
	serverservice "github.com/avdeevsm/servergate/internal/services/server"
	subservice "github.com/avdeevsm/servergate/internal/services/subscription"
	userservice "github.com/avdeevsm/servergate/internal/services/user"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	authService *authservice.Service,
	serverService *serverservice.Service,
	discountService *discountservice.Service,
	subscriptionService *subservice.Service,
	userService *userservice.Service,
	jwtMaker jwt.Maker,
	webhookSecret string,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/register", register.New(logger, authService).ServeHTTP)
		r.Post("/auth/login", login.New(logger, authService).ServeHTTP)
		r.Post("/auth/refresh", refresh.New(logger, authService).ServeHTTP)
		r.Get("/auth/verify-email", verifyemail.New(logger, authService).ServeHTTP)
		r.Post("/auth/resend-verification", resendverification.New(logger, authService).ServeHTTP)

		// Webhook endpoint (без аутентификации, подпись проверяется в обработчике)
		r.Post("/payments/webhook", webhook.New(logger, subscriptionService, webhookSecret).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, 10, 20))
			r.Post("/auth/logout", logout.New(logger, authService).ServeHTTP)
			r.Get("/users/me", userprofile.New(logger, userService).ServeHTTP)
			r.Get("/servers", serverlist.New(logger, serverService).ServeHTTP)
			r.Get("/servers/{id}", serverread.New(logger, serverService).ServeHTTP)
			r.Post("/subscriptions", subscribe.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions", sublist.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions/available", available.New(logger, subscriptionService).ServeHTTP)

			// Административная группа
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnlyMiddleware(logger))
				r.Post("/servers", servercreate.New(logger, serverService).ServeHTTP)
				r.Put("/servers/{id}", serverupdate.New(logger, serverService).ServeHTTP)
				r.Delete("/servers/{id}", serverremove.New(logger, serverService).ServeHTTP)
				r.Post("/discount-codes", discountcreate.New(logger, discountService).ServeHTTP)
				r.Get("/discount-codes", discountlist.New(logger, discountService).ServeHTTP)
				r.Get("/discount-codes/{id}", discountread.New(logger, discountService).ServeHTTP)
				r.Delete("/discount-codes/{id}", discountremove.New(logger, discountService).ServeHTTP)
				r.Get("/users", userlist.New(logger, userService).ServeHTTP)
				r.Delete("/subscriptions/{id}", subremove.New(logger, subscriptionService).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
