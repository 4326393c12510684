// Package servergate собирает HTTP-приложение: хранилище, кэш, очередь,
// сервисы и маршруты.
package servergate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/avdeevsm/servergate/internal/cache"
	"github.com/avdeevsm/servergate/internal/config"
	"github.com/avdeevsm/servergate/internal/lib/jwt"
	"github.com/avdeevsm/servergate/internal/migrations"
	"github.com/avdeevsm/servergate/internal/paymentprovider"
	"github.com/avdeevsm/servergate/internal/rabbitmq"
	authservice "github.com/avdeevsm/servergate/internal/services/auth"
	discountservice "github.com/avdeevsm/servergate/internal/services/discount"
	serverservice "github.com/avdeevsm/servergate/internal/services/server"
	subservice "github.com/avdeevsm/servergate/internal/services/subscription"
	userservice "github.com/avdeevsm/servergate/internal/services/user"
	"github.com/avdeevsm/servergate/internal/storage/repository"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}
	if err = repository.CheckDatabaseReady(db); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	mailPublisher := rabbitmq.NewMailPublisher(ch)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	providerClient := paymentprovider.NewClient(cfg.StripeSecretKey)

	authService := authservice.New(db, mailPublisher, cacheRedis, jwtMaker, cfg.RefreshTokenTTL, logger)
	serverService := serverservice.New(db, cacheRedis, logger)
	discountService := discountservice.New(db, logger)
	subscriptionService := subservice.New(db, discountService, providerClient, subservice.PlanConfig{
		PricePerMonth: cfg.PricePerMonth,
		Currency:      cfg.Currency,
		FrontendURL:   cfg.FrontendURL,
	}, logger)
	userService := userservice.New(db)

	router := chi.NewRouter()
	RegisterRoutes(router, logger,
		authService, serverService, discountService, subscriptionService, userService,
		jwtMaker, cfg.StripeWebhookSecret)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		a.ch.Close()
		a.conn.Close()
		return err
	}
}
