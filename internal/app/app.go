package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/cox101/Savannah-Microservice/internal/cache"
	"github.com/cox101/Savannah-Microservice/internal/config"
	"github.com/cox101/Savannah-Microservice/internal/customer"
	"github.com/cox101/Savannah-Microservice/internal/httpapi"
	"github.com/cox101/Savannah-Microservice/internal/messaging"
	"github.com/cox101/Savannah-Microservice/internal/notifier"
	"github.com/cox101/Savannah-Microservice/internal/order"
	"github.com/cox101/Savannah-Microservice/internal/sms"
	"github.com/cox101/Savannah-Microservice/internal/storage"
)

type App struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Store
	rdb       *redis.Client
	publisher messaging.Publisher
	outbox    *messaging.OutboxDispatcher
	consumer  *messaging.Consumer
	worker    *notifier.Worker
	httpSrv   *http.Server
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	customerRepo := customer.NewPostgresRepository(store.Pool())
	orderRepo := order.NewPostgresRepository(store.Pool())

	customerSvc := customer.NewService(customerRepo, cfg.CountryPrefix, logger)
	orderSvc := order.NewService(orderRepo, customerRepo, logger)

	publisher, err := messaging.NewRabbitPublisher(cfg.RabbitURL, cfg.NotificationsExchange)
	if err != nil {
		store.Close()
		return nil, err
	}

	consumer, err := messaging.NewRabbitConsumer(cfg.RabbitURL, cfg.NotificationsExchange, cfg.NotificationsQueue, cfg.OutboxBatchSize, logger)
	if err != nil {
		store.Close()
		publisher.Close()
		return nil, err
	}

	var (
		rdb               *redis.Client
		notificationCache cache.NotificationCache
	)
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		notificationCache = cache.NewRedisCache(rdb, cfg.Redis.TTL)
	}

	smsClient := sms.NewClient(sms.Options{
		BaseURL:  cfg.SMS.BaseURL,
		Username: cfg.SMS.Username,
		APIKey:   cfg.SMS.APIKey,
		SenderID: cfg.SMS.SenderID,
		Sandbox:  cfg.SMS.Sandbox,
	}, logger)

	worker := notifier.New(notifier.NewPostgresStore(store.Pool()), smsClient, notificationCache, cfg.CountryPrefix, logger)

	api := httpapi.NewServer(customerSvc, orderSvc, cfg.AuthSecret, logger)
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api,
	}

	outbox := messaging.NewOutboxDispatcher(store.Pool(), publisher, cfg.OutboxInterval, cfg.OutboxBatchSize, logger)

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		rdb:       rdb,
		publisher: publisher,
		outbox:    outbox,
		consumer:  consumer,
		worker:    worker,
		httpSrv:   httpSrv,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	a.outbox.Start(ctx)

	go func() {
		errCh <- a.consumer.Start(ctx, a.worker.Handle)
	}()

	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.HTTPAddr)
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) Close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownGracePeriod)
	defer cancel()
	_ = a.httpSrv.Shutdown(shutdownCtx)
	a.consumer.Close()
	a.publisher.Close()
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	a.store.Close()
}

func Run() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close(ctx)

	return app.Run(ctx)
}
