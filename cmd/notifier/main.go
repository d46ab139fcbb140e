// Command notifier runs the Click Mart notification engine: the recurring
// weekly and account-summary emails, order-update emails for new products,
// the storefront catalog API and the queue dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/clickmart/modules/queueboard"
	"github.com/dmitrymomot/clickmart/modules/storefront"
	"github.com/dmitrymomot/clickmart/pkg/broadcast"
	"github.com/dmitrymomot/clickmart/pkg/config"
	"github.com/dmitrymomot/clickmart/pkg/email"
	"github.com/dmitrymomot/clickmart/pkg/httpserver"
	"github.com/dmitrymomot/clickmart/pkg/logger"
	"github.com/dmitrymomot/clickmart/pkg/mongo"
	"github.com/dmitrymomot/clickmart/pkg/queue"
	"github.com/dmitrymomot/clickmart/pkg/redis"
	"github.com/dmitrymomot/clickmart/svc/catalog"
	"github.com/dmitrymomot/clickmart/svc/notification"
)

type appConfig struct {
	Env                string        `env:"APP_ENV" envDefault:"development"`
	ServiceName        string        `env:"SERVICE_NAME" envDefault:"clickmart-notifier"`
	HealthcheckTimeout time.Duration `env:"HEALTHCHECK_TIMEOUT" envDefault:"3s"`
	BestSellersTZ      string        `env:"BEST_SELLERS_TZ" envDefault:"UTC"`
	EventBuffer        int           `env:"PRODUCT_EVENT_BUFFER" envDefault:"64"`
	PublishTimeout     time.Duration `env:"PRODUCT_EVENT_PUBLISH_TIMEOUT" envDefault:"5s"`

	Log          logger.Config
	Mongo        mongo.Config
	Redis        redis.Config
	Queue        queue.Config
	HTTP         httpserver.Config
	Email        email.Config
	Notification notification.Config
}

func main() {
	if err := run(); err != nil {
		slog.Error("notifier stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.ServiceName),
		logger.WithConfig(cfg.Log),
	)
	logger.SetAsDefault(log)

	loc, err := time.LoadLocation(cfg.BestSellersTZ)
	if err != nil {
		return fmt.Errorf("best sellers time zone: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongo.New(ctx, cfg.Mongo, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error("failed to disconnect mongodb", logger.Error(err))
		}
	}()
	db := mongoClient.Database(cfg.Mongo.Database)

	redisClient, err := redis.Connect(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("failed to close redis", logger.Error(err))
		}
	}()

	storage, err := queue.NewRedisStorage(redisClient, queue.WithKeyPrefix(cfg.Queue.RedisKeyPrefix))
	if err != nil {
		return err
	}

	// The board subscribes to worker events but needs the manager to exist.
	var board atomic.Pointer[queueboard.Board]
	manager, err := queue.NewManager(storage,
		queue.WithLogger(log),
		queue.WithWorkerDefaults(cfg.Queue.WorkerOptions()...),
		queue.WithEventHandler(queue.EventHandlerFunc(func(ctx context.Context, e queue.Event) {
			if b := board.Load(); b != nil {
				b.HandleEvent(ctx, e)
			}
		})),
	)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Queue.ShutdownTimeout)
		defer cancel()
		if err := manager.Close(closeCtx); err != nil {
			log.Error("failed to stop queue workers", logger.Error(err))
		}
	}()

	sender, err := email.NewSender(cfg.Email, log)
	if err != nil {
		return err
	}

	bus := broadcast.NewMemoryBroadcaster[catalog.ProductCreated](cfg.EventBuffer,
		broadcast.WithLogger(log),
		broadcast.WithName("product-created"),
		broadcast.WithBlockingDelivery(),
	)
	defer func() { _ = bus.Close() }()

	catalogSvc := catalog.NewService(catalog.NewMongoRepository(db), bus,
		catalog.WithLogger(log),
		catalog.WithLocation(loc),
		catalog.WithPublishTimeout(cfg.PublishTimeout),
	)

	notifier := notification.NewService(manager, notification.NewMongoRepository(db), sender,
		notification.WithConfig(cfg.Notification),
		notification.WithLogger(log),
	)

	b := queueboard.New(manager,
		queueboard.WithQueues(notification.WeeklyQueue, notification.AccountSummaryQueue, notification.OrderUpdatesQueue),
		queueboard.WithLogger(log),
	)
	board.Store(b)
	if err := b.Discover(ctx); err != nil {
		log.Warn("failed to discover queues", logger.Error(err))
	}

	if err := notifier.Initialize(ctx); err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(log, cfg.HealthcheckTimeout,
		httpserver.Check{Name: "mongodb", Fn: mongo.Healthcheck(mongoClient)},
		httpserver.Check{Name: "redis", Fn: redis.Healthcheck(redisClient)},
	))
	r.Mount("/api", storefront.NewRouter(catalogSvc,
		storefront.WithNotificationSettings(notifier),
		storefront.WithLogger(log),
	))
	r.Mount("/admin/queues", b.Handle())

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, r)
	})
	g.Go(func() error {
		err := notifier.ListenProductEvents(gctx, bus)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	log.Info("notifier started", slog.String("addr", cfg.HTTP.Addr))
	return g.Wait()
}
