package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/consumer"
	deliveryhttp "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/delivery/http"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/kafka"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/rabbitmq"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/watermill"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/notify"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/outbox"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/postgres"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/redis"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Storefront stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("Storefront stopped")
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

// stores groups the repositories of the selected storage driver.
type stores struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	orders     repository.OrderRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	outbox     repository.OutboxStore
	close      func() error
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.StorageDriver == config.StorageMemory {
		m := memory.New()
		slog.Info("Using in-memory storage")
		return &stores{
			categories: m.Categories(),
			products:   m.Products(),
			orders:     m.Orders(),
			comments:   m.Comments(),
			users:      m.Users(),
			outbox:     m.Outbox(),
			close:      func() error { return nil },
		}, nil
	}

	db, err := postgres.InitDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	slog.Info("Connected to Postgres")
	return &stores{
		categories: postgres.NewCategoryRepository(db),
		products:   postgres.NewProductRepository(db),
		orders:     postgres.NewOrderRepository(db),
		comments:   postgres.NewCommentRepository(db),
		users:      postgres.NewUserRepository(db),
		outbox:     postgres.NewOutboxStore(db),
		close:      db.Close,
	}, nil
}

// openSessionStores returns Redis-backed stores when REDIS_URL is set.
func openSessionStores(ctx context.Context, cfg config.Config) (repository.SessionStore, repository.RankingStore, func() error, error) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, keeping sessions and rankings in memory")
		return memory.NewSessionStore(), memory.NewRankingStore(), func() error { return nil }, nil
	}
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	return redis.NewSessionStore(client), redis.NewRankingStore(client), client.Close, nil
}

func openBroker(ctx context.Context, cfg config.Config) (messaging.Broker, error) {
	slog.Info("Connecting message broker", "broker", cfg.MessageBroker)
	switch cfg.MessageBroker {
	case config.BrokerKafka:
		return kafka.NewKafkaBroker(cfg.KafkaBrokers), nil
	case config.BrokerWatermillKafka:
		return watermill.NewKafka(cfg.KafkaBrokers, slog.Default())
	case config.BrokerRabbitMQ:
		return rabbitmq.Dial(ctx, cfg.RabbitMQURL)
	default:
		return watermill.NewGoChannel(slog.Default()), nil
	}
}

func newMailer(cfg config.Config) notify.Mailer {
	if cfg.SMTPHost == "" {
		return notify.LogMailer{}
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailHostUser,
	})
}

func run(ctx context.Context, cfg config.Config) error {
	// --- Storage ---
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if cfg.SeedCatalog {
		if err := st.products.Seed(ctx, seedCategories, seedProducts); err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
	}

	sessions, ranking, closeSessions, err := openSessionStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	// --- Messaging ---
	broker, err := openBroker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open message broker: %w", err)
	}
	defer broker.Close()

	// --- Services & HTTP API ---
	orderSvc := service.NewOrderService(st.orders, cfg.OrderMaxAttempts)
	catalogSvc := service.NewCatalogService(st.categories, st.products, st.comments, ranking, cfg.PageSize)
	userSvc := service.NewUserService(st.users, sessions, broker, cfg.SessionTTL)
	handler := deliveryhttp.NewHandler(orderSvc, catalogSvc, userSvc, cfg.SessionTTL)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	relay := outbox.NewRelay(st.outbox, broker, cfg.OutboxPollInterval, cfg.OutboxBatchSize)

	// --- Start everything ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return relay.Run(gctx) })

	g.Go(func() error {
		return consumer.Run(gctx, broker,
			consumer.Route{
				Topic:   entity.TopicUsersRegistered,
				GroupID: "storefront-mailer",
				Handler: consumer.NewWelcomeEmail(newMailer(cfg)).Handle,
			},
			consumer.Route{
				Topic:   entity.TopicOrdersPlaced,
				GroupID: "storefront-bestsellers",
				Handler: consumer.NewBestsellers(ranking).Handle,
			},
		)
	})

	g.Go(func() error {
		slog.Info("🚀 HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
