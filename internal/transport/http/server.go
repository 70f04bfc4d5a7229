package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"babagram/internal/cache"
	"babagram/internal/config"
	"babagram/internal/database"
	"babagram/internal/handler"
	"babagram/internal/logger"
	"babagram/internal/metrics"
	"babagram/internal/model"
	"babagram/internal/queue"
	"babagram/internal/redis"
	"babagram/internal/repository"
	"babagram/internal/service"
	"babagram/internal/worker"
)

// stores groups the content repositories of the selected driver.
type stores struct {
	content    repository.ContentRepository
	comments   repository.CommentRepository
	stories    repository.StoryRepository
	highlights repository.HighlightRepository
}

// Run loads configuration, wires every component and serves HTTP until
// SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.IsDev())
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, mongoClient, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if mongoClient != nil {
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect")
			}
		}()
	}

	// Redis carries the notification stream and the idempotency keys
	var (
		publisher   service.Notifier
		idempotency cache.IdempotencyStore
		rdb         *redis.Client
	)
	if cfg.RedisURL != "" {
		rdb, err = redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		publisher = queue.NewPublisher(rdb.Client, log)
		idempotency = cache.NewIdempotencyStore(rdb.Client, cfg.IdempotencyTTL)
		log.Info().Msg("connected to redis")
	} else {
		log.Warn().Msg("REDIS_URL not set: notifications delivered in-process, idempotency keys ignored")
	}

	// Postgres holds delivered notifications and device tokens
	var (
		notifService *service.NotificationService
		db           *sqlx.DB
	)
	if cfg.PostgresEnabled() {
		db, err = database.Connect(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		notifService = service.NewNotificationService(
			repository.NewNotificationRepository(db),
			repository.NewDeviceTokenRepository(db),
			openPusher(ctx, cfg, log),
			log,
		)
	}

	notifier := chooseNotifier(publisher, notifService, log)
	var manager *worker.Manager
	if notifService != nil && rdb != nil {
		mcfg := worker.DefaultManagerConfig()
		mcfg.WorkerCount = cfg.NotificationWorkers
		manager = worker.NewManager(queue.NewConsumer(rdb.Client, log), worker.NewHandler(notifService, log), mcfg, log)
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start notification workers: %w", err)
		}
	}

	var (
		mediaStore service.MediaStore
		presigner  handler.Presigner
		uploader   handler.StoryImageUploader
	)
	media, err := service.NewMediaService(ctx, cfg, log)
	switch {
	case err == nil:
		mediaStore, presigner, uploader = media, media, media
	case errors.Is(err, service.ErrMediaNotConfigured):
		log.Warn().Msg("R2 not configured: media uploads disabled")
	default:
		return err
	}

	counter := service.NewCounterService(st.content, cfg.CounterMaxAttempts, log)
	comments := service.NewCommentService(st.content, st.comments, idempotency, log)
	highlights := service.NewHighlightService(st.highlights, st.content, st.stories, log)
	stories := service.NewStoryService(st.content, st.stories, st.highlights, mediaStore, notifier, cfg.StoryTTL, log)
	posts := service.NewPostService(st.content, notifier, log)
	interactions := service.NewInteractionService(st.content, counter, comments, highlights, notifier, log)

	rc := RouterConfig{
		InteractionHandler: handler.NewInteractionHandler(interactions, log),
		PostHandler:        handler.NewPostHandler(posts, log),
		CommentHandler:     handler.NewCommentHandler(comments, log),
		StoryHandler:       handler.NewStoryHandler(stories, uploader, log),
		HighlightHandler:   handler.NewHighlightHandler(highlights, log),
		MediaHandler:       handler.NewMediaHandler(presigner, log),
		JWTSecret:          cfg.JWTSecret,
		Logger:             logger.Component(log, "http"),
	}
	if notifService != nil {
		rc.NotificationHandler = handler.NewNotificationHandler(notifService, log)
	}

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewRouter(rc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if manager != nil {
		manager.Stop()
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (stores, *mongo.Client, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		mem := repository.NewMemoryStore()
		return stores{content: mem, comments: mem, stories: mem, highlights: mem.Highlights()}, nil, nil
	}

	client, err := database.ConnectMongo(ctx, cfg.MongoURI, log)
	if err != nil {
		return stores{}, nil, err
	}
	db := client.Database(cfg.MongoDatabase)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return stores{}, nil, err
	}
	return stores{
		content:    repository.NewContentRepository(db),
		comments:   repository.NewCommentRepository(db),
		stories:    repository.NewStoryRepository(db),
		highlights: repository.NewHighlightRepository(db),
	}, client, nil
}

// openPusher returns the FCM client, or nil when push is not configured.
func openPusher(ctx context.Context, cfg *config.Config, log zerolog.Logger) service.Pusher {
	if cfg.FCMCredentialsFile == "" && cfg.FCMCredentialsJSON == "" {
		log.Warn().Msg("FCM not configured: push notifications disabled")
		return nil
	}
	fcm, err := service.NewFCMClient(ctx, cfg.FCMCredentialsFile, cfg.FCMCredentialsJSON, log)
	if err != nil {
		log.Error().Err(err).Msg("FCM init failed: push notifications disabled")
		return nil
	}
	return fcm
}

// chooseNotifier picks where interaction events go. Events are published to
// the stream only when a worker will consume it, which needs the Postgres
// backed notification service. Without the stream, delivery runs in the
// background; without Postgres, events are dropped.
func chooseNotifier(publisher service.Notifier, notifService *service.NotificationService, log zerolog.Logger) service.Notifier {
	switch {
	case notifService == nil:
		log.Warn().Msg("postgres not configured: notifications disabled")
		return service.NopNotifier{}
	case publisher != nil:
		return publisher
	default:
		return asyncDeliverer(notifService, log)
	}
}

func asyncDeliverer(s *service.NotificationService, log zerolog.Logger) service.Notifier {
	return service.NotifierFunc(func(ctx context.Context, e model.NotificationEvent) error {
		go func() {
			err := s.Deliver(context.WithoutCancel(ctx), e)
			metrics.ObserveNotification(e.Kind, err)
			if err != nil {
				log.Warn().Err(err).Str("kind", e.Kind).Str("recipient", e.RecipientID).Msg("notification delivery failed")
			}
		}()
		return nil
	})
}
