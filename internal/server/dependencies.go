package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"event-checkout/internal/config"
	"event-checkout/internal/database"
	"event-checkout/internal/handlers"
	"event-checkout/internal/middleware"
	"event-checkout/internal/models"
	"event-checkout/internal/queue"
	"event-checkout/internal/repositories"
	"event-checkout/internal/services"
)

const notificationTimeout = 2 * time.Minute

// Dependencies holds everything the HTTP server needs. Build it once at
// startup; the clients it holds are shared read-only by all requests.
type Dependencies struct {
	Config       *config.Config
	Log          logrus.FieldLogger
	DB           *database.DB
	Store        services.BookingStore
	LocalStorage *services.FallbackStorageService
	Dispatcher   services.NotificationDispatcher
	RateLimiter  *middleware.RateLimiter

	Checkout *handlers.CheckoutHandler
	Webhook  *handlers.WebhookHandler
	Health   *handlers.HealthHandler

	redis *redis.Client
}

// BuildDependencies wires the checkout services from configuration.
func BuildDependencies(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Log: log}

	store, db, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	deps.Store, deps.DB = store, db

	renderer, err := NewTicketRenderer(cfg)
	if err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}

	notifier, local, err := NewNotifier(ctx, cfg, renderer, log)
	if err != nil {
		_ = deps.Close(ctx)
		return nil, err
	}
	deps.LocalStorage = local

	if cfg.Queue.URL != "" {
		publisher := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.QueueName, log)
		deps.Dispatcher = services.NewQueueDispatcher(publisher, log)
		log.WithField("queue", cfg.Queue.QueueName).Info("notifications are queued for the worker")
	} else {
		deps.Dispatcher = services.NewInlineDispatcher(notifier, notificationTimeout, log)
		log.Info("notifications are sent in process")
	}

	var dedup services.EventDeduplicator = services.NoopDeduplicator{}
	if cfg.Redis.Addr != "" {
		client, err := services.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, webhook deliveries are not deduplicated")
		} else {
			deps.redis = client
			dedup = services.NewRedisEventDeduplicator(client, cfg.Redis.EventTTL)
		}
	}

	retry := services.RetryPolicy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}

	gateway := services.NewRazorpayService(services.RazorpayConfig{
		KeyID:     cfg.Razorpay.KeyID,
		KeySecret: cfg.Razorpay.KeySecret,
		BaseURL:   cfg.Razorpay.BaseURL,
		Timeout:   cfg.Razorpay.Timeout,
	}, log)
	verifier := services.NewSignatureVerifier(cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret)

	deps.Checkout = handlers.NewCheckoutHandler(
		models.DefaultPriceTable,
		cfg.Razorpay.Currency,
		services.NewOrderService(gateway, retry, log),
		verifier,
		services.NewBookingService(deps.Store, verifier, renderer, deps.Dispatcher, retry, log),
	)
	deps.Webhook = handlers.NewWebhookHandler(services.NewWebhookService(deps.Store, verifier, dedup, log))
	deps.Health = handlers.NewHealthHandler(deps.Store)
	deps.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 10*time.Minute)

	return deps, nil
}

// Close drains pending notifications and releases connections.
func (d *Dependencies) Close(ctx context.Context) error {
	var errs []error
	if d.Dispatcher != nil {
		if err := d.Dispatcher.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if d.RateLimiter != nil {
		d.RateLimiter.Stop()
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// OpenStore connects to Postgres and applies pending migrations. Outside
// production an unreachable database falls back to the in-memory store,
// whose bookings are lost on restart.
func OpenStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (services.BookingStore, *database.DB, error) {
	db, err := OpenDatabase(ctx, cfg, log)
	if err != nil {
		if cfg.IsProduction() {
			return nil, nil, err
		}
		log.WithError(err).Warn("database unavailable, using in-memory booking store")
		return repositories.NewMemoryBookingRepository(), nil, nil
	}

	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return repositories.NewBookingRepository(db.DB), db, nil
}

// OpenDatabase connects to the configured Postgres database.
func OpenDatabase(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*database.DB, error) {
	db, err := database.NewConnection(ctx, database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	}, log.WithField("component", "database"))
	if err != nil {
		return nil, err
	}
	log.Info("database connection established")
	return db, nil
}

// NewTicketRenderer creates the renderer for the configured event.
func NewTicketRenderer(cfg *config.Config) (*services.TicketRenderer, error) {
	return services.NewTicketRenderer(services.EventDetails{
		Name:         cfg.Event.Name,
		Venue:        cfg.Event.Venue,
		Date:         cfg.Event.Date,
		Time:         cfg.Event.Time,
		SupportEmail: cfg.Event.SupportEmail,
	}, cfg.Event.TicketImagePath)
}

// NewNotifier builds the confirmation notifier with the first configured
// email transport: Resend, then SMTP, then the log only sender.
func NewNotifier(ctx context.Context, cfg *config.Config, renderer *services.TicketRenderer, log logrus.FieldLogger) (*services.NotificationService, *services.FallbackStorageService, error) {
	storage, local, err := services.NewStorageService(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return services.NewNotificationService(renderer, NewEmailSender(cfg, log), storage, log), local, nil
}

// NewEmailSender picks the email transport from configuration.
func NewEmailSender(cfg *config.Config, log logrus.FieldLogger) services.EmailSender {
	switch {
	case cfg.Resend.APIKey != "":
		log.Info("sending email through Resend")
		return services.NewResendEmailService(services.ResendConfig{
			APIKey:    cfg.Resend.APIKey,
			FromEmail: cfg.Resend.FromEmail,
			FromName:  cfg.Resend.FromName,
			BaseURL:   cfg.Resend.BaseURL,
		}, log)
	case cfg.SMTPConfigured():
		log.WithField("host", cfg.Email.SMTPHost).Info("sending email through SMTP")
		return services.NewSMTPEmailService(services.EmailConfig{
			SMTPHost:     cfg.Email.SMTPHost,
			SMTPPort:     cfg.Email.SMTPPort,
			SMTPUsername: cfg.Email.SMTPUser,
			SMTPPassword: cfg.Email.SMTPPassword,
			FromEmail:    cfg.Email.FromEmail,
			FromName:     cfg.Email.FromName,
			Timeout:      30 * time.Second,
		}, log)
	default:
		log.Warn("no email transport configured, confirmations are only logged")
		return services.NewLogEmailService(log)
	}
}
