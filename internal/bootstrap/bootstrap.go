// Package bootstrap opens the infrastructure described by a config.Config
// and assembles the application services shared by apiserver, worker and
// contractctl.
package bootstrap

import (
	"context"

	appcategory "github.com/turtacn/ContractKeeper/internal/application/category"
	appcontract "github.com/turtacn/ContractKeeper/internal/application/contract"
	appreminder "github.com/turtacn/ContractKeeper/internal/application/reminder"
	appsettings "github.com/turtacn/ContractKeeper/internal/application/settings"
	apptrash "github.com/turtacn/ContractKeeper/internal/application/trash"
	"github.com/turtacn/ContractKeeper/internal/config"
	"github.com/turtacn/ContractKeeper/internal/domain/access"
	"github.com/turtacn/ContractKeeper/internal/domain/reminder"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/auth/keycloak"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/database/redis"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/notification/email"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/notification/talk"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/storage/minio"
	"github.com/turtacn/ContractKeeper/internal/interfaces/http/handlers"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure
// ─────────────────────────────────────────────────────────────────────────────

// Infra holds the open connections.  Producer, Storage and the notification
// transports are nil when their section is not configured.
type Infra struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics
	DB        *postgres.Connection
	Redis     *redis.Client
	Producer  *kafka.Producer
	Keycloak  *keycloak.Client
	Directory *keycloak.Directory
	Storage   *minio.MinIOClient

	closers []func() error
}

// Open connects to every configured backend.  On failure the connections
// opened so far are closed again.
func Open(ctx context.Context, cfg *config.Config, logger logging.Logger) (infra *Infra, err error) {
	infra = &Infra{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			infra.Close()
			infra = nil
		}
	}()

	if cfg.Monitoring.Prometheus.Enabled {
		infra.Collector, err = prometheus.NewMetricsCollector(cfg.Monitoring.Prometheus.Collector, logger)
		if err != nil {
			return infra, err
		}
	} else {
		infra.Collector = prometheus.NewNoopCollector()
	}
	infra.Metrics = prometheus.NewAppMetrics(infra.Collector)

	infra.DB, err = postgres.NewConnection(ctx, cfg.Database.Postgres, logger)
	if err != nil {
		return infra, err
	}
	infra.closers = append(infra.closers, infra.DB.Close)
	prometheus.RegisterDBStats(infra.Collector, infra.DB.DB(), cfg.Database.Postgres.Database)

	infra.Redis, err = redis.NewClient(ctx, &cfg.Database.Redis, logger)
	if err != nil {
		return infra, err
	}
	infra.closers = append(infra.closers, infra.Redis.Close)

	if cfg.Messaging.Kafka.Enabled {
		infra.Producer, err = kafka.NewProducer(cfg.Messaging.Kafka.Producer, logger)
		if err != nil {
			return infra, err
		}
		infra.closers = append(infra.closers, infra.Producer.Close)
	}

	infra.Keycloak, err = keycloak.NewClient(cfg.Auth.Keycloak, logger)
	if err != nil {
		return infra, err
	}
	infra.closers = append(infra.closers, infra.Keycloak.Close)
	infra.Directory = keycloak.NewDirectory(infra.Keycloak)

	if cfg.Storage.MinIO.Enabled() {
		infra.Storage, err = minio.NewMinIOClient(&cfg.Storage.MinIO, logger)
		if err != nil {
			return infra, err
		}
		if err = infra.Storage.EnsureBucket(ctx); err != nil {
			return infra, err
		}
		infra.closers = append(infra.closers, infra.Storage.Close)
	}

	logger.Info("Infrastructure ready",
		logging.Bool("kafka", infra.Producer != nil),
		logging.Bool("storage", infra.Storage != nil),
		logging.Bool("metrics", cfg.Monitoring.Prometheus.Enabled),
	)
	return infra, nil
}

// Close releases every connection in reverse order of opening.
func (i *Infra) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil {
			i.Logger.Warn("Failed to close connection", logging.Err(err))
		}
	}
	i.closers = nil
}

// HealthCheckers lists the readiness probes for the open backends.
func (i *Infra) HealthCheckers() []handlers.HealthChecker {
	checks := []handlers.HealthChecker{
		handlers.NamedCheck("postgres", i.DB.HealthCheck),
		handlers.NamedCheck("redis", i.Redis.HealthCheck),
		handlers.NamedCheck("keycloak", i.Keycloak.Health),
	}
	if i.Storage != nil {
		checks = append(checks, handlers.OptionalCheck("minio", func(ctx context.Context) error {
			status, err := i.Storage.HealthCheck(ctx)
			if err != nil {
				return err
			}
			if !status.Healthy {
				return errors.New(errors.CodeStorageError, "minio bucket unavailable").WithDetail(status.Error)
			}
			return nil
		}))
	}
	return checks
}

// ─────────────────────────────────────────────────────────────────────────────
// Services
// ─────────────────────────────────────────────────────────────────────────────

// Services is the assembled application layer.
type Services struct {
	Settings   *appsettings.Service
	Evaluator  *access.Evaluator
	Contracts  *appcontract.Service
	Categories *appcategory.Service
	Trash      *apptrash.Service
	Reminders  *appreminder.Service
	Guard      *redis.SweepGuard
	Documents  *minio.DocumentStore
}

// Services wires the repositories and transports into the application
// services.
func (i *Infra) Services() (*Services, error) {
	cfg, log := i.Config, i.Logger
	repoOpts := []repositories.Option{repositories.WithMetrics(i.Metrics)}

	contracts := repositories.NewPostgresContractRepo(i.DB, log, repoOpts...)
	categories := repositories.NewPostgresCategoryRepo(i.DB, log, repoOpts...)
	ledger := repositories.NewPostgresReminderLedger(i.DB, log, repoOpts...)
	store := repositories.NewPostgresSettingsStore(i.DB, log, repoOpts...)

	s := &Services{}
	s.Settings = appsettings.NewService(store, log)
	s.Evaluator = access.NewEvaluator(i.Directory, s.Settings)

	var documents appcontract.DocumentStore
	if i.Storage != nil {
		s.Documents = minio.NewDocumentStore(i.Storage, log)
		documents = s.Documents
	}
	s.Contracts = appcontract.NewService(contracts, categories, documents, log)
	s.Categories = appcategory.NewService(categories, log)

	trashOpts := []apptrash.Option{
		apptrash.WithMetrics(i.Metrics),
		apptrash.WithConfig(apptrash.Config{
			AdminGroup: cfg.Auth.Keycloak.AdminGroup,
			Retention:  cfg.Trash.Retention(),
		}),
	}
	reminderOpts := []appreminder.Option{
		appreminder.WithMetrics(i.Metrics),
		appreminder.WithConfig(appreminder.Config{
			AppURL:               cfg.Reminder.AppURL,
			RecordOnTotalFailure: cfg.Reminder.RecordsOnTotalFailure(),
		}),
	}
	if i.Producer != nil {
		trashOpts = append(trashOpts, apptrash.WithProducer(i.Producer))
		reminderOpts = append(reminderOpts, appreminder.WithProducer(i.Producer))
	}
	s.Trash = apptrash.NewService(contracts, ledger, i.Directory, log, trashOpts...)

	var chat reminder.ChatTransport
	if cfg.Notification.Talk.Enabled() {
		chat = talk.NewClient(cfg.Notification.Talk, s.Settings, log)
	}
	var mail reminder.EmailTransport
	if cfg.Notification.SMTP.Enabled() {
		mailer, err := email.NewMailer(cfg.Notification.SMTP, log)
		if err != nil {
			return nil, err
		}
		mail = mailer
	}
	if chat == nil && mail == nil {
		log.Warn("No reminder transport configured; reminders will only be recorded")
	}
	s.Reminders = appreminder.NewService(contracts, ledger, s.Settings, i.Directory, chat, mail, log, reminderOpts...)

	s.Guard = redis.NewSweepGuard(redis.NewLocker(i.Redis, log), log,
		redis.WithGuardTTL(cfg.Reminder.LockTTL),
		redis.WithGuardMetrics(i.Metrics),
	)
	return s, nil
}

//Personal.AI order the ending
