// worker runs the reminder and trash sweeps on their intervals and serves
// on-demand sweep requests from Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/ContractKeeper/internal/bootstrap"
	"github.com/turtacn/ContractKeeper/internal/config"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/ContractKeeper/internal/interfaces/http"
	"github.com/turtacn/ContractKeeper/internal/interfaces/http/handlers"
	"github.com/turtacn/ContractKeeper/pkg/types/common"
)

// Injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (environment only when empty)")
	once := flag.Bool("once", false, "run both sweeps once and exit")
	flag.Parse()

	if err := run(*configPath, *once); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	load := config.Load
	if path == "" {
		load = func(string) (*config.Config, error) { return config.LoadFromEnv() }
	}
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Postgres.ApplicationName == "" {
		cfg.Database.Postgres.ApplicationName = "contractkeeper-worker"
	}
	return cfg, nil
}

func run(configPath string, once bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Monitoring.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger = logger.Named("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	svc, err := infra.Services()
	if err != nil {
		return err
	}
	sweeps := svc.Sweeps(logger)

	if once {
		for _, sweep := range []string{kafka.SweepReminders, kafka.SweepTrash} {
			if err := sweeps.Run(ctx, sweep, time.Now()); err != nil {
				return err
			}
		}
		return nil
	}

	logger.Info("Starting ContractKeeper worker",
		logging.String("version", version),
		logging.Duration("reminder_interval", cfg.Reminder.Interval),
		logging.Duration("trash_interval", cfg.Trash.Interval),
	)

	scheduler := bootstrap.NewScheduler(logger)
	for _, sweep := range []struct {
		name     string
		interval time.Duration
	}{
		{kafka.SweepReminders, cfg.Reminder.Interval},
		{kafka.SweepTrash, cfg.Trash.Interval},
	} {
		name := sweep.name
		scheduler.Every(name, sweep.interval, func(ctx context.Context, now time.Time) error {
			return sweeps.Run(ctx, name, now)
		})
	}
	scheduler.Start(ctx)

	if configPath != "" {
		config.Watch(configPath, func(next *config.Config) {
			scheduler.SetInterval(kafka.SweepReminders, next.Reminder.Interval)
			scheduler.SetInterval(kafka.SweepTrash, next.Trash.Interval)
		}, func(err error) {
			logger.Warn("Ignoring invalid configuration change", logging.Err(err))
		})
	}

	if cfg.Messaging.Kafka.Enabled {
		consumer, err := startConsumer(ctx, cfg, sweeps, logger)
		if err != nil {
			return err
		}
		defer consumer.Close()
	}

	collector := infra.Collector
	if !cfg.Monitoring.Prometheus.Enabled {
		collector = nil
	}
	probes := httpserver.NewServer(httpserver.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.HealthPort,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpserver.NewProbeRouter(
		handlers.NewHealthHandler(version, infra.HealthCheckers()...),
		collector,
		cfg.Monitoring.Prometheus.Path,
	), logger)

	err = probes.Run(ctx)
	stop()
	scheduler.Wait()
	logger.Info("Worker stopped")
	return err
}

// startConsumer subscribes the sweeps to common.TopicSweepRequested.
func startConsumer(ctx context.Context, cfg *config.Config, sweeps *bootstrap.Sweeps, logger logging.Logger) (*kafka.Consumer, error) {
	k := cfg.Messaging.Kafka

	if topics, err := kafka.NewTopicManager(ctx, k.Brokers, k.Consumer.Security, logger); err != nil {
		logger.Warn("Skipping topic creation", logging.Err(err))
	} else {
		if _, err := topics.EnsureTopics(ctx, kafka.DefaultTopics(k.TopicReplication)); err != nil {
			logger.Warn("Could not ensure Kafka topics", logging.Err(err))
		}
		_ = topics.Close()
	}

	consumerCfg := k.Consumer
	consumerCfg.Topics = []string{common.TopicSweepRequested}
	if consumerCfg.Retry.DeadLetterTopic == "" {
		consumerCfg.Retry.DeadLetterTopic = common.TopicDeadLetter
	}
	consumer, err := kafka.NewConsumer(consumerCfg, logger)
	if err != nil {
		return nil, err
	}
	consumer.Subscribe(common.TopicSweepRequested, sweeps.SweepRequestHandler(time.Now))
	if err := consumer.Start(ctx); err != nil {
		_ = consumer.Close()
		return nil, err
	}
	return consumer, nil
}

//Personal.AI order the ending
