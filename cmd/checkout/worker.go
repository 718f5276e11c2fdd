package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"event-checkout/internal/queue"
	"event-checkout/internal/repositories"
	"event-checkout/internal/server"
	"event-checkout/internal/services"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Deliver queued booking confirmations",
		Long: `Consume booking confirmations published by "serve" when RABBITMQ_URL
is set, and send the ticket email for each. The worker reads bookings
from Postgres, so it needs the same database as the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Queue.URL == "" {
				return errors.New("RABBITMQ_URL is required for the worker")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := server.OpenDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			renderer, err := server.NewTicketRenderer(cfg)
			if err != nil {
				return err
			}
			notifier, _, err := server.NewNotifier(ctx, cfg, renderer, log)
			if err != nil {
				return err
			}

			worker := services.NewNotificationWorker(repositories.NewBookingRepository(db.DB), notifier, log)
			consumer := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.QueueName, cfg.Queue.Prefetch, worker.Handle, log)

			log.WithField("queue", cfg.Queue.QueueName).Info("notification worker started")
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("worker stopped: %w", err)
			}
			log.Info("notification worker stopped")
			return nil
		},
	}
}
