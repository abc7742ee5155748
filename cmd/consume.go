package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vibast-solutions/ms-go-contact/app/entity"
	"github.com/vibast-solutions/ms-go-contact/app/queue"
	"github.com/vibast-solutions/ms-go-contact/app/repository"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var consumeArchive bool

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Consume queued messages",
	Long:  "Consume queued messages from Redis streams.",
}

// init registers consume subcommands.
func init() {
	consumeEventsCmd.Flags().BoolVar(&consumeArchive, "archive", false, "also store consumed events in the MySQL operator_events table")
	consumeCmd.AddCommand(consumeEventsCmd)
	rootCmd.AddCommand(consumeCmd)
}

var consumeEventsCmd = &cobra.Command{
	Use:   "events [consumer_name]",
	Short: "Start the operator event consumer",
	Long:  "Start a worker that reads operator events from the Redis stream and writes them to the log, optionally archiving them in MySQL.",
	Args:  cobra.ExactArgs(1),
	Run:   runConsumeEvents,
}

// runConsumeEvents starts the operator event consumer worker.
func runConsumeEvents(_ *cobra.Command, args []string) {
	consumerName := args[0]
	cfg, logger := loadConfig()

	rdb, err := openRedis(context.Background(), cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	if rdb == nil {
		logger.Fatal("REDIS_ADDR is required to consume operator events")
	}
	defer rdb.Close()

	var archive *repository.OperatorEventRepository
	if consumeArchive {
		db, err := openMySQL(context.Background(), cfg)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		if db == nil {
			logger.Fatal("MYSQL_DSN is required with --archive")
		}
		defer db.Close()
		archive = repository.NewOperatorEventRepository(db)
	}

	consumer := queue.NewEventConsumer(rdb, eventLogHandler(logger, archive), consumerName, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Received shutdown signal, stopping consumer...")
		cancel()
	}()

	if err := consumer.Run(ctx); err != nil {
		logger.Fatalf("Consumer error: %v", err)
	}

	logger.Info("Consumer stopped")
}

// eventLogHandler logs each event and archives it when archive is set. An
// archive failure leaves the message pending for redelivery.
func eventLogHandler(logger logrus.FieldLogger, archive *repository.OperatorEventRepository) queue.EventHandler {
	return func(ctx context.Context, ev entity.OperatorEvent) error {
		fields := logrus.Fields{"event": ev.Event, "occurred_at": ev.OccurredAt}
		for k, v := range ev.Detail {
			fields["detail."+k] = v
		}
		logger.WithFields(fields).Info("operator event")

		if archive == nil {
			return nil
		}
		return archive.Create(ctx, ev)
	}
}
