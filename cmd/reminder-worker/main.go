package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budget/internal/amqp"
	"budget/internal/config"
	"budget/internal/services"
	"budget/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting reminder-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Consuming bill events", "queue", cfg.AMQPQueue)
	err = amqpClient.ConsumeBillEvents(ctx, func(msg *amqp.BillEventMessage) error {
		return handleBillEvent(ctx, repo, msg)
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("Consumer stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("reminder-worker stopped")
}

// handleBillEvent flags bills that are due soon or overdue so clients can
// surface a reminder. Deleted and already-handled bills are skipped.
func handleBillEvent(ctx context.Context, repo *storage.SQLiteRepository, msg *amqp.BillEventMessage) error {
	if msg.Kind == services.BillDeleted {
		return nil
	}

	bill := msg.Bill
	if bill.IsPaid || bill.ReminderSet {
		return nil
	}

	classification := services.Classify(bill.DueDate, time.Now())
	if classification.Urgency < services.DueSoon {
		return nil
	}

	if err := repo.MarkBillReminderSet(ctx, bill.ID); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Bill reminder set",
		"bill_id", bill.ID,
		"name", bill.Name,
		"due_date", bill.DueDate.String(),
		"urgency", classification.Urgency.String(),
		"days_until_due", classification.DaysUntilDue)
	return nil
}
