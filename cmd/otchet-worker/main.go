package main

import (
	"context"
	"errors"
	"os"
	"time"

	"otchet/internal/amqp"
	"otchet/internal/cli"
	applog "otchet/internal/log"
	"otchet/internal/reports"
	"otchet/internal/reports/google"
	"otchet/internal/worker"
)

const consumeRetryDelay = 5 * time.Second

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)
	logger.Info("Starting otchet-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Spreadsheet snapshots are optional.
	var upstream reports.PeriodReader
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := google.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		upstream = sheetsClient
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	importWorker := worker.NewImportWorker(repo, upstream)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", applog.FieldError, err)
		}
	})

	if upstream != nil {
		logger.Info("Performing startup spreadsheet snapshot...")
		if err := importWorker.SyncFromUpstream(ctx); err != nil {
			logger.Error("Startup snapshot failed", applog.FieldError, err)
		}

		go func() {
			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := importWorker.SyncFromUpstream(ctx); err != nil {
						logger.Error("Periodic snapshot failed", applog.FieldError, err)
					}
				}
			}
		}()
	}

	go func() {
		for ctx.Err() == nil {
			err := amqpClient.ConsumeReportImports(ctx, importWorker.HandleImportMessage)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("Message consumption failed, retrying",
				applog.FieldError, err,
				"retry_in", consumeRetryDelay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(consumeRetryDelay):
			}
		}
	}()

	<-done
	logger.Info("Worker stopped")
}
