package main

import (
	"context"
	"flag"
	"os"
	"time"

	"otchet/internal/amqp"
	"otchet/internal/cli"
	"otchet/internal/core"
	applog "otchet/internal/log"
	"otchet/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentImport)

	file := flag.String("file", cfg.ReportDataFile, "JSON dataset in the report front-end shape")
	source := flag.String("source", "file", "source name recorded with the import")
	direct := flag.Bool("direct", false, "write straight to SQLite instead of publishing to AMQP")
	timeout := flag.Duration("timeout", time.Minute, "overall time limit")
	flag.Parse()

	f, err := os.Open(*file)
	if err != nil {
		logger.Error("Failed to open dataset", applog.FieldError, err, "file", *file)
		os.Exit(1)
	}
	periods, err := core.ParsePeriods(f)
	f.Close()
	if err != nil {
		logger.Error("Invalid dataset", applog.FieldError, err, "file", *file)
		os.Exit(1)
	}

	var svc *services.ImportService
	if *direct {
		svc = services.NewImportService(cli.InitSQLite(logger, cfg.SQLiteDBPath), nil)
	} else {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		svc = services.NewImportService(nil, client)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("Close failed", applog.FieldError, err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := svc.Import(ctx, *source, periods)
	if err != nil {
		logger.Error("Import failed", applog.FieldError, err, "file", *file)
		svc.Close()
		os.Exit(1)
	}

	logger.Info("Dataset imported",
		"mode", res.Mode,
		"import_id", res.Run.ID,
		applog.FieldSource, *source,
		applog.FieldPeriods, res.Periods)
}
