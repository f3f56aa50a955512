package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/lumina/internal/api/handlers/batch"
	"github.com/aliskhannn/lumina/internal/api/handlers/studio"
	"github.com/aliskhannn/lumina/internal/api/router"
	"github.com/aliskhannn/lumina/internal/api/server"
	"github.com/aliskhannn/lumina/internal/archive"
	batchrun "github.com/aliskhannn/lumina/internal/batch"
	"github.com/aliskhannn/lumina/internal/config"
	"github.com/aliskhannn/lumina/internal/infra/kafka/consumer"
	"github.com/aliskhannn/lumina/internal/infra/kafka/producer"
	batchmsg "github.com/aliskhannn/lumina/internal/kafka/handlers/batch"
	"github.com/aliskhannn/lumina/internal/processor"
	studiosvc "github.com/aliskhannn/lumina/internal/service/studio"
	"github.com/aliskhannn/lumina/internal/session"
	"github.com/aliskhannn/lumina/internal/storage/file"
	"github.com/aliskhannn/lumina/internal/straighten"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Retry strategy for Kafka, storage and other external calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Straighten strategies for the interactive action and the batch policy.
	interactive, err := straighten.NewBoundedRandom(cfg.Export.StraightenRange, straighten.WithStep(cfg.Export.StraightenStep))
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("invalid export straighten range")
	}
	batchStraighten, err := straighten.NewBoundedRandom(cfg.Batch.StraightenRange)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("invalid batch straighten range")
	}

	var (
		options  []studiosvc.Option
		runnerOp []batchrun.Option
		events   *producer.Producer
		commands *producer.Producer
	)

	// Initialize file storage (MinIO) for exports and archives.
	if cfg.Storage.Enabled {
		storage, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
		}
		options = append(options, studiosvc.WithStorage(storage))
	}

	// Kafka producers for item status events and batch run commands.
	if cfg.Kafka.Enabled {
		events = producer.New(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, strategy)
		commands = producer.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, strategy)
		runnerOp = append(runnerOp, batchrun.WithNotifier(events))
		options = append(options, studiosvc.WithRunRequester(commands))
	}

	// Initialize processor, session, runner, and service layer.
	runner := batchrun.NewRunner(processor.New(cfg.Batch.JPEGQuality), runnerOp...)
	service, err := studiosvc.NewService(session.New(), runner, studiosvc.BatchPolicy{
		ApplyPortra:    cfg.Batch.ApplyPortra,
		AutoStraighten: cfg.Batch.AutoStraighten,
	}, studiosvc.Options{
		ExportFilename: cfg.Export.Filename,
		ArchiveName:    cfg.Batch.ArchiveName,
		Archive: archive.Options{
			Folder: cfg.Batch.ArchiveFolder,
			Prefix: cfg.Batch.FilePrefix,
		},
		Straighten:      interactive,
		BatchStraighten: batchStraighten,
		Retry:           strategy,
	}, options...)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to initialize studio service")
	}

	// Kafka consumer for batch run commands.
	var (
		wg sync.WaitGroup
		c  *consumer.Consumer
	)
	if cfg.Kafka.Enabled {
		c = consumer.New(&cfg.Kafka, strategy, batchmsg.NewRunHandler(service))
		wg.Add(1)
		go c.Consume(ctx, &wg)
	}

	// HTTP handlers for studio and batch routes.
	maxUpload := cfg.Server.MaxUploadMB << 20
	r := router.Setup(studio.NewHandler(service, maxUpload), batch.NewHandler(service, maxUpload))

	// Start HTTP server in a separate goroutine.
	s := server.New(cfg.Server, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("server started")

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for Kafka consumer goroutine to finish.
	wg.Wait()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Stop a local batch run between items.
	service.Close()

	// Close Kafka producer and consumer clients.
	if events != nil {
		if err := events.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka events producer client")
		}
	}
	if commands != nil {
		if err := commands.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka commands producer client")
		}
	}
	if c != nil {
		if err := c.Client.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
		}
	}
}
