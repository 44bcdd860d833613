package server

import (
	"context"
	"errors"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"video-library/config"
	"video-library/constant"
	"video-library/pkg/mediahost"
	"video-library/pkg/metrics"
	"video-library/repository"
)

// app holds the collaborators shared by the HTTP server and the event worker.
type app struct {
	repo     repository.VideoRepository
	host     *mediahost.MinioHost
	conn     *amqp.Connection
	registry *prometheus.Registry
	recorder *metrics.Recorder
}

func bootstrap(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := cfg.OpenDatabase()
	if err != nil {
		return nil, err
	}
	repo := repository.NewRepo(db)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}

	minioClient, err := cfg.NewMinioClient()
	if err != nil {
		return nil, err
	}
	host := mediahost.NewMinioHost(minioClient, cfg.MinIO.Bucket, cfg.MinIO.URLExpiry, mediahost.WithProbe(mediahost.FFProbeDuration))
	if err := host.EnsureBucket(ctx, cfg.MinIO.Region); err != nil {
		return nil, err
	}

	// Without a broker the app still serves; events are dropped.
	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil && !errors.Is(err, config.ErrQueueDisabled) {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &app{
		repo:     repo,
		host:     host,
		conn:     conn,
		registry: registry,
		recorder: metrics.NewRecorder(registry),
	}, nil
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
