package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"video-library/config"
	"video-library/constant"
	eventHandler "video-library/handler"
	"video-library/pkg/rabbitmq"
	"video-library/service"
)

const thumbnailQueue = "video_thumbnails"

// RunWorker consumes lifecycle events without serving HTTP.
func RunWorker(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := bootstrap(ctx, cfg)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to start")
		os.Exit(1)
	}
	if a.conn == nil {
		zerolog.Ctx(ctx).Error().Err(config.ErrQueueDisabled).Msg("worker needs a broker")
		os.Exit(1)
	}

	runConsumer(ctx, cfg, a)
	zerolog.Ctx(ctx).Info().Msg("worker shutdown")
}

func runConsumer(ctx context.Context, cfg *config.Config, a *app) {
	serviceDeps := eventHandler.ServiceDependencies{
		ThumbnailService: service.NewThumbnailService(a.repo, a.host, service.FFmpegThumbnail, ""),
	}

	thumbnailConsumer := rabbitmq.NewConsumer(a.conn, cfg.Queue, rabbitmq.Binding{
		Queue:       thumbnailQueue,
		RoutingKeys: []string{string(constant.EventVideoUploaded)},
	}, cfg.Server.Workers, eventHandler.VideoEventHandler)

	if err := thumbnailConsumer.Consume(ctx, serviceDeps); err != nil && !errors.Is(err, context.Canceled) {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Thumbnail consumer error")
	}
}
