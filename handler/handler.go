package handler

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"video-library/dto"
	"video-library/service"
)

type ServiceDependencies struct {
	ThumbnailService service.ThumbnailService
}

// VideoEventHandler decodes a lifecycle event and runs the derived-asset work for it.
func VideoEventHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var event dto.VideoEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		// A malformed body never decodes on redelivery.
		zerolog.Ctx(ctx).Error().Err(err).Str("routing_key", msg.RoutingKey).Msg("failed to unmarshal video event")
		return nil
	}
	if event.OwnerID == "" || event.MediaRef == "" {
		zerolog.Ctx(ctx).Warn().Err(errors.New("incomplete event")).Str("video_id", event.VideoID.String()).Msg("skipping video event")
		return nil
	}

	zerolog.Ctx(ctx).Info().
		Str("event", string(event.Type)).
		Str("video_id", event.VideoID.String()).
		Msg("received video event")

	return deps.ThumbnailService.Generate(ctx, event)
}
