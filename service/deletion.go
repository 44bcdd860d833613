package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"video-library/entities"
	"video-library/pkg/mediahost"
	"video-library/pkg/metrics"
	"video-library/repository"
)

type DeletionService interface {
	// DeleteVideo removes the record and makes a best-effort attempt to remove its media.
	// It returns the record as it was before deletion.
	DeleteVideo(ctx context.Context, ownerID string, videoID uuid.UUID) (*entities.Video, error)
}

type deletionService struct {
	repo    repository.VideoRepository
	host    mediahost.Host
	metrics *metrics.Recorder
}

func (s *deletionService) DeleteVideo(ctx context.Context, ownerID string, videoID uuid.UUID) (video *entities.Video, err error) {
	started := time.Now()
	defer func() {
		observe(ctx, s.metrics, metrics.PipelineDelete, started, err)
	}()

	if ownerID == "" {
		return nil, ErrUnauthenticated()
	}
	if videoID == uuid.Nil {
		return nil, errInvalid("video id is required")
	}

	video, err = s.repo.FindByID(ctx, ownerID, videoID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotFound("lookup", err)
	}
	if err != nil {
		return nil, newError(KindPersistence, CodeStoreUnavailable, "lookup", "failed to load video", err)
	}

	// Remote cleanup never blocks removal of the record.
	if cleanupErr := s.host.DeleteAsset(ctx, video.MediaRef); cleanupErr != nil {
		s.metrics.RemoteCleanup(false)
		zerolog.Ctx(ctx).Warn().Err(cleanupErr).
			Str("video_id", videoID.String()).
			Str("media_ref", video.MediaRef).
			Str("remote_cleanup", "failed").
			Msg("failed to delete remote media")
	} else {
		s.metrics.RemoteCleanup(true)
	}

	err = s.repo.Delete(ctx, ownerID, videoID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotFound("persist", err)
	}
	if err != nil {
		return nil, newError(KindPersistence, CodeDeletePersistFailed, "persist", "failed to delete video record", err).
			with("mediaRef", video.MediaRef)
	}

	zerolog.Ctx(ctx).Info().Str("video_id", videoID.String()).Msg("video deleted")
	return video, nil
}

func NewDeletionService(repo repository.VideoRepository, host mediahost.Host, recorder *metrics.Recorder) DeletionService {
	return &deletionService{
		repo:    repo,
		host:    host,
		metrics: recorder,
	}
}
