package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"video-library/constant"
	"video-library/entities"
	"video-library/pkg/mediahost"
	"video-library/repository"
)

type CatalogEntry struct {
	Video        *entities.Video
	ThumbnailURL string
}

type CatalogService interface {
	// List returns the owner's videos, newest first.
	List(ctx context.Context, ownerID string) ([]CatalogEntry, error)
	// DownloadURL resolves a time-limited URL for the video's media.
	DownloadURL(ctx context.Context, ownerID string, videoID uuid.UUID) (string, error)
	// SubtitleURL resolves a time-limited URL for the video's stored subtitle artifact.
	SubtitleURL(ctx context.Context, ownerID string, videoID uuid.UUID) (string, error)
}

type catalogService struct {
	repo repository.VideoRepository
	host mediahost.Host
}

func (s *catalogService) List(ctx context.Context, ownerID string) ([]CatalogEntry, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated()
	}
	videos, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		svcErr := newError(KindPersistence, CodeStoreUnavailable, "list", "failed to list videos", err)
		logFailure(ctx, "list", svcErr)
		return nil, svcErr
	}

	entries := make([]CatalogEntry, 0, len(videos))
	for _, video := range videos {
		thumbnailURL, err := s.host.ResolveThumbnailURL(ctx, video.MediaRef)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("video_id", video.ID.String()).Msg("thumbnail unavailable")
			thumbnailURL = ""
		}
		entries = append(entries, CatalogEntry{Video: video, ThumbnailURL: thumbnailURL})
	}
	return entries, nil
}

func (s *catalogService) DownloadURL(ctx context.Context, ownerID string, videoID uuid.UUID) (string, error) {
	video, err := s.lookup(ctx, ownerID, videoID)
	if err != nil {
		return "", err
	}
	return s.resolve(ctx, "download", video.MediaRef)
}

// SubtitleURL presigns the artifact under the deterministic name it was written with, so the
// bucket can stay private.
func (s *catalogService) SubtitleURL(ctx context.Context, ownerID string, videoID uuid.UUID) (string, error) {
	video, err := s.lookup(ctx, ownerID, videoID)
	if err != nil {
		return "", err
	}
	if !video.HasSubtitles || video.SubtitleRef == nil {
		return "", newError(KindNotFound, CodeNotFound, "lookup", "video has no subtitles", nil)
	}
	format := string(constant.SubtitleFormatVTT)
	if video.SubtitleFormat != nil && *video.SubtitleFormat != "" {
		format = *video.SubtitleFormat
	}
	key := mediahost.ObjectKey(constant.NamespaceSubtitles, mediahost.SubtitleArtifactName(video.MediaRef, format))
	return s.resolve(ctx, "subtitles", key)
}

func (s *catalogService) lookup(ctx context.Context, ownerID string, videoID uuid.UUID) (*entities.Video, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated()
	}
	video, err := s.repo.FindByID(ctx, ownerID, videoID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotFound("lookup", err)
	}
	if err != nil {
		return nil, newError(KindPersistence, CodeStoreUnavailable, "lookup", "failed to load video", err)
	}
	return video, nil
}

func (s *catalogService) resolve(ctx context.Context, action, key string) (string, error) {
	url, err := s.host.ResolvePlayableURL(ctx, key)
	if err != nil {
		code := CodeMediaFetchFailed
		if errors.Is(err, mediahost.ErrAssetNotFound) {
			code = CodeAssetNotFound
		}
		svcErr := newError(KindRemoteService, code, "resolve", "failed to resolve media", err)
		logFailure(ctx, action, svcErr)
		return "", svcErr
	}
	return url, nil
}

func NewCatalogService(repo repository.VideoRepository, host mediahost.Host) CatalogService {
	return &catalogService{
		repo: repo,
		host: host,
	}
}
