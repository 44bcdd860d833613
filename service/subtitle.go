package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"video-library/constant"
	"video-library/entities"
	"video-library/pkg/mediahost"
	"video-library/pkg/metrics"
	"video-library/pkg/transcription"
	"video-library/repository"
)

type SubtitleResult struct {
	TranscriptText string
	SubtitleRef    string
	Video          *entities.Video
}

type SubtitleService interface {
	// GenerateSubtitles transcribes the video's media, stores the transcript as a subtitle
	// artifact and marks the record as subtitled. An empty mediaRef uses the record's own.
	GenerateSubtitles(ctx context.Context, ownerID string, videoID uuid.UUID, mediaRef string) (*SubtitleResult, error)
}

type subtitleService struct {
	repo        repository.VideoRepository
	host        mediahost.Host
	transcriber transcription.Transcriber
	httpClient  *http.Client
	metrics     *metrics.Recorder
	maxBytes    int64
}

func (s *subtitleService) GenerateSubtitles(ctx context.Context, ownerID string, videoID uuid.UUID, mediaRef string) (result *SubtitleResult, err error) {
	started := time.Now()
	defer func() {
		observe(ctx, s.metrics, metrics.PipelineSubtitles, started, err)
	}()

	if ownerID == "" {
		return nil, ErrUnauthenticated()
	}
	if videoID == uuid.Nil {
		return nil, errInvalid("video id is required")
	}

	video, err := s.repo.FindByID(ctx, ownerID, videoID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotFound("lookup", err)
	}
	if err != nil {
		return nil, newError(KindPersistence, CodeStoreUnavailable, "lookup", "failed to load video", err)
	}
	if mediaRef == "" {
		mediaRef = video.MediaRef
	}
	if mediaRef != video.MediaRef {
		return nil, errInvalid("mediaRef does not belong to this video")
	}

	logger := zerolog.Ctx(ctx).With().Str("video_id", videoID.String()).Str("media_ref", mediaRef).Logger()

	playableURL, err := s.host.ResolvePlayableURL(ctx, mediaRef)
	if err != nil {
		code := CodeMediaFetchFailed
		if errors.Is(err, mediahost.ErrAssetNotFound) {
			code = CodeAssetNotFound
		}
		return nil, newError(KindRemoteService, code, "resolve", "failed to resolve media", err)
	}

	logger.Info().Msg("fetching media")
	data, err := s.fetch(ctx, playableURL)
	if err != nil {
		return nil, newError(KindRemoteService, CodeMediaFetchFailed, "fetch", "failed to fetch media", err)
	}

	logger.Info().Int("media_bytes", len(data)).Msg("transcribing media")
	transcript, err := s.transcriber.Transcribe(ctx, transcription.Media{
		Name:        mediaFileName(mediaRef),
		ContentType: "video/mp4",
		Data:        data,
	}, constant.TranscriptionLanguage, string(constant.SubtitleFormatVTT))
	if err != nil {
		return nil, newError(KindRemoteService, CodeTranscriptionFailed, "transcribe", "transcription failed", err)
	}

	name := mediahost.SubtitleArtifactName(mediaRef, string(constant.SubtitleFormatVTT))
	subtitleRef, err := s.host.UploadRawArtifact(ctx, []byte(transcript), constant.NamespaceSubtitles, name, "text/vtt")
	if err != nil {
		return nil, newError(KindRemoteService, CodeArtifactUploadFailed, "store_artifact", "failed to store subtitle artifact", err)
	}

	updated, err := s.repo.UpdateSubtitles(ctx, ownerID, videoID, subtitleRef, string(constant.SubtitleFormatVTT))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotFound("persist", err).with("subtitleRef", subtitleRef)
	}
	if err != nil {
		// The artifact exists remotely; rerunning overwrites it under the same name.
		return nil, newError(KindPersistence, CodeSubtitlePersistFailed, "persist", "failed to record subtitles", err).
			with("subtitleRef", subtitleRef)
	}

	logger.Info().Str("subtitle_ref", subtitleRef).Msg("subtitles generated")
	return &SubtitleResult{
		TranscriptText: transcript,
		SubtitleRef:    subtitleRef,
		Video:          updated,
	}, nil
}

func (s *subtitleService) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("media host returned %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("media exceeds %d bytes", s.maxBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("media is empty")
	}
	return data, nil
}

func mediaFileName(mediaRef string) string {
	name := path.Base(mediaRef)
	if path.Ext(name) == "" {
		name += ".mp4"
	}
	return name
}

func NewSubtitleService(
	repo repository.VideoRepository,
	host mediahost.Host,
	transcriber transcription.Transcriber,
	httpClient *http.Client,
	recorder *metrics.Recorder,
) SubtitleService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &subtitleService{
		repo:        repo,
		host:        host,
		transcriber: transcriber,
		httpClient:  httpClient,
		metrics:     recorder,
		maxBytes:    constant.MaxUploadBytes,
	}
}
