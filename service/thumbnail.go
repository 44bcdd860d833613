package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
	"video-library/constant"
	"video-library/dto"
	"video-library/pkg/mediahost"
	"video-library/repository"
)

// ErrNonRetryable marks event failures that redelivery cannot fix.
var ErrNonRetryable = errors.New("non-retryable error")

const (
	thumbnailWidth  = 400
	thumbnailHeight = 225
)

// RenderFunc writes a single still frame of the media at sourceURL to outputPath.
type RenderFunc func(ctx context.Context, sourceURL, outputPath string) error

type ThumbnailService interface {
	Generate(ctx context.Context, event dto.VideoEvent) error
}

type thumbnailService struct {
	repo   repository.VideoRepository
	host   mediahost.Host
	render RenderFunc
	tmpDir string
}

func (s *thumbnailService) Generate(ctx context.Context, event dto.VideoEvent) (err error) {
	if event.Type != constant.EventVideoUploaded {
		return nil
	}
	logger := zerolog.Ctx(ctx).With().Str("video_id", event.VideoID.String()).Str("media_ref", event.MediaRef).Logger()
	logger.Info().Msg("generating thumbnail")

	defer func() {
		if err != nil && errors.Is(err, ErrNonRetryable) {
			logger.Warn().Err(err).Msg("dropping thumbnail job")
			err = nil
		}
	}()

	video, err := s.repo.FindByID(ctx, event.OwnerID, event.VideoID)
	if errors.Is(err, repository.ErrNotFound) {
		return errors.Join(ErrNonRetryable, err)
	}
	if err != nil {
		return err
	}

	sourceURL, err := s.host.ResolvePlayableURL(ctx, video.MediaRef)
	if errors.Is(err, mediahost.ErrAssetNotFound) {
		return errors.Join(ErrNonRetryable, err)
	}
	if err != nil {
		return err
	}

	workDir, err := os.MkdirTemp(s.tmpDir, "thumbnail-")
	if err != nil {
		return errors.Join(ErrNonRetryable, err)
	}
	defer os.RemoveAll(workDir)

	outputPath := filepath.Join(workDir, "thumbnail.jpg")
	if err = s.render(ctx, sourceURL, outputPath); err != nil {
		return errors.Join(ErrNonRetryable, err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return errors.Join(ErrNonRetryable, err)
	}

	ref, err := s.host.UploadRawArtifact(ctx, data, constant.NamespaceThumbnails, mediahost.ThumbnailName(video.MediaRef), "image/jpeg")
	if err != nil {
		return err
	}

	logger.Info().Str("thumbnail_ref", ref).Msg("thumbnail stored")
	return nil
}

// FFmpegThumbnail picks a representative frame and letterboxes it to the card size.
func FFmpegThumbnail(ctx context.Context, sourceURL, outputPath string) error {
	filter := fmt.Sprintf(
		"thumbnail,scale=w=%d:h=%d:force_original_aspect_ratio=decrease,pad=w=%d:h=%d:x=(ow-iw)/2:y=(oh-ih)/2",
		thumbnailWidth, thumbnailHeight, thumbnailWidth, thumbnailHeight)

	ffmpegArgs := []string{
		"-y",
		"-i", sourceURL,
		"-vf", filter,
		"-frames:v", "1",
		"-q:v", "3",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", ffmpegArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		zerolog.Ctx(ctx).Debug().Str("ffmpeg_output", string(output)).Msg("ffmpeg failed")
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}
	return nil
}

func NewThumbnailService(repo repository.VideoRepository, host mediahost.Host, render RenderFunc, tmpDir string) ThumbnailService {
	if render == nil {
		render = FFmpegThumbnail
	}
	return &thumbnailService{
		repo:   repo,
		host:   host,
		render: render,
		tmpDir: tmpDir,
	}
}
