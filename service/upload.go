package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"video-library/constant"
	"video-library/dto"
	"video-library/entities"
	"video-library/pkg/mediahost"
	"video-library/pkg/metrics"
	"video-library/repository"
)

type UploadService interface {
	// IssueTicket returns a signed, single-use permission for a client that uploads directly.
	IssueTicket(ctx context.Context, ownerID, fileName, contentType string) (*mediahost.Ticket, error)
	// CompleteUpload stores file on the media host and records its metadata.
	CompleteUpload(ctx context.Context, ownerID string, file mediahost.File, title string, description *string) (*entities.Video, error)
	// CreateRecord records metadata for media already stored through a ticket.
	CreateRecord(ctx context.Context, ownerID string, req dto.CreateVideoRequest) (*entities.Video, error)
}

type UploadOptions struct {
	MaxBytes  int64
	TicketTTL time.Duration
	// DirectTicketTTL bounds tickets handed to clients. The host accepts a presigned POST until it
	// expires, so it is kept shorter than TicketTTL.
	DirectTicketTTL time.Duration
}

type uploadService struct {
	repo            repository.VideoRepository
	host            mediahost.Host
	metrics         *metrics.Recorder
	maxBytes        int64
	ticketTTL       time.Duration
	directTicketTTL time.Duration
}

func (s *uploadService) IssueTicket(ctx context.Context, ownerID, fileName, contentType string) (*mediahost.Ticket, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated()
	}
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, errInvalid("file name is required")
	}

	ticket, err := s.host.IssueSignedUpload(ctx, s.constraints(fileName, contentType, s.directTicketTTL))
	if err != nil {
		svcErr := newError(KindRemoteService, CodeRemoteUploadFailed, "issue_ticket", "failed to issue upload ticket", err)
		logFailure(ctx, metrics.PipelineUpload, svcErr)
		return nil, svcErr
	}
	zerolog.Ctx(ctx).Info().Str("media_ref", ticket.MediaRef).Time("expires_at", ticket.ExpiresAt).Msg("issued upload ticket")
	return ticket, nil
}

func (s *uploadService) CompleteUpload(ctx context.Context, ownerID string, file mediahost.File, title string, description *string) (video *entities.Video, err error) {
	started := time.Now()
	defer func() {
		observe(ctx, s.metrics, metrics.PipelineUpload, started, err)
	}()

	if ownerID == "" {
		return nil, ErrUnauthenticated()
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errInvalid("title is required")
	}
	if file.Reader == nil || file.Size <= 0 {
		return nil, errInvalid("file is required")
	}
	if file.Size > s.maxBytes {
		return nil, newError(KindValidation, CodeFileTooLarge, "validate", "file exceeds the upload limit", nil).
			with("maxBytes", s.maxBytes).
			with("sizeBytes", file.Size)
	}

	ticket, err := s.host.IssueSignedUpload(ctx, s.constraints(file.Name, file.ContentType, s.ticketTTL))
	if err != nil {
		return nil, newError(KindRemoteService, CodeRemoteUploadFailed, "issue_ticket", "failed to issue upload ticket", err)
	}

	zerolog.Ctx(ctx).Info().Str("media_ref", ticket.MediaRef).Int64("size_bytes", file.Size).Msg("uploading media")
	result, err := s.host.Upload(ctx, ticket, file)
	if err != nil {
		return nil, newError(KindRemoteService, CodeRemoteUploadFailed, "upload", "media host upload failed", err)
	}

	video = &entities.Video{
		OwnerID:             ownerID,
		Title:               title,
		Description:         normalizeDescription(description),
		MediaRef:            result.MediaRef,
		OriginalSizeBytes:   file.Size,
		CompressedSizeBytes: result.Bytes,
		DurationSeconds:     result.DurationSeconds,
	}
	if err := s.repo.Create(ctx, video); err != nil {
		// The media is stored remotely but unrecorded; the details let a client register it via CreateRecord.
		return nil, newError(KindPersistence, CodeMetadataPersistFailed, "persist", "failed to record uploaded video", err).
			with("mediaRef", result.MediaRef).
			with("originalSizeBytes", file.Size).
			with("compressedSizeBytes", result.Bytes).
			with("durationSeconds", result.DurationSeconds)
	}

	zerolog.Ctx(ctx).Info().Str("video_id", video.ID.String()).Str("media_ref", video.MediaRef).Msg("video uploaded")
	return video, nil
}

func (s *uploadService) CreateRecord(ctx context.Context, ownerID string, req dto.CreateVideoRequest) (video *entities.Video, err error) {
	started := time.Now()
	defer func() {
		observe(ctx, s.metrics, metrics.PipelineUpload, started, err)
	}()

	if ownerID == "" {
		return nil, ErrUnauthenticated()
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errInvalid("title is required")
	}
	if !strings.HasPrefix(req.MediaRef, constant.NamespaceUploads+"/") {
		return nil, errInvalid("mediaRef must reference an uploaded video")
	}
	if req.OriginalSizeBytes < 0 || req.CompressedSizeBytes < 0 || req.DurationSeconds < 0 {
		return nil, errInvalid("sizes and duration must not be negative")
	}
	if req.OriginalSizeBytes > s.maxBytes {
		return nil, newError(KindValidation, CodeFileTooLarge, "validate", "file exceeds the upload limit", nil).
			with("maxBytes", s.maxBytes).
			with("sizeBytes", req.OriginalSizeBytes)
	}

	video = &entities.Video{
		OwnerID:             ownerID,
		Title:               title,
		Description:         normalizeDescription(req.Description),
		MediaRef:            req.MediaRef,
		OriginalSizeBytes:   req.OriginalSizeBytes,
		CompressedSizeBytes: req.CompressedSizeBytes,
		DurationSeconds:     req.DurationSeconds,
	}
	if err := s.repo.Create(ctx, video); err != nil {
		return nil, newError(KindPersistence, CodeMetadataPersistFailed, "persist", "failed to record video", err).
			with("mediaRef", req.MediaRef)
	}
	return video, nil
}

func (s *uploadService) constraints(fileName, contentType string, ttl time.Duration) mediahost.UploadConstraints {
	return mediahost.UploadConstraints{
		Namespace:   constant.NamespaceUploads,
		FileName:    fileName,
		MaxBytes:    s.maxBytes,
		ContentType: contentType,
		TTL:         ttl,
	}
}

func normalizeDescription(description *string) *string {
	if description == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*description)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func NewUploadService(repo repository.VideoRepository, host mediahost.Host, recorder *metrics.Recorder, opts UploadOptions) UploadService {
	if opts.MaxBytes <= 0 || opts.MaxBytes > constant.MaxUploadBytes {
		opts.MaxBytes = constant.MaxUploadBytes
	}
	if opts.TicketTTL <= 0 {
		opts.TicketTTL = 10 * time.Minute
	}
	if opts.DirectTicketTTL <= 0 {
		opts.DirectTicketTTL = 2 * time.Minute
	}
	return &uploadService{
		repo:            repo,
		host:            host,
		metrics:         recorder,
		maxBytes:        opts.MaxBytes,
		ticketTTL:       opts.TicketTTL,
		directTicketTTL: opts.DirectTicketTTL,
	}
}
