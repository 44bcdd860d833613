package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"video-library/constant"
	"video-library/dto"
	"video-library/entities"
	"video-library/pkg/mediahost"
	"video-library/service"
)

// multipartOverhead leaves room for the form fields around the file part.
const multipartOverhead = 1 << 20

type videoHandlers struct {
	deps Dependencies
}

func (h *videoHandlers) issueTicket(c *gin.Context) {
	var req dto.TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, validationError(err.Error()))
		return
	}

	ticket, err := h.deps.Uploads.IssueTicket(c.Request.Context(), ownerID(c), req.FileName, req.ContentType)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TicketResponse{
		URL:       ticket.URL,
		Fields:    ticket.Fields,
		MediaRef:  ticket.MediaRef,
		MaxBytes:  ticket.MaxBytes,
		IssuedAt:  ticket.IssuedAt,
		ExpiresAt: ticket.ExpiresAt,
	})
}

func (h *videoHandlers) list(c *gin.Context) {
	entries, err := h.deps.Catalog.List(c.Request.Context(), ownerID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	videos := make([]dto.VideoResponse, 0, len(entries))
	for _, entry := range entries {
		videos = append(videos, dto.NewVideoResponse(entry.Video, entry.ThumbnailURL))
	}
	c.JSON(http.StatusOK, videos)
}

func (h *videoHandlers) create(c *gin.Context) {
	var req dto.CreateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, validationError(err.Error()))
		return
	}

	video, err := h.deps.Uploads.CreateRecord(c.Request.Context(), ownerID(c), req)
	if err != nil {
		renderError(c, err)
		return
	}
	h.publish(c.Request.Context(), constant.EventVideoUploaded, video)
	c.JSON(http.StatusCreated, dto.NewVideoResponse(video, ""))
}

func (h *videoHandlers) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.deps.MaxUploadBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			renderError(c, &service.Error{
				Kind:    service.KindValidation,
				Code:    service.CodeFileTooLarge,
				Stage:   "validate",
				Message: "file exceeds the upload limit",
				Details: map[string]any{"maxBytes": h.deps.MaxUploadBytes},
			})
			return
		}
		renderError(c, validationError("file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		renderError(c, validationError("failed to read uploaded file"))
		return
	}
	defer file.Close()

	var description *string
	if value, ok := c.GetPostForm("description"); ok {
		description = &value
	}

	video, err := h.deps.Uploads.CompleteUpload(c.Request.Context(), ownerID(c), mediahost.File{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Reader:      file,
	}, c.PostForm("title"), description)
	if err != nil {
		renderError(c, err)
		return
	}
	h.publish(c.Request.Context(), constant.EventVideoUploaded, video)
	c.JSON(http.StatusCreated, dto.NewVideoResponse(video, ""))
}

func (h *videoHandlers) generateSubtitles(c *gin.Context) {
	id, ok := videoID(c)
	if !ok {
		return
	}
	var req dto.GenerateSubtitlesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			renderError(c, validationError(err.Error()))
			return
		}
	}

	result, err := h.deps.Subtitles.GenerateSubtitles(c.Request.Context(), ownerID(c), id, req.MediaRef)
	if err != nil {
		renderError(c, err)
		return
	}
	h.publish(c.Request.Context(), constant.EventSubtitlesGenerated, result.Video)
	c.JSON(http.StatusCreated, dto.SubtitleResponse{
		Success:        true,
		TranscriptText: result.TranscriptText,
		SubtitleRef:    result.SubtitleRef,
		Video:          dto.NewVideoResponse(result.Video, ""),
	})
}

func (h *videoHandlers) download(c *gin.Context) {
	id, ok := videoID(c)
	if !ok {
		return
	}
	url, err := h.deps.Catalog.DownloadURL(c.Request.Context(), ownerID(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *videoHandlers) subtitles(c *gin.Context) {
	id, ok := videoID(c)
	if !ok {
		return
	}
	url, err := h.deps.Catalog.SubtitleURL(c.Request.Context(), ownerID(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *videoHandlers) delete(c *gin.Context) {
	id, ok := videoID(c)
	if !ok {
		return
	}
	video, err := h.deps.Deletions.DeleteVideo(c.Request.Context(), ownerID(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	h.publish(c.Request.Context(), constant.EventVideoDeleted, video)
	c.JSON(http.StatusOK, dto.DeleteResponse{
		Success: true,
		Video:   dto.NewVideoResponse(video, ""),
	})
}

// publish reports a completed operation. The operation already succeeded, so failures are only logged.
func (h *videoHandlers) publish(ctx context.Context, eventType constant.EventType, video *entities.Video) {
	event := dto.VideoEvent{
		Type:       eventType,
		VideoID:    video.ID,
		OwnerID:    video.OwnerID,
		MediaRef:   video.MediaRef,
		OccurredAt: time.Now().UTC(),
	}
	if err := h.deps.Events.Publish(ctx, event); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", string(eventType)).Str("video_id", video.ID.String()).Msg("failed to publish event")
	}
}

func videoID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		renderError(c, validationError("invalid video id"))
		return uuid.Nil, false
	}
	return id, true
}

func validationError(message string) *service.Error {
	return &service.Error{
		Kind:    service.KindValidation,
		Code:    service.CodeInvalidInput,
		Stage:   "validate",
		Message: message,
	}
}

func renderError(c *gin.Context, err error) {
	svcErr := service.AsError(err)
	c.AbortWithStatusJSON(svcErr.HTTPStatus(), dto.ErrorResponse{
		Error: dto.ErrorBody{
			Kind:    string(svcErr.Kind),
			Code:    string(svcErr.Code),
			Stage:   svcErr.Stage,
			Message: svcErr.Message,
			Details: svcErr.Details,
		},
	})
}
