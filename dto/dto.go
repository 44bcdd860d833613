package dto

import (
	"time"

	"github.com/google/uuid"
	"video-library/constant"
)

type CreateVideoRequest struct {
	Title               string  `json:"title" binding:"required"`
	Description         *string `json:"description"`
	MediaRef            string  `json:"mediaRef" binding:"required"`
	OriginalSizeBytes   int64   `json:"originalSizeBytes" binding:"gte=0"`
	CompressedSizeBytes int64   `json:"compressedSizeBytes" binding:"gte=0"`
	DurationSeconds     float64 `json:"durationSeconds" binding:"gte=0"`
}

type TicketRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType"`
}

type GenerateSubtitlesRequest struct {
	MediaRef string `json:"mediaRef"`
}

type VideoResponse struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	Description         *string   `json:"description"`
	MediaRef            string    `json:"mediaRef"`
	OriginalSizeBytes   int64     `json:"originalSizeBytes"`
	CompressedSizeBytes int64     `json:"compressedSizeBytes"`
	CompressionPercent  int       `json:"compressionPercent"`
	DurationSeconds     float64   `json:"durationSeconds"`
	SubtitleRef         *string   `json:"subtitleRef"`
	HasSubtitles        bool      `json:"hasSubtitles"`
	SubtitleFormat      *string   `json:"subtitleFormat"`
	ThumbnailURL        string    `json:"thumbnailUrl,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type SubtitleResponse struct {
	Success        bool          `json:"success"`
	TranscriptText string        `json:"subtitles"`
	SubtitleRef    string        `json:"subtitleUrl"`
	Video          VideoResponse `json:"video"`
}

type DeleteResponse struct {
	Success bool          `json:"success"`
	Video   VideoResponse `json:"video"`
}

type TicketResponse struct {
	URL       string            `json:"url"`
	Fields    map[string]string `json:"fields"`
	MediaRef  string            `json:"mediaRef"`
	MaxBytes  int64             `json:"maxBytes"`
	IssuedAt  time.Time         `json:"issuedAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

type ErrorBody struct {
	Kind    string         `json:"kind"`
	Code    string         `json:"code"`
	Stage   string         `json:"stage,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// VideoEvent is published after a lifecycle operation completes.
type VideoEvent struct {
	Type       constant.EventType `json:"type"`
	VideoID    uuid.UUID          `json:"videoId"`
	OwnerID    string             `json:"ownerId"`
	MediaRef   string             `json:"mediaRef"`
	OccurredAt time.Time          `json:"occurredAt"`
}
