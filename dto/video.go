package dto

import "video-library/entities"

func NewVideoResponse(v *entities.Video, thumbnailURL string) VideoResponse {
	return VideoResponse{
		ID:                  v.ID,
		Title:               v.Title,
		Description:         v.Description,
		MediaRef:            v.MediaRef,
		OriginalSizeBytes:   v.OriginalSizeBytes,
		CompressedSizeBytes: v.CompressedSizeBytes,
		CompressionPercent:  v.CompressionPercent(),
		DurationSeconds:     v.DurationSeconds,
		SubtitleRef:         v.SubtitleRef,
		HasSubtitles:        v.HasSubtitles,
		SubtitleFormat:      v.SubtitleFormat,
		ThumbnailURL:        thumbnailURL,
		CreatedAt:           v.CreatedAt,
		UpdatedAt:           v.UpdatedAt,
	}
}
