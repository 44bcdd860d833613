package entities

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Video is the canonical record for an uploaded asset. Subtitle fields are written only by
// subtitle generation and always together, so HasSubtitles agrees with SubtitleRef.
type Video struct {
	ID                  uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	OwnerID             string    `json:"ownerId" gorm:"type:varchar(255);not null;index:idx_videos_owner_created,priority:1"`
	Title               string    `json:"title" gorm:"type:varchar(255);not null"`
	Description         *string   `json:"description" gorm:"type:text"`
	MediaRef            string    `json:"mediaRef" gorm:"type:varchar(500);not null"`
	OriginalSizeBytes   int64     `json:"originalSizeBytes" gorm:"type:bigint;not null;default:0"`
	CompressedSizeBytes int64     `json:"compressedSizeBytes" gorm:"type:bigint;not null;default:0"`
	DurationSeconds     float64   `json:"durationSeconds" gorm:"not null;default:0"`
	SubtitleRef         *string   `json:"subtitleRef" gorm:"type:varchar(1000)"`
	HasSubtitles        bool      `json:"hasSubtitles" gorm:"not null;default:false"`
	SubtitleFormat      *string   `json:"subtitleFormat" gorm:"type:varchar(20)"`
	CreatedAt           time.Time `json:"createdAt" gorm:"not null;index:idx_videos_owner_created,priority:2,sort:desc"`
	UpdatedAt           time.Time `json:"updatedAt" gorm:"not null"`
}

func (Video) TableName() string {
	return "videos"
}

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// HasConsistentSubtitles reports whether the subtitle flag and reference agree.
func (v *Video) HasConsistentSubtitles() bool {
	return v.HasSubtitles == (v.SubtitleRef != nil)
}

// CompressionPercent is the size reduction achieved by the media host, clamped to [0, 100].
func (v *Video) CompressionPercent() int {
	if v.OriginalSizeBytes <= 0 {
		return 0
	}
	ratio := 1 - float64(v.CompressedSizeBytes)/float64(v.OriginalSizeBytes)
	pct := int(math.Round(ratio * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
