package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"video-library/entities"
)

// ErrNotFound is returned when a video is absent or belongs to another owner.
var ErrNotFound = errors.New("video not found")

// VideoRepository is the metadata store. Every method is scoped by owner id; callers never see or
// touch another owner's rows.
type VideoRepository interface {
	Migrate(ctx context.Context) error
	Create(ctx context.Context, video *entities.Video) error
	FindByID(ctx context.Context, ownerID string, id uuid.UUID) (*entities.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*entities.Video, error)
	UpdateSubtitles(ctx context.Context, ownerID string, id uuid.UUID, subtitleRef string, format string) (*entities.Video, error)
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) VideoRepository {
	return &repo{
		db: db,
	}
}

func (r *repo) GetDB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *repo) Migrate(ctx context.Context) error {
	return r.GetDB(ctx).AutoMigrate(&entities.Video{})
}

func (r *repo) Create(ctx context.Context, video *entities.Video) error {
	if video.OwnerID == "" {
		return errors.New("video owner is required")
	}
	return r.GetDB(ctx).Create(video).Error
}

func (r *repo) FindByID(ctx context.Context, ownerID string, id uuid.UUID) (*entities.Video, error) {
	video := &entities.Video{}
	err := r.GetDB(ctx).Where("owner_id = ? AND id = ?", ownerID, id).First(video).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return video, nil
}

func (r *repo) ListByOwner(ctx context.Context, ownerID string) ([]*entities.Video, error) {
	var videos []*entities.Video
	err := r.GetDB(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&videos).Error
	if err != nil {
		return nil, err
	}
	return videos, nil
}

// UpdateSubtitles writes the subtitle reference, flag and format in one statement.
func (r *repo) UpdateSubtitles(ctx context.Context, ownerID string, id uuid.UUID, subtitleRef string, format string) (*entities.Video, error) {
	updates := map[string]interface{}{
		"subtitle_ref":    subtitleRef,
		"has_subtitles":   true,
		"subtitle_format": format,
		"updated_at":      time.Now().UTC(),
	}
	res := r.GetDB(ctx).Model(&entities.Video{}).Where("owner_id = ? AND id = ?", ownerID, id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.FindByID(ctx, ownerID, id)
}

func (r *repo) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	res := r.GetDB(ctx).Where("owner_id = ? AND id = ?", ownerID, id).Delete(&entities.Video{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
