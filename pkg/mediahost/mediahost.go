// Package mediahost is the client for the remote object store that holds video media and the
// artifacts derived from it (subtitles, thumbnails).
package mediahost

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"sync/atomic"
	"time"
)

var (
	ErrAssetNotFound  = errors.New("media asset not found")
	ErrUploadRejected = errors.New("media host rejected upload")
	ErrTicketConsumed = errors.New("upload ticket already used")
	ErrTicketExpired  = errors.New("upload ticket expired")
)

type Host interface {
	IssueSignedUpload(ctx context.Context, constraints UploadConstraints) (*Ticket, error)
	Upload(ctx context.Context, ticket *Ticket, file File) (*UploadResult, error)
	ResolvePlayableURL(ctx context.Context, mediaRef string) (string, error)
	ResolveThumbnailURL(ctx context.Context, mediaRef string) (string, error)
	DeleteAsset(ctx context.Context, mediaRef string) error
	UploadRawArtifact(ctx context.Context, data []byte, namespace, name, contentType string) (string, error)
}

type UploadConstraints struct {
	Namespace   string
	FileName    string
	MaxBytes    int64
	ContentType string
	TTL         time.Duration
}

// Ticket is a signed, time-boxed permission to store exactly one object.
type Ticket struct {
	URL       string
	Fields    map[string]string
	MediaRef  string
	MaxBytes  int64
	IssuedAt  time.Time
	ExpiresAt time.Time

	consumed atomic.Bool
}

// Consume marks the ticket used. It fails if the ticket was used before or has expired.
func (t *Ticket) Consume(now time.Time) error {
	if !now.Before(t.ExpiresAt) {
		return ErrTicketExpired
	}
	if !t.consumed.CompareAndSwap(false, true) {
		return ErrTicketConsumed
	}
	return nil
}

type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type UploadResult struct {
	MediaRef        string
	Bytes           int64
	DurationSeconds float64
}

func ObjectKey(namespace, name string) string {
	return strings.Trim(namespace, "/") + "/" + strings.TrimLeft(name, "/")
}

func baseName(mediaRef string) string {
	base := path.Base(mediaRef)
	return strings.TrimSuffix(base, path.Ext(base))
}

// SubtitleArtifactName derives the subtitle object name from the source media so regenerating
// subtitles overwrites the previous artifact.
func SubtitleArtifactName(mediaRef string, format string) string {
	return baseName(mediaRef) + "-subtitles." + format
}

func ThumbnailName(mediaRef string) string {
	return baseName(mediaRef) + ".jpg"
}
