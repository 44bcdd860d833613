package testsupport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"video-library/pkg/mediahost"
)

// MediaHost is an in-memory mediahost.Host. Set the *Err fields to inject failures.
type MediaHost struct {
	mu sync.RWMutex

	objects   map[string][]byte
	issued    int
	uploads   int
	deletes   int
	artifacts map[string]string

	IssueErr    error
	UploadErr   error
	ResolveErr  error
	DeleteErr   error
	ArtifactErr error

	// Duration is reported for every upload.
	Duration float64
	// BaseURL prefixes every resolved URL.
	BaseURL string
	// ServeStatus, when non-zero, is returned by Handler instead of the object.
	ServeStatus int
}

var _ mediahost.Host = (*MediaHost)(nil)

func NewMediaHost() *MediaHost {
	return &MediaHost{
		objects:   map[string][]byte{},
		artifacts: map[string]string{},
		BaseURL:   "http://media.test",
	}
}

func (h *MediaHost) IssueSignedUpload(_ context.Context, constraints mediahost.UploadConstraints) (*mediahost.Ticket, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.issued++
	if h.IssueErr != nil {
		return nil, h.IssueErr
	}
	ttl := constraints.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	now := time.Now()
	return &mediahost.Ticket{
		URL:       h.BaseURL,
		Fields:    map[string]string{},
		MediaRef:  mediahost.ObjectKey(constraints.Namespace, fmt.Sprintf("%d-%s", h.issued, constraints.FileName)),
		MaxBytes:  constraints.MaxBytes,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func (h *MediaHost) Upload(_ context.Context, ticket *mediahost.Ticket, file mediahost.File) (*mediahost.UploadResult, error) {
	if err := ticket.Consume(time.Now()); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(file.Reader)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.uploads++
	if h.UploadErr != nil {
		return nil, h.UploadErr
	}
	h.objects[ticket.MediaRef] = data
	return &mediahost.UploadResult{
		MediaRef:        ticket.MediaRef,
		Bytes:           int64(len(data)),
		DurationSeconds: h.Duration,
	}, nil
}

func (h *MediaHost) ResolvePlayableURL(_ context.Context, mediaRef string) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.ResolveErr != nil {
		return "", h.ResolveErr
	}
	if _, ok := h.objects[mediaRef]; !ok {
		return "", mediahost.ErrAssetNotFound
	}
	return h.BaseURL + "/" + mediaRef, nil
}

func (h *MediaHost) ResolveThumbnailURL(_ context.Context, mediaRef string) (string, error) {
	return h.BaseURL + "/thumbnails/" + mediahost.ThumbnailName(mediaRef), nil
}

func (h *MediaHost) DeleteAsset(_ context.Context, mediaRef string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deletes++
	if h.DeleteErr != nil {
		return h.DeleteErr
	}
	delete(h.objects, mediaRef)
	return nil
}

func (h *MediaHost) UploadRawArtifact(_ context.Context, data []byte, namespace, name, _ string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ArtifactErr != nil {
		return "", h.ArtifactErr
	}
	key := mediahost.ObjectKey(namespace, name)
	h.objects[key] = append([]byte(nil), data...)
	h.artifacts[key] = string(data)
	return h.BaseURL + "/" + key, nil
}

// Put stores an object directly, as if uploaded earlier.
func (h *MediaHost) Put(key string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.objects[key] = data
}

func (h *MediaHost) Object(key string) ([]byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, ok := h.objects[key]
	return data, ok
}

func (h *MediaHost) Artifact(key string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, ok := h.artifacts[key]
	return data, ok
}

// Calls reports how many tickets, uploads and deletions the host has seen.
func (h *MediaHost) Calls() (issued, uploads, deletes int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.issued, h.uploads, h.deletes
}

// Handler serves stored objects over HTTP so callers can fetch resolved URLs.
func (h *MediaHost) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		status := h.ServeStatus
		h.mu.RUnlock()
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		data, ok := h.Object(strings.TrimPrefix(r.URL.Path, "/"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
	})
}
