package mediahost

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"video-library/constant"
)

const defaultTicketTTL = 10 * time.Minute

// ProbeFunc reports the duration in seconds of the media reachable at url.
type ProbeFunc func(ctx context.Context, url string) (float64, error)

type MinioHost struct {
	client     *minio.Client
	bucket     string
	urlExpiry  time.Duration
	httpClient *http.Client
	probe      ProbeFunc
	now        func() time.Time
}

var _ Host = (*MinioHost)(nil)

type Option func(*MinioHost)

// WithHTTPClient overrides the client used to submit signed uploads.
func WithHTTPClient(client *http.Client) Option {
	return func(h *MinioHost) {
		if client != nil {
			h.httpClient = client
		}
	}
}

func WithProbe(probe ProbeFunc) Option {
	return func(h *MinioHost) {
		h.probe = probe
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *MinioHost) {
		if now != nil {
			h.now = now
		}
	}
}

func NewMinioHost(client *minio.Client, bucket string, urlExpiry time.Duration, opts ...Option) *MinioHost {
	if urlExpiry <= 0 {
		urlExpiry = time.Hour
	}
	h := &MinioHost{
		client:     client,
		bucket:     bucket,
		urlExpiry:  urlExpiry,
		httpClient: &http.Client{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EnsureBucket creates the bucket when it does not exist yet.
func (h *MinioHost) EnsureBucket(ctx context.Context, region string) error {
	exists, err := h.client.BucketExists(ctx, h.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := h.client.MakeBucket(ctx, h.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("bucket", h.bucket).Msg("created media bucket")
	return nil
}

func (h *MinioHost) IssueSignedUpload(ctx context.Context, constraints UploadConstraints) (*Ticket, error) {
	ttl := constraints.TTL
	if ttl <= 0 {
		ttl = defaultTicketTTL
	}
	namespace := constraints.Namespace
	if namespace == "" {
		namespace = constant.NamespaceUploads
	}
	key := ObjectKey(namespace, uuid.NewString()+filepath.Ext(constraints.FileName))
	issuedAt := h.now().UTC()
	expiresAt := issuedAt.Add(ttl)

	policy := minio.NewPostPolicy()
	if err := policy.SetBucket(h.bucket); err != nil {
		return nil, err
	}
	if err := policy.SetKey(key); err != nil {
		return nil, err
	}
	if err := policy.SetExpires(expiresAt); err != nil {
		return nil, err
	}
	if constraints.MaxBytes > 0 {
		if err := policy.SetContentLengthRange(1, constraints.MaxBytes); err != nil {
			return nil, err
		}
	}
	if constraints.ContentType != "" {
		if err := policy.SetContentType(constraints.ContentType); err != nil {
			return nil, err
		}
	}

	u, fields, err := h.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return nil, fmt.Errorf("presign upload policy: %w", err)
	}

	return &Ticket{
		URL:       u.String(),
		Fields:    fields,
		MediaRef:  key,
		MaxBytes:  constraints.MaxBytes,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Upload posts the file to the host with the ticket's signed form fields.
func (h *MinioHost) Upload(ctx context.Context, ticket *Ticket, file File) (*UploadResult, error) {
	if err := ticket.Consume(h.now()); err != nil {
		return nil, err
	}

	body, contentType, length, err := multipartBody(ticket.Fields, file)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ticket.URL, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", contentType)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadRejected, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUploadRejected, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	info, err := h.client.StatObject(ctx, h.bucket, ticket.MediaRef, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("stat uploaded object: %w", err)
	}

	result := &UploadResult{
		MediaRef: ticket.MediaRef,
		Bytes:    info.Size,
	}
	if h.probe != nil {
		playURL, err := h.presign(ctx, ticket.MediaRef)
		if err == nil {
			result.DurationSeconds, err = h.probe(ctx, playURL)
		}
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("media_ref", ticket.MediaRef).Msg("failed to probe media duration")
		}
	}
	return result, nil
}

func (h *MinioHost) ResolvePlayableURL(ctx context.Context, mediaRef string) (string, error) {
	if _, err := h.client.StatObject(ctx, h.bucket, mediaRef, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", fmt.Errorf("%w: %s", ErrAssetNotFound, mediaRef)
		}
		return "", fmt.Errorf("stat media: %w", err)
	}
	return h.presign(ctx, mediaRef)
}

func (h *MinioHost) ResolveThumbnailURL(ctx context.Context, mediaRef string) (string, error) {
	return h.presign(ctx, ObjectKey(constant.NamespaceThumbnails, ThumbnailName(mediaRef)))
}

// DeleteAsset removes the media object and its derived thumbnail. Missing objects are not an error.
func (h *MinioHost) DeleteAsset(ctx context.Context, mediaRef string) error {
	if err := h.client.RemoveObject(ctx, h.bucket, mediaRef, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove media: %w", err)
	}
	thumbnail := ObjectKey(constant.NamespaceThumbnails, ThumbnailName(mediaRef))
	if err := h.client.RemoveObject(ctx, h.bucket, thumbnail, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove thumbnail: %w", err)
	}
	return nil
}

func (h *MinioHost) UploadRawArtifact(ctx context.Context, data []byte, namespace, name, contentType string) (string, error) {
	key := ObjectKey(namespace, name)
	_, err := h.client.PutObject(ctx, h.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put artifact: %w", err)
	}
	return h.objectURL(key), nil
}

func (h *MinioHost) presign(ctx context.Context, key string) (string, error) {
	u, err := h.client.PresignedGetObject(ctx, h.bucket, key, h.urlExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

func (h *MinioHost) objectURL(key string) string {
	u := *h.client.EndpointURL()
	u.Path = path.Join("/", h.bucket, key)
	return u.String()
}

// multipartBody lays out the signed fields followed by the file part, the order S3 requires. The
// file is streamed, not buffered.
func multipartBody(fields map[string]string, file File) (io.Reader, string, int64, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", 0, err
		}
	}
	if _, err := w.CreateFormFile("file", filepath.Base(file.Name)); err != nil {
		return nil, "", 0, err
	}
	headLen := buf.Len()
	if err := w.Close(); err != nil {
		return nil, "", 0, err
	}
	head := append([]byte(nil), buf.Bytes()[:headLen]...)
	tail := append([]byte(nil), buf.Bytes()[headLen:]...)

	body := io.MultiReader(bytes.NewReader(head), io.LimitReader(file.Reader, file.Size), bytes.NewReader(tail))
	return body, w.FormDataContentType(), int64(len(head)) + file.Size + int64(len(tail)), nil
}
