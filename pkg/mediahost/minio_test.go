package mediahost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const testBucket = "video-library"

// fakeS3 implements the handful of object calls the host makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	posts   int
	reject  bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/"+testBucket+"/")
	switch r.Method {
	case http.MethodPost:
		f.posts++
		if f.reject {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, "<Error><Code>AccessDenied</Code></Error>")
			return
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		f.objects[r.FormValue("key")] = data
		w.WriteHeader(http.StatusNoContent)
	case http.MethodHead:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) object(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key]
}

func (f *fakeS3) put(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

func (f *fakeS3) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func (f *fakeS3) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts
}

func newTestHost(t *testing.T, opts ...Option) (*MinioHost, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := minio.New(strings.TrimPrefix(server.URL, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4("access", "secret", ""),
		Secure: false,
		Region: "us-east-1",
	})
	if err != nil {
		t.Fatalf("minio.New failed: %v", err)
	}
	return NewMinioHost(client, testBucket, time.Hour, opts...), fake
}

func TestIssueSignedUploadEmbedsKeyAndExpiry(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	host, _ := newTestHost(t, WithClock(func() time.Time { return now }))

	ticket, err := host.IssueSignedUpload(context.Background(), UploadConstraints{
		Namespace: "video-uploads",
		FileName:  "demo.mp4",
		MaxBytes:  1024,
		TTL:       5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("IssueSignedUpload failed: %v", err)
	}
	if !strings.HasPrefix(ticket.MediaRef, "video-uploads/") || !strings.HasSuffix(ticket.MediaRef, ".mp4") {
		t.Fatalf("unexpected media ref %q", ticket.MediaRef)
	}
	if ticket.Fields["key"] != ticket.MediaRef {
		t.Fatalf("expected key field %q, got %q", ticket.MediaRef, ticket.Fields["key"])
	}
	if ticket.Fields["policy"] == "" {
		t.Fatal("expected signed policy field")
	}
	if !ticket.IssuedAt.Equal(now) || !ticket.ExpiresAt.Equal(now.Add(5*time.Minute)) {
		t.Fatalf("unexpected ticket window %s - %s", ticket.IssuedAt, ticket.ExpiresAt)
	}

	other, err := host.IssueSignedUpload(context.Background(), UploadConstraints{FileName: "demo.mp4"})
	if err != nil {
		t.Fatalf("IssueSignedUpload failed: %v", err)
	}
	if other.MediaRef == ticket.MediaRef {
		t.Fatal("expected every ticket to target a fresh object key")
	}
}

func TestUploadStoresFileAndReportsSize(t *testing.T) {
	host, fake := newTestHost(t, WithProbe(func(ctx context.Context, url string) (float64, error) {
		return 12.5, nil
	}))
	ctx := context.Background()

	ticket, err := host.IssueSignedUpload(ctx, UploadConstraints{FileName: "clip.mp4", MaxBytes: 1 << 20})
	if err != nil {
		t.Fatalf("IssueSignedUpload failed: %v", err)
	}
	payload := []byte("fake video bytes")
	result, err := host.Upload(ctx, ticket, File{Name: "clip.mp4", Size: int64(len(payload)), Reader: bytes.NewReader(payload)})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if result.MediaRef != ticket.MediaRef {
		t.Fatalf("expected media ref %q, got %q", ticket.MediaRef, result.MediaRef)
	}
	if result.Bytes != int64(len(payload)) {
		t.Fatalf("expected %d bytes, got %d", len(payload), result.Bytes)
	}
	if result.DurationSeconds != 12.5 {
		t.Fatalf("expected probed duration 12.5, got %v", result.DurationSeconds)
	}
	if !bytes.Equal(fake.object(ticket.MediaRef), payload) {
		t.Fatalf("stored object mismatch: %q", fake.object(ticket.MediaRef))
	}

	_, err = host.Upload(ctx, ticket, File{Name: "clip.mp4", Size: int64(len(payload)), Reader: bytes.NewReader(payload)})
	if !errors.Is(err, ErrTicketConsumed) {
		t.Fatalf("expected ErrTicketConsumed on reuse, got %v", err)
	}
	if fake.postCount() != 1 {
		t.Fatalf("expected a single POST to the host, got %d", fake.postCount())
	}
}

func TestUploadRejectedByHost(t *testing.T) {
	host, fake := newTestHost(t)
	fake.mu.Lock()
	fake.reject = true
	fake.mu.Unlock()
	ctx := context.Background()

	ticket, err := host.IssueSignedUpload(ctx, UploadConstraints{FileName: "clip.mp4"})
	if err != nil {
		t.Fatalf("IssueSignedUpload failed: %v", err)
	}
	_, err = host.Upload(ctx, ticket, File{Name: "clip.mp4", Size: 3, Reader: strings.NewReader("abc")})
	if !errors.Is(err, ErrUploadRejected) {
		t.Fatalf("expected ErrUploadRejected, got %v", err)
	}
}

func TestUploadExpiredTicket(t *testing.T) {
	now := time.Now()
	host, fake := newTestHost(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	ticket, err := host.IssueSignedUpload(ctx, UploadConstraints{FileName: "clip.mp4", TTL: time.Minute})
	if err != nil {
		t.Fatalf("IssueSignedUpload failed: %v", err)
	}
	now = now.Add(2 * time.Minute)
	_, err = host.Upload(ctx, ticket, File{Name: "clip.mp4", Size: 3, Reader: strings.NewReader("abc")})
	if !errors.Is(err, ErrTicketExpired) {
		t.Fatalf("expected ErrTicketExpired, got %v", err)
	}
	if fake.postCount() != 0 {
		t.Fatalf("expected no POST for an expired ticket, got %d", fake.postCount())
	}
}

func TestResolvePlayableURL(t *testing.T) {
	host, fake := newTestHost(t)
	ctx := context.Background()

	if _, err := host.ResolvePlayableURL(ctx, "video-uploads/missing.mp4"); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}

	fake.put("video-uploads/present.mp4", []byte("data"))
	url, err := host.ResolvePlayableURL(ctx, "video-uploads/present.mp4")
	if err != nil {
		t.Fatalf("ResolvePlayableURL failed: %v", err)
	}
	if !strings.Contains(url, "/"+testBucket+"/video-uploads/present.mp4") || !strings.Contains(url, "X-Amz-Signature") {
		t.Fatalf("expected presigned object url, got %q", url)
	}
}

func TestUploadRawArtifactReturnsDurableURL(t *testing.T) {
	host, fake := newTestHost(t)

	url, err := host.UploadRawArtifact(context.Background(), []byte("WEBVTT\n\nhello"), "video-subtitles", "abc-subtitles.vtt", "text/vtt")
	if err != nil {
		t.Fatalf("UploadRawArtifact failed: %v", err)
	}
	if !strings.HasSuffix(url, "/"+testBucket+"/video-subtitles/abc-subtitles.vtt") {
		t.Fatalf("unexpected artifact url %q", url)
	}
	if strings.Contains(url, "X-Amz-") {
		t.Fatalf("expected unsigned durable url, got %q", url)
	}
	if !bytes.Contains(fake.object("video-subtitles/abc-subtitles.vtt"), []byte("WEBVTT")) {
		t.Fatal("expected artifact content to be stored")
	}
}

func TestDeleteAssetIsIdempotent(t *testing.T) {
	host, fake := newTestHost(t)
	ctx := context.Background()
	fake.put("video-uploads/abc.mp4", []byte("data"))
	fake.put("video-thumbnails/abc.jpg", []byte("jpg"))

	if err := host.DeleteAsset(ctx, "video-uploads/abc.mp4"); err != nil {
		t.Fatalf("DeleteAsset failed: %v", err)
	}
	if fake.count() != 0 {
		t.Fatalf("expected media and thumbnail removed, %d objects left", fake.count())
	}
	if err := host.DeleteAsset(ctx, "video-uploads/abc.mp4"); err != nil {
		t.Fatalf("expected deleting a missing asset to succeed, got %v", err)
	}
}

func TestArtifactNamesAreDeterministic(t *testing.T) {
	if got := SubtitleArtifactName("video-uploads/abc.mp4", "vtt"); got != "abc-subtitles.vtt" {
		t.Fatalf("unexpected subtitle name %q", got)
	}
	if got := ThumbnailName("video-uploads/abc.mp4"); got != "abc.jpg" {
		t.Fatalf("unexpected thumbnail name %q", got)
	}
	if got := ObjectKey("/video-subtitles/", "/abc.vtt"); got != "video-subtitles/abc.vtt" {
		t.Fatalf("unexpected object key %q", got)
	}
}

func TestParseProbeDuration(t *testing.T) {
	got, err := parseProbeDuration([]byte(`{"format":{"duration":"63.250000"}}`))
	if err != nil {
		t.Fatalf("parseProbeDuration failed: %v", err)
	}
	if got != 63.25 {
		t.Fatalf("expected 63.25, got %v", got)
	}
	if _, err := parseProbeDuration([]byte(`{"format":{}}`)); err == nil {
		t.Fatal("expected error for missing duration")
	}
}
