package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"video-library/dto"
)

func TestListSendsBearerToken(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/api/videos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]dto.VideoResponse{{ID: id, Title: "Demo"}})
	}))
	defer srv.Close()

	videos, err := New(srv.URL+"/", "tok").List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != id {
		t.Fatalf("unexpected videos %+v", videos)
	}
}

func TestUploadStreamsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		if header.Filename != "demo.mp4" || string(data) != "media" {
			t.Errorf("unexpected file %s %q", header.Filename, data)
		}
		if r.FormValue("title") != "Demo" || r.FormValue("description") != "desc" {
			t.Errorf("unexpected fields %q %q", r.FormValue("title"), r.FormValue("description"))
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(dto.VideoResponse{Title: "Demo", OriginalSizeBytes: int64(len(data))})
	}))
	defer srv.Close()

	video, err := New(srv.URL, "tok").Upload(context.Background(), "demo.mp4", strings.NewReader("media"), "Demo", "desc")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if video.OriginalSizeBytes != 5 {
		t.Fatalf("unexpected video %+v", video)
	}
}

func TestErrorsDecodeServerBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(dto.ErrorResponse{Error: dto.ErrorBody{Kind: "not_found", Code: "not_found", Message: "video not found"}})
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok").Delete(context.Background(), uuid.New())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Body.Kind != "not_found" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestDownloadURLReturnsRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://media.test/video-uploads/a.mp4", http.StatusFound)
	}))
	defer srv.Close()

	url, err := New(srv.URL, "tok").DownloadURL(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("DownloadURL failed: %v", err)
	}
	if url != "http://media.test/video-uploads/a.mp4" {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestGenerateSubtitlesPostsMediaRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req dto.GenerateSubtitlesRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.MediaRef != "video-uploads/a.mp4" {
			t.Errorf("unexpected mediaRef %q", req.MediaRef)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(dto.SubtitleResponse{Success: true, TranscriptText: "Hello world"})
	}))
	defer srv.Close()

	result, err := New(srv.URL, "tok").GenerateSubtitles(context.Background(), uuid.New(), "video-uploads/a.mp4")
	if err != nil {
		t.Fatalf("GenerateSubtitles failed: %v", err)
	}
	if result.TranscriptText != "Hello world" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSubtitleURLFollowsNoRedirect(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/videos/"+id.String()+"/subtitles" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Redirect(w, r, "http://media.test/video-subtitles/a-subtitles.vtt?sig=1", http.StatusFound)
	}))
	defer srv.Close()

	url, err := New(srv.URL, "tok").SubtitleURL(context.Background(), id)
	if err != nil {
		t.Fatalf("SubtitleURL failed: %v", err)
	}
	if url != "http://media.test/video-subtitles/a-subtitles.vtt?sig=1" {
		t.Fatalf("unexpected url %s", url)
	}
}
