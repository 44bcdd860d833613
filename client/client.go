// Package client talks to the video library HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"video-library/dto"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	Body   dto.ErrorBody
}

func (e *APIError) Error() string {
	if e.Body.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%s/%s)", e.Body.Message, e.Body.Kind, e.Body.Code)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			// Redirects are surfaced to the caller for the download action.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) List(ctx context.Context) ([]dto.VideoResponse, error) {
	var videos []dto.VideoResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/videos", nil, http.StatusOK, &videos)
	return videos, err
}

// Upload streams the media at r as a multipart form.
func (c *Client) Upload(ctx context.Context, fileName string, r io.Reader, title, description string) (*dto.VideoResponse, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		err := func() error {
			if err := writer.WriteField("title", title); err != nil {
				return err
			}
			if description != "" {
				if err := writer.WriteField("description", description); err != nil {
					return err
				}
			}
			part, err := writer.CreateFormFile("file", fileName)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, r); err != nil {
				return err
			}
			return writer.Close()
		}()
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/videos/upload", pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var video dto.VideoResponse
	if err := c.do(req, http.StatusCreated, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func (c *Client) GenerateSubtitles(ctx context.Context, id uuid.UUID, mediaRef string) (*dto.SubtitleResponse, error) {
	var result dto.SubtitleResponse
	body := dto.GenerateSubtitlesRequest{MediaRef: mediaRef}
	if err := c.doJSON(ctx, http.MethodPost, "/api/videos/"+id.String()+"/subtitles", body, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Delete(ctx context.Context, id uuid.UUID) (*dto.DeleteResponse, error) {
	var result dto.DeleteResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/api/videos/"+id.String(), nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DownloadURL returns the location the server redirects the download to.
func (c *Client) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	return c.redirect(ctx, "/api/videos/"+id.String()+"/download")
}

// SubtitleURL returns a signed location of the video's subtitle file.
func (c *Client) SubtitleURL(ctx context.Context, id uuid.UUID) (string, error) {
	return c.redirect(ctx, "/api/videos/"+id.String()+"/subtitles")
}

func (c *Client) redirect(ctx context.Context, path string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		return "", decodeError(resp)
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("redirect without location")
	}
	return location, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, want, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body dto.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Body = body.Error
	} else {
		apiErr.Body.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
