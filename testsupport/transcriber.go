package testsupport

import (
	"context"
	"sync"

	"video-library/pkg/transcription"
)

// Transcriber returns Text for every call, or Err when set.
type Transcriber struct {
	mu    sync.Mutex
	Text  string
	Err   error
	calls []transcription.Media
}

var _ transcription.Transcriber = (*Transcriber)(nil)

func (t *Transcriber) Transcribe(_ context.Context, media transcription.Media, _, _ string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, media)
	if t.Err != nil {
		return "", t.Err
	}
	return t.Text, nil
}

func (t *Transcriber) SetText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Text = text
}

func (t *Transcriber) Calls() []transcription.Media {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]transcription.Media(nil), t.calls...)
}
