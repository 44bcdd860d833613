package library

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"video-library/constant"
	"video-library/dto"
)

type fakeBackend struct {
	mu      sync.Mutex
	videos  []dto.VideoResponse
	calls   int
	release chan struct{}
	err     error

	// listTaken and listHold, when set, pause the next List after it has read the videos.
	listTaken chan struct{}
	listHold  chan struct{}
}

func (b *fakeBackend) List(context.Context) ([]dto.VideoResponse, error) {
	b.mu.Lock()
	out := append([]dto.VideoResponse(nil), b.videos...)
	taken, hold := b.listTaken, b.listHold
	b.listTaken, b.listHold = nil, nil
	b.mu.Unlock()
	if hold != nil {
		close(taken)
		<-hold
	}
	return out, nil
}

func (b *fakeBackend) holdNextList() (taken, hold chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listTaken, b.listHold = make(chan struct{}), make(chan struct{})
	return b.listTaken, b.listHold
}

func (b *fakeBackend) wait() error {
	b.mu.Lock()
	b.calls++
	release, err := b.release, b.err
	b.mu.Unlock()
	if release != nil {
		<-release
	}
	return err
}

func (b *fakeBackend) GenerateSubtitles(_ context.Context, id uuid.UUID, mediaRef string) (*dto.SubtitleResponse, error) {
	if err := b.wait(); err != nil {
		return nil, err
	}
	ref := "http://media.test/video-subtitles/" + id.String() + "-subtitles.vtt"
	format := "vtt"
	return &dto.SubtitleResponse{
		Success:        true,
		TranscriptText: "Hello world",
		SubtitleRef:    ref,
		Video:          dto.VideoResponse{ID: id, MediaRef: mediaRef, HasSubtitles: true, SubtitleRef: &ref, SubtitleFormat: &format},
	}, nil
}

func (b *fakeBackend) Delete(_ context.Context, id uuid.UUID) (*dto.DeleteResponse, error) {
	if err := b.wait(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, v := range b.videos {
		if v.ID == id {
			b.videos = append(b.videos[:i:i], b.videos[i+1:]...)
			break
		}
	}
	return &dto.DeleteResponse{Success: true, Video: dto.VideoResponse{ID: id}}, nil
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type notifications struct {
	mu  sync.Mutex
	got []Notification
}

func (n *notifications) Notify(note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, note)
}

func (n *notifications) forAction(action Action) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Notification
	for _, note := range n.got {
		if note.Action == action {
			out = append(out, note)
		}
	}
	return out
}

func newLoadedLibrary(t *testing.T, backend *fakeBackend) (*Library, *notifications) {
	t.Helper()
	notes := &notifications{}
	lib := New(backend, notes)
	if err := lib.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return lib, notes
}

func videos(n int) []dto.VideoResponse {
	out := make([]dto.VideoResponse, n)
	for i := range out {
		out[i] = dto.VideoResponse{ID: uuid.New(), Title: "video", MediaRef: "video-uploads/v.mp4", ThumbnailURL: "http://media.test/thumb.jpg"}
	}
	return out
}

func TestLoadStartsIdle(t *testing.T) {
	backend := &fakeBackend{videos: videos(3)}
	lib, notes := newLoadedLibrary(t, backend)

	snap := lib.Snapshot()
	if len(snap.Entries) != 3 || snap.Version != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	for _, e := range snap.Entries {
		if e.Status != constant.OperationStatusIdle || !lib.Can(e.Video.ID) {
			t.Fatalf("expected idle entry, got %s", e.Status)
		}
	}
	if got := notes.forAction(ActionLoad); len(got) != 1 || got[0].Err != nil {
		t.Fatalf("expected one load notification, got %+v", got)
	}
}

func TestDeclineHasNoSideEffects(t *testing.T) {
	backend := &fakeBackend{videos: videos(1)}
	lib, notes := newLoadedLibrary(t, backend)
	id := backend.videos[0].ID
	before := lib.Snapshot()

	if err := lib.RequestDelete(id); err != nil {
		t.Fatalf("RequestDelete failed: %v", err)
	}
	if p, ok := lib.Pending(); !ok || p.VideoID != id || p.Operation != constant.OperationDelete {
		t.Fatalf("unexpected pending %+v", p)
	}
	if _, err := lib.Decline(); err != nil {
		t.Fatalf("Decline failed: %v", err)
	}

	if backend.callCount() != 0 {
		t.Fatal("declined action must not reach the backend")
	}
	if after := lib.Snapshot(); after.Version != before.Version || after.Entries[0].Status != constant.OperationStatusIdle {
		t.Fatalf("declined action changed state: %+v", after)
	}
	if len(notes.forAction(ActionDelete)) != 0 {
		t.Fatal("declined action must not notify")
	}
	if _, err := lib.Decline(); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("expected ErrNothingPending, got %v", err)
	}
}

func TestConfirmDeleteRemovesEntry(t *testing.T) {
	backend := &fakeBackend{videos: videos(2)}
	lib, notes := newLoadedLibrary(t, backend)
	id := backend.videos[0].ID

	if err := lib.RequestDelete(id); err != nil {
		t.Fatalf("RequestDelete failed: %v", err)
	}
	if err := lib.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if _, ok := lib.Snapshot().Find(id); ok {
		t.Fatal("deleted entry must be removed")
	}
	if got := notes.forAction(ActionDelete); len(got) != 1 || got[0].Err != nil || got[0].VideoID != id {
		t.Fatalf("expected one success notification, got %+v", got)
	}
}

func TestConfirmSubtitlesUpdatesInPlace(t *testing.T) {
	backend := &fakeBackend{videos: videos(2)}
	lib, notes := newLoadedLibrary(t, backend)
	id := backend.videos[1].ID

	if err := lib.RequestSubtitles(id); err != nil {
		t.Fatalf("RequestSubtitles failed: %v", err)
	}
	if err := lib.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	snap := lib.Snapshot()
	if snap.Entries[1].Video.ID != id {
		t.Fatal("entry must keep its position")
	}
	entry := snap.Entries[1]
	if !entry.Video.HasSubtitles || entry.Video.SubtitleRef == nil || entry.Status != constant.OperationStatusIdle {
		t.Fatalf("unexpected entry after generation %+v", entry)
	}
	if entry.Video.ThumbnailURL != "http://media.test/thumb.jpg" {
		t.Fatalf("generation must keep the thumbnail, got %q", entry.Video.ThumbnailURL)
	}
	got := notes.forAction(ActionGenerateSubtitles)
	if len(got) != 1 || got[0].Err != nil || got[0].Transcript != "Hello world" {
		t.Fatalf("expected the transcript on the success notification, got %+v", got)
	}
}

func TestFailureRevertsToIdle(t *testing.T) {
	backend := &fakeBackend{videos: videos(1), err: errors.New("transcription failed")}
	lib, notes := newLoadedLibrary(t, backend)
	id := backend.videos[0].ID
	before, _ := lib.Snapshot().Find(id)

	lib.RequestSubtitles(id)
	if err := lib.Confirm(context.Background()); err == nil {
		t.Fatal("expected backend error")
	}

	after, ok := lib.Snapshot().Find(id)
	if !ok || after.Status != constant.OperationStatusIdle || after.Video.HasSubtitles != before.Video.HasSubtitles {
		t.Fatalf("entry must be unchanged and idle, got %+v", after)
	}
	if got := notes.forAction(ActionGenerateSubtitles); len(got) != 1 || got[0].Err == nil {
		t.Fatalf("expected one error notification, got %+v", got)
	}
	if !lib.Can(id) {
		t.Fatal("controls must be re-enabled after failure")
	}
}

func TestInFlightEntryRejectsRequests(t *testing.T) {
	backend := &fakeBackend{videos: videos(2), release: make(chan struct{})}
	lib, _ := newLoadedLibrary(t, backend)
	busy, other := backend.videos[0].ID, backend.videos[1].ID

	lib.RequestSubtitles(busy)
	done := make(chan error, 1)
	go func() { done <- lib.Confirm(context.Background()) }()

	waitFor(t, func() bool { return lib.Status(busy) == constant.OperationStatusGeneratingSubtitles })
	if lib.Can(busy) {
		t.Fatal("busy entry must have its controls disabled")
	}
	if err := lib.RequestDelete(busy); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for delete, got %v", err)
	}
	if err := lib.RequestSubtitles(busy); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for second generation, got %v", err)
	}
	if err := lib.RequestDelete(other); err != nil {
		t.Fatalf("other entries must stay usable, got %v", err)
	}
	lib.Decline()

	close(backend.release)
	if err := <-done; err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if lib.Status(busy) != constant.OperationStatusIdle {
		t.Fatal("entry must return to idle")
	}
}

func TestConcurrentRequestsKeepOneOperationPerEntry(t *testing.T) {
	backend := &fakeBackend{videos: videos(1), release: make(chan struct{})}
	lib, _ := newLoadedLibrary(t, backend)
	id := backend.videos[0].ID

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				err = lib.RequestDelete(id)
			} else {
				err = lib.RequestSubtitles(id)
			}
			if err != nil {
				return
			}
			mu.Lock()
			started++
			mu.Unlock()
			go lib.Confirm(context.Background())
		}(i)
	}
	wg.Wait()
	if started != 1 {
		t.Fatalf("expected one accepted request, got %d", started)
	}

	waitFor(t, func() bool { return backend.callCount() >= 1 })
	time.Sleep(20 * time.Millisecond)
	if backend.callCount() != 1 {
		t.Fatalf("expected exactly one backend call, got %d", backend.callCount())
	}
	close(backend.release)
}

func TestReloadKeepsInFlightStatus(t *testing.T) {
	backend := &fakeBackend{videos: videos(2), release: make(chan struct{})}
	lib, _ := newLoadedLibrary(t, backend)
	id := backend.videos[0].ID

	lib.RequestDelete(id)
	done := make(chan error, 1)
	go func() { done <- lib.Confirm(context.Background()) }()
	waitFor(t, func() bool { return lib.Status(id) == constant.OperationStatusDeleting })

	if err := lib.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := lib.RequestSubtitles(id); !errors.Is(err, ErrBusy) {
		t.Fatalf("reload must not re-enable an in-flight entry, got %v", err)
	}
	close(backend.release)
	<-done
}

func TestReloadInFlightDoesNotRestoreDeletedEntry(t *testing.T) {
	backend := &fakeBackend{videos: videos(2)}
	lib, _ := newLoadedLibrary(t, backend)
	gone, kept := backend.videos[0].ID, backend.videos[1].ID

	taken, hold := backend.holdNextList()
	loaded := make(chan error, 1)
	go func() { loaded <- lib.Load(context.Background()) }()
	<-taken

	if err := lib.RequestDelete(gone); err != nil {
		t.Fatalf("RequestDelete failed: %v", err)
	}
	if err := lib.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	close(hold)
	if err := <-loaded; err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, ok := lib.Snapshot().Find(gone); ok || lib.Can(gone) {
		t.Fatal("a list taken before the delete must not bring the entry back")
	}
	if _, ok := lib.Snapshot().Find(kept); !ok {
		t.Fatal("other entries must survive the reload")
	}
	if err := lib.RequestDelete(gone); !errors.Is(err, ErrUnknownVideo) {
		t.Fatalf("expected ErrUnknownVideo, got %v", err)
	}
}

func TestReloadInFlightKeepsGeneratedSubtitles(t *testing.T) {
	backend := &fakeBackend{videos: videos(1)}
	lib, _ := newLoadedLibrary(t, backend)
	id := backend.videos[0].ID

	taken, hold := backend.holdNextList()
	loaded := make(chan error, 1)
	go func() { loaded <- lib.Load(context.Background()) }()
	<-taken

	lib.RequestSubtitles(id)
	if err := lib.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	close(hold)
	<-loaded

	entry, ok := lib.Snapshot().Find(id)
	if !ok || !entry.Video.HasSubtitles {
		t.Fatalf("a list taken before generation must not clear subtitles, got %+v", entry)
	}

	// With nothing in flight the next reload is applied as listed.
	if err := lib.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if entry, _ := lib.Snapshot().Find(id); entry.Video.HasSubtitles {
		t.Fatal("a fresh list must replace the entry")
	}
}

func TestConfirmOfVanishedEntryNotifies(t *testing.T) {
	backend := &fakeBackend{videos: videos(1)}
	lib, notes := newLoadedLibrary(t, backend)
	id := backend.videos[0].ID

	if err := lib.RequestDelete(id); err != nil {
		t.Fatalf("RequestDelete failed: %v", err)
	}
	backend.mu.Lock()
	backend.videos = nil
	backend.mu.Unlock()
	if err := lib.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := lib.Confirm(context.Background()); !errors.Is(err, ErrUnknownVideo) {
		t.Fatalf("expected ErrUnknownVideo, got %v", err)
	}
	got := notes.forAction(ActionDelete)
	if len(got) != 1 || !errors.Is(got[0].Err, ErrUnknownVideo) || got[0].VideoID != id {
		t.Fatalf("expected one error notification, got %+v", got)
	}
	if backend.callCount() != 0 {
		t.Fatal("a vanished entry must not reach the backend")
	}
}

func TestReduceIsPure(t *testing.T) {
	vs := videos(2)
	base := Reduce(Collection{}, Event{Kind: EventLoaded, Videos: vs})
	started := Reduce(base, Event{Kind: EventOperationStarted, ID: vs[0].ID, Operation: constant.OperationDelete})

	if base.Entries[0].Status != constant.OperationStatusIdle {
		t.Fatal("Reduce must not mutate its input")
	}
	if started.Entries[0].Status != constant.OperationStatusDeleting || started.Version != base.Version+1 {
		t.Fatalf("unexpected reduced collection %+v", started)
	}

	again := Reduce(started, Event{Kind: EventOperationStarted, ID: vs[0].ID, Operation: constant.OperationGenerateSubtitles})
	if again.Entries[0].Status != constant.OperationStatusDeleting {
		t.Fatal("a busy entry must not switch operations")
	}

	uploaded := dto.VideoResponse{ID: uuid.New(), Title: "new"}
	withUpload := Reduce(base, Event{Kind: EventUploaded, Video: uploaded})
	if len(withUpload.Entries) != 3 || withUpload.Entries[0].Video.ID != uploaded.ID {
		t.Fatal("uploads must be prepended")
	}

	missing := Reduce(base, Event{Kind: EventSubtitlesGenerated, Video: dto.VideoResponse{ID: uuid.New()}})
	if len(missing.Entries) != 2 {
		t.Fatal("completion for an unknown id must not add entries")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
