package library

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"video-library/constant"
	"video-library/dto"
)

var (
	ErrBusy                = errors.New("an operation is already running for this video")
	ErrUnknownVideo        = errors.New("video is not in the library")
	ErrConfirmationPending = errors.New("another action is awaiting confirmation")
	ErrNothingPending      = errors.New("no action is awaiting confirmation")
)

// Backend runs the lifecycle operations. *client.Client satisfies it.
type Backend interface {
	List(ctx context.Context) ([]dto.VideoResponse, error)
	GenerateSubtitles(ctx context.Context, id uuid.UUID, mediaRef string) (*dto.SubtitleResponse, error)
	Delete(ctx context.Context, id uuid.UUID) (*dto.DeleteResponse, error)
}

type Action string

const (
	ActionLoad              Action = "load"
	ActionDelete            Action = Action(constant.OperationDelete)
	ActionGenerateSubtitles Action = Action(constant.OperationGenerateSubtitles)
)

// Notification is the single terminal outcome of an action. Err is nil on success.
type Notification struct {
	Action  Action
	VideoID uuid.UUID
	Err     error
	// Transcript is the generated subtitle text of a successful generateSubtitles action.
	Transcript string
}

type Notifier interface {
	Notify(Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Pending is an action the user asked for but has not confirmed yet.
type Pending struct {
	VideoID   uuid.UUID
	Operation constant.Operation
}

type Library struct {
	backend  Backend
	notifier Notifier

	mu         sync.Mutex
	collection Collection
	pending    *Pending

	// seq counts settled changes; changes remembers the latest one per video while a Load is out.
	seq     uint64
	loads   int
	changes map[uuid.UUID]change
}

type change struct {
	seq  uint64
	kind EventKind
}

func New(backend Backend, notifier Notifier) *Library {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &Library{
		backend:  backend,
		notifier: notifier,
		changes:  map[uuid.UUID]change{},
	}
}

// Load replaces the collection with the owner's current list. Deletions, generations and uploads
// that settle while the list is in flight win over the list.
func (l *Library) Load(ctx context.Context) error {
	l.mu.Lock()
	issued := l.seq
	l.loads++
	l.mu.Unlock()

	videos, err := l.backend.List(ctx)

	l.mu.Lock()
	l.loads--
	if err == nil {
		l.collection = Reduce(l.collection, Event{Kind: EventLoaded, Videos: l.reconcile(videos, issued)})
	}
	if l.loads == 0 {
		clear(l.changes)
	}
	l.mu.Unlock()

	l.notifier.Notify(Notification{Action: ActionLoad, Err: err})
	return err
}

// reconcile drops listed videos deleted since issued, keeps local copies of videos updated since
// then and keeps entries added since then that the list missed. Callers hold l.mu.
func (l *Library) reconcile(videos []dto.VideoResponse, issued uint64) []dto.VideoResponse {
	listed := make(map[uuid.UUID]bool, len(videos))
	out := make([]dto.VideoResponse, 0, len(videos))
	for _, v := range videos {
		listed[v.ID] = true
		if c, ok := l.changes[v.ID]; ok && c.seq > issued {
			if c.kind == EventDeleted {
				continue
			}
			if current, found := l.collection.Find(v.ID); found {
				v = current.Video
			}
		}
		out = append(out, v)
	}

	var fresh []dto.VideoResponse
	for _, entry := range l.collection.Entries {
		if c, ok := l.changes[entry.Video.ID]; ok && c.seq > issued && !listed[entry.Video.ID] {
			fresh = append(fresh, entry.Video)
		}
	}
	return append(fresh, out...)
}

// Add records a video uploaded outside the library's actions.
func (l *Library) Add(video dto.VideoResponse) {
	l.apply(Event{Kind: EventUploaded, Video: video})
}

func (l *Library) RequestDelete(id uuid.UUID) error {
	return l.request(id, constant.OperationDelete)
}

func (l *Library) RequestSubtitles(id uuid.UUID) error {
	return l.request(id, constant.OperationGenerateSubtitles)
}

func (l *Library) request(id uuid.UUID, op constant.Operation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending != nil {
		return ErrConfirmationPending
	}
	entry, ok := l.collection.Find(id)
	if !ok {
		return ErrUnknownVideo
	}
	if entry.Status != constant.OperationStatusIdle {
		return ErrBusy
	}
	l.pending = &Pending{VideoID: id, Operation: op}
	return nil
}

// Decline drops the pending action without side effects.
func (l *Library) Decline() (Pending, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending == nil {
		return Pending{}, ErrNothingPending
	}
	p := *l.pending
	l.pending = nil
	return p, nil
}

// Confirm runs the pending action and blocks until the backend answers. Other videos can be
// requested and confirmed while it runs.
func (l *Library) Confirm(ctx context.Context) error {
	l.mu.Lock()
	if l.pending == nil {
		l.mu.Unlock()
		return ErrNothingPending
	}
	p := *l.pending
	l.pending = nil

	entry, ok := l.collection.Find(p.VideoID)
	var rejected error
	switch {
	case !ok:
		rejected = ErrUnknownVideo
	case entry.Status != constant.OperationStatusIdle:
		rejected = ErrBusy
	}
	if rejected != nil {
		l.mu.Unlock()
		l.notifier.Notify(Notification{Action: Action(p.Operation), VideoID: p.VideoID, Err: rejected})
		return rejected
	}
	l.collection = Reduce(l.collection, Event{Kind: EventOperationStarted, ID: p.VideoID, Operation: p.Operation})
	l.mu.Unlock()

	logger := zerolog.Ctx(ctx).With().Str("video_id", p.VideoID.String()).Str("operation", string(p.Operation)).Logger()
	logger.Debug().Msg("operation started")

	var (
		err        error
		transcript string
	)
	switch p.Operation {
	case constant.OperationDelete:
		_, err = l.backend.Delete(ctx, p.VideoID)
		if err == nil {
			l.apply(Event{Kind: EventDeleted, ID: p.VideoID})
		}
	case constant.OperationGenerateSubtitles:
		var result *dto.SubtitleResponse
		result, err = l.backend.GenerateSubtitles(ctx, p.VideoID, entry.Video.MediaRef)
		if err == nil {
			transcript = result.TranscriptText
			l.apply(Event{Kind: EventSubtitlesGenerated, Video: result.Video})
		}
	default:
		err = errors.New("unsupported operation " + string(p.Operation))
	}

	if err != nil {
		logger.Warn().Err(err).Msg("operation failed")
		l.apply(Event{Kind: EventOperationFailed, ID: p.VideoID})
	}
	l.notifier.Notify(Notification{Action: Action(p.Operation), VideoID: p.VideoID, Err: err, Transcript: transcript})
	return err
}

func (l *Library) Pending() (Pending, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		return Pending{}, false
	}
	return *l.pending, true
}

func (l *Library) Snapshot() Collection {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collection
}

func (l *Library) Status(id uuid.UUID) constant.OperationStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.collection.Find(id)
	if !ok {
		return constant.OperationStatusIdle
	}
	return entry.Status
}

// Can reports whether the entry's actions (download, subtitles, delete) are enabled.
func (l *Library) Can(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.collection.Find(id)
	return ok && entry.Status == constant.OperationStatusIdle
}

func (l *Library) apply(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.collection = Reduce(l.collection, e)

	var id uuid.UUID
	switch e.Kind {
	case EventDeleted:
		id = e.ID
	case EventSubtitlesGenerated, EventUploaded:
		id = e.Video.ID
	default:
		return
	}
	l.seq++
	if l.loads > 0 {
		l.changes[id] = change{seq: l.seq, kind: e.Kind}
	}
}
