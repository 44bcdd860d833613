// Package library is the client-side view of an owner's videos: an ordered, versioned collection
// plus the per-video operation status that keeps at most one lifecycle operation in flight.
package library

import (
	"github.com/google/uuid"
	"video-library/constant"
	"video-library/dto"
)

type Entry struct {
	Video  dto.VideoResponse
	Status constant.OperationStatus
}

// Collection is immutable once built; Reduce returns a new one.
type Collection struct {
	Version uint64
	Entries []Entry
}

func (c Collection) Find(id uuid.UUID) (Entry, bool) {
	if i := c.index(id); i >= 0 {
		return c.Entries[i], true
	}
	return Entry{}, false
}

func (c Collection) index(id uuid.UUID) int {
	for i, e := range c.Entries {
		if e.Video.ID == id {
			return i
		}
	}
	return -1
}

type EventKind string

const (
	EventLoaded             EventKind = "loaded"
	EventUploaded           EventKind = "uploaded"
	EventOperationStarted   EventKind = "operationStarted"
	EventSubtitlesGenerated EventKind = "subtitlesGenerated"
	EventDeleted            EventKind = "deleted"
	EventOperationFailed    EventKind = "operationFailed"
)

type Event struct {
	Kind EventKind
	// Videos is the full list for EventLoaded, newest first.
	Videos []dto.VideoResponse
	// Video is the new or updated record for EventUploaded and EventSubtitlesGenerated.
	Video dto.VideoResponse
	// ID targets EventOperationStarted, EventDeleted and EventOperationFailed.
	ID        uuid.UUID
	Operation constant.Operation
}

// Reduce applies e to c. Events for unknown ids leave the entries untouched; the version still advances.
func Reduce(c Collection, e Event) Collection {
	next := Collection{Version: c.Version + 1}

	switch e.Kind {
	case EventLoaded:
		// Statuses of in-flight entries that are still listed carry over.
		next.Entries = make([]Entry, 0, len(e.Videos))
		for _, v := range e.Videos {
			status := constant.OperationStatusIdle
			if prev, ok := c.Find(v.ID); ok {
				status = prev.Status
			}
			next.Entries = append(next.Entries, Entry{Video: v, Status: status})
		}
	case EventUploaded:
		next.Entries = make([]Entry, 0, len(c.Entries)+1)
		next.Entries = append(next.Entries, Entry{Video: e.Video, Status: constant.OperationStatusIdle})
		for _, entry := range c.Entries {
			if entry.Video.ID != e.Video.ID {
				next.Entries = append(next.Entries, entry)
			}
		}
	case EventOperationStarted:
		next.Entries = update(c.Entries, e.ID, func(entry *Entry) {
			if entry.Status == constant.OperationStatusIdle {
				entry.Status = e.Operation.Status()
			}
		})
	case EventSubtitlesGenerated:
		next.Entries = update(c.Entries, e.Video.ID, func(entry *Entry) {
			thumbnail := entry.Video.ThumbnailURL
			entry.Video = e.Video
			if entry.Video.ThumbnailURL == "" {
				entry.Video.ThumbnailURL = thumbnail
			}
			entry.Status = constant.OperationStatusIdle
		})
	case EventDeleted:
		next.Entries = make([]Entry, 0, len(c.Entries))
		for _, entry := range c.Entries {
			if entry.Video.ID != e.ID {
				next.Entries = append(next.Entries, entry)
			}
		}
	case EventOperationFailed:
		next.Entries = update(c.Entries, e.ID, func(entry *Entry) {
			entry.Status = constant.OperationStatusIdle
		})
	default:
		next.Entries = append([]Entry(nil), c.Entries...)
	}
	return next
}

func update(entries []Entry, id uuid.UUID, fn func(*Entry)) []Entry {
	out := append([]Entry(nil), entries...)
	for i := range out {
		if out[i].Video.ID == id {
			fn(&out[i])
		}
	}
	return out
}
