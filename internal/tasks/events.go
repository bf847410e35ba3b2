package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/IFAKA/spotiytm/internal/services"
)

// EventType discriminates progress events on the wire.
type EventType string

const (
	EventFetching EventType = "fetching"
	EventFetched  EventType = "fetched"
	EventLog      EventType = "log"
	EventTrack    EventType = "track"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Track event statuses.
const (
	StatusFound   = "found"
	StatusMissing = "missing"
)

// Event is one progress event of a conversion. Concrete types carry their
// discriminator in a Type field so they marshal directly to the wire shape.
type Event interface {
	Kind() EventType
}

// FetchingEvent signals that the source playlist fetch started.
type FetchingEvent struct {
	Type EventType `json:"type"`
}

// FetchedEvent carries the source playlist name and track count.
type FetchedEvent struct {
	Type  EventType `json:"type"`
	Name  string    `json:"name"`
	Total int       `json:"total"`
}

// LogEvent is a human-readable progress message.
type LogEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

// TrackEvent reports one completed resolution. Index is the running
// completion ordinal, not the track's source position.
type TrackEvent struct {
	Type    EventType `json:"type"`
	Index   int       `json:"i"`
	Total   int       `json:"total"`
	Name    string    `json:"name"`
	Artists string    `json:"artists"`
	Status  string    `json:"status"`
	VideoID string    `json:"videoId,omitempty"`
}

// MissingTrack identifies a source track with no target match.
type MissingTrack struct {
	Name    string `json:"name"`
	Artists string `json:"artists"`
}

// DoneEvent terminates a successful conversion.
type DoneEvent struct {
	Type          EventType      `json:"type"`
	PlaylistID    string         `json:"playlistId"`
	Found         int            `json:"found"`
	Missing       int            `json:"missing"`
	MissingTracks []MissingTrack `json:"missingTracks"`
}

// ErrorEvent terminates a failed conversion.
type ErrorEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

func (e FetchingEvent) Kind() EventType { return e.Type }
func (e FetchedEvent) Kind() EventType  { return e.Type }
func (e LogEvent) Kind() EventType      { return e.Type }
func (e TrackEvent) Kind() EventType    { return e.Type }
func (e DoneEvent) Kind() EventType     { return e.Type }
func (e ErrorEvent) Kind() EventType    { return e.Type }

// NewFetching creates a fetching event.
func NewFetching() FetchingEvent {
	return FetchingEvent{Type: EventFetching}
}

// NewFetched creates a fetched event.
func NewFetched(name string, total int) FetchedEvent {
	return FetchedEvent{Type: EventFetched, Name: name, Total: total}
}

// Logf creates a formatted log event.
func Logf(format string, args ...any) LogEvent {
	return LogEvent{Type: EventLog, Message: fmt.Sprintf(format, args...)}
}

// NewTrack creates a track event; status follows from whether a video id
// was resolved.
func NewTrack(index, total int, track services.Track, videoID string) TrackEvent {
	status := StatusMissing
	if videoID != "" {
		status = StatusFound
	}
	return TrackEvent{
		Type:    EventTrack,
		Index:   index,
		Total:   total,
		Name:    track.Title,
		Artists: track.Artists,
		Status:  status,
		VideoID: videoID,
	}
}

// NewDone creates the terminal success event.
func NewDone(playlistID string, found int, missing []MissingTrack) DoneEvent {
	if missing == nil {
		missing = []MissingTrack{}
	}
	return DoneEvent{
		Type:          EventDone,
		PlaylistID:    playlistID,
		Found:         found,
		Missing:       len(missing),
		MissingTracks: missing,
	}
}

// Errorf creates a terminal error event.
func Errorf(format string, args ...any) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: fmt.Sprintf(format, args...)}
}

// EncodeSSE renders an event as a Server-Sent Events data frame.
func EncodeSSE(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return fmt.Appendf(nil, "data: %s\n\n", data), nil
}
