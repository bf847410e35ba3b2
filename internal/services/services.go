// package services defines the external collaborators of the conversion
// pipeline: the track source, the search resolver and the playlist sink.
//
// Spotify (source), YouTube Music (resolver + sink)
package services

import (
	"context"
)

// Track represents a single entry of a source playlist. The source assigns
// no stable identifier usable downstream, so the (Title, Artists) pair is
// the track's identity for caching purposes.
type Track struct {
	Title   string `json:"name"`
	Artists string `json:"artists"`
}

// PlaylistExport is a fetched source playlist: its display name plus the
// ordered track sequence.
type PlaylistExport struct {
	Name   string  `json:"name"`
	Tracks []Track `json:"tracks"`
}

// TrackSource fetches a playlist from the source service.
type TrackSource interface {
	// FetchPlaylist returns the playlist name and ordered tracks for a
	// URL-shaped reference. Fails with shared.ErrInvalidReference when the
	// reference holds no playlist id, shared.ErrFetchFailed on
	// network/parse failure and shared.ErrEmptyPlaylist when zero tracks
	// were found.
	FetchPlaylist(ctx context.Context, reference string) (*PlaylistExport, error)
}

// Resolver finds the target-service identifier for a single track.
type Resolver interface {
	// ResolveTrack returns the best matching video id, or "" when nothing
	// matched. "Not found" is never an error; errors are transport-level
	// failures only.
	ResolveTrack(ctx context.Context, title, artists string) (string, error)
}

// PlaylistSink creates playlists on the target service and appends items.
type PlaylistSink interface {
	// CreatePlaylist creates a playlist and returns its id. Fails with
	// shared.ErrAuthExpired on 401/403-class failures.
	CreatePlaylist(ctx context.Context, name, description string) (string, error)

	// AddPlaylistItems appends video ids to an existing playlist. The
	// target service tolerates duplicate members, so re-adding an id after
	// a partially applied run is safe.
	AddPlaylistItems(ctx context.Context, playlistID string, videoIDs []string) error
}
