// Spotify implementation of [TrackSource]
//
// Primary path scrapes the public embed page, which requires no credentials
// but is best-effort by nature. When Web API client credentials are
// configured those are used instead via the client-credentials grant.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/IFAKA/spotiytm/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyEmbedURL = "https://open.spotify.com/embed/playlist/"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	embedUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

var (
	playlistIDPattern = regexp.MustCompile(`playlist/([A-Za-z0-9]+)`)
	nextDataPattern   = regexp.MustCompile(`(?s)<script id="__NEXT_DATA__"[^>]*>(.*?)</script>`)
)

// ExtractPlaylistID parses the playlist id out of a URL-shaped reference.
func ExtractPlaylistID(reference string) (string, error) {
	m := playlistIDPattern.FindStringSubmatch(reference)
	if m == nil {
		return "", fmt.Errorf("%w: no playlist id in %q", shared.ErrInvalidReference, reference)
	}
	return m[1], nil
}

// SpotifyService implements [TrackSource] for Spotify playlists.
type SpotifyService struct {
	httpClient *http.Client
	apiClient  *http.Client // non-nil only when client credentials are configured
}

// NewSpotifyService creates a Spotify source. clientID/clientSecret are
// optional; when both are set the official Web API is used instead of the
// embed scrape.
func NewSpotifyService(clientID, clientSecret string, client *http.Client) *SpotifyService {
	if client == nil {
		client = http.DefaultClient
	}

	s := &SpotifyService{httpClient: client}

	if clientID != "" && clientSecret != "" {
		cc := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyTokenURL,
		}
		s.apiClient = cc.Client(context.Background())
	}

	return s
}

// FetchPlaylist implements [TrackSource].
func (s *SpotifyService) FetchPlaylist(ctx context.Context, reference string) (*PlaylistExport, error) {
	playlistID, err := ExtractPlaylistID(reference)
	if err != nil {
		return nil, err
	}

	if s.apiClient != nil {
		return s.fetchViaAPI(ctx, playlistID)
	}

	return s.fetchViaEmbed(ctx, playlistID)
}

type embedTrack struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Name     string `json:"name"`
	Artists  string `json:"artists"`
}

type embedEntity struct {
	Name      string       `json:"name"`
	TrackList []embedTrack `json:"trackList"`
}

// fetchViaEmbed performs a single GET of the embed page and parses the
// __NEXT_DATA__ JSON blob. The embed hard-caps the track list at ~100
// entries; longer playlists need the API path.
func (s *SpotifyService) fetchViaEmbed(ctx context.Context, playlistID string) (*PlaylistExport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spotifyEmbedURL+playlistID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", embedUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: embed page returned status %d", shared.ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFetchFailed, err)
	}

	return ParseEmbedPage(body, playlistID)
}

// ParseEmbedPage extracts the playlist name and tracks from a Spotify embed
// page HTML document.
func ParseEmbedPage(html []byte, playlistID string) (*PlaylistExport, error) {
	m := nextDataPattern.FindSubmatch(html)
	if m == nil {
		return nil, fmt.Errorf("%w: no __NEXT_DATA__ in embed page", shared.ErrFetchFailed)
	}

	var page struct {
		Props struct {
			PageProps struct {
				State struct {
					Data struct {
						Entity embedEntity `json:"entity"`
					} `json:"data"`
				} `json:"state"`
				InitialStoreState struct {
					Entities struct {
						Playlists map[string]embedEntity `json:"playlists"`
					} `json:"entities"`
				} `json:"initialStoreState"`
			} `json:"pageProps"`
		} `json:"props"`
	}

	if err := json.Unmarshal(m[1], &page); err != nil {
		return nil, fmt.Errorf("%w: embed page structure changed: %v", shared.ErrFetchFailed, err)
	}

	entity := page.Props.PageProps.State.Data.Entity
	if len(entity.TrackList) == 0 {
		// Older embed versions keep the entity under the store state.
		if alt, ok := page.Props.PageProps.InitialStoreState.Entities.Playlists[playlistID]; ok {
			entity = alt
		}
	}

	name := entity.Name
	if name == "" {
		name = "Spotify Playlist"
	}

	tracks := make([]Track, 0, len(entity.TrackList))
	for _, t := range entity.TrackList {
		title := t.Title
		if title == "" {
			title = t.Name
		}
		artists := t.Subtitle
		if artists == "" {
			artists = t.Artists
		}
		if title != "" {
			tracks = append(tracks, Track{Title: title, Artists: artists})
		}
	}

	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: scraped embed page for %s", shared.ErrEmptyPlaylist, playlistID)
	}

	return &PlaylistExport{Name: name, Tracks: tracks}, nil
}

// fetchViaAPI reads the playlist through the official Web API, paginating
// through every track.
func (s *SpotifyService) fetchViaAPI(ctx context.Context, playlistID string) (*PlaylistExport, error) {
	var meta struct {
		Name string `json:"name"`
	}
	metaURL := fmt.Sprintf("%s/playlists/%s?fields=name", spotifyBaseURL, playlistID)
	if err := s.getJSON(ctx, metaURL, &meta); err != nil {
		return nil, err
	}

	name := meta.Name
	if name == "" {
		name = "Spotify Playlist"
	}

	var tracks []Track
	next := fmt.Sprintf("%s/playlists/%s/tracks?limit=100&fields=next,items(track(name,artists(name)))",
		spotifyBaseURL, playlistID)

	for next != "" {
		var body struct {
			Next  *string `json:"next"`
			Items []struct {
				Track *struct {
					Name    string `json:"name"`
					Artists []struct {
						Name string `json:"name"`
					} `json:"artists"`
				} `json:"track"`
			} `json:"items"`
		}

		if err := s.getJSON(ctx, next, &body); err != nil {
			return nil, err
		}

		for _, item := range body.Items {
			if item.Track == nil || item.Track.Name == "" {
				continue
			}
			names := make([]string, 0, len(item.Track.Artists))
			for _, a := range item.Track.Artists {
				if a.Name != "" {
					names = append(names, a.Name)
				}
			}
			tracks = append(tracks, Track{
				Title:   item.Track.Name,
				Artists: strings.Join(names, ", "),
			})
		}

		if body.Next == nil {
			break
		}
		next = *body.Next
	}

	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrEmptyPlaylist, playlistID)
	}

	return &PlaylistExport{Name: name, Tracks: tracks}, nil
}

func (s *SpotifyService) getJSON(ctx context.Context, url string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.apiClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify API returned status %d", shared.ErrFetchFailed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrFetchFailed, err)
	}

	return nil
}
