// YouTube Music implementation of [Resolver] and [PlaylistSink]
//
// Talks directly to the music.youtube.com innertube web API using captured
// browser headers. Authorization is a SAPISIDHASH digest recomputed for
// every request from the SAPISID cookie.
package services

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/IFAKA/spotiytm/internal/shared"
	"golang.org/x/time/rate"
)

const (
	ytmBaseURL    = "https://music.youtube.com/youtubei/v1"
	ytmOrigin     = "https://music.youtube.com"
	ytmClientName = "WEB_REMIX"
	ytmClientVer  = "1.20250310.01.00"

	// Search result shelf filter for songs. Unfiltered fallback omits params.
	searchParamsSongs = "EgWKAQIIAUICCAE%3D"

	// Search requests per second against the innertube API.
	defaultSearchRate = 5
)

// YTMusicService implements [Resolver] and [PlaylistSink] for YouTube Music.
type YTMusicService struct {
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewYTMusicService creates a YouTube Music client from captured browser
// headers (the map persisted by the auth bootstrap).
func NewYTMusicService(headers map[string]string, client *http.Client) *YTMusicService {
	if client == nil {
		client = http.DefaultClient
	}

	return &YTMusicService{
		baseURL:    ytmBaseURL,
		headers:    headers,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(defaultSearchRate), 1),
		now:        time.Now,
	}
}

// sapisidHash computes the SAPISIDHASH authorization value the innertube
// API expects for browser-cookie auth.
func sapisidHash(sapisid, origin string, now time.Time) string {
	ts := now.Unix()
	digest := sha1.Sum(fmt.Appendf(nil, "%d %s %s", ts, sapisid, origin))
	return fmt.Sprintf("SAPISIDHASH %d_%x", ts, digest)
}

// cookieValue extracts a single cookie value from a Cookie header string.
func cookieValue(cookie, name string) string {
	for _, part := range strings.Split(cookie, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && k == name {
			return v
		}
	}
	return ""
}

func (y *YTMusicService) authorization() string {
	cookie := y.headers["Cookie"]
	sapisid := cookieValue(cookie, "__Secure-3PAPISID")
	if sapisid == "" {
		sapisid = cookieValue(cookie, "SAPISID")
	}
	if sapisid == "" {
		return ""
	}
	return sapisidHash(sapisid, ytmOrigin, y.now())
}

// doRequest posts an innertube request body (client context merged in) and
// decodes the response. 401/403 responses map to shared.ErrAuthExpired.
func (y *YTMusicService) doRequest(ctx context.Context, endpoint string, payload map[string]any, result any) error {
	body := map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    ytmClientName,
				"clientVersion": ytmClientVer,
			},
		},
	}
	for k, v := range payload {
		body[k] = v
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := y.baseURL + endpoint + "?alt=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range y.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth := y.authorization(); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d", shared.ErrAuthExpired, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Message != "" {
			return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Error.Message)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

type searchResponse struct {
	Contents struct {
		TabbedSearchResultsRenderer struct {
			Tabs []struct {
				TabRenderer struct {
					Content struct {
						SectionListRenderer struct {
							Contents []struct {
								MusicShelfRenderer *struct {
									Contents []struct {
										MusicResponsiveListItemRenderer *struct {
											PlaylistItemData struct {
												VideoID string `json:"videoId"`
											} `json:"playlistItemData"`
										} `json:"musicResponsiveListItemRenderer"`
									} `json:"contents"`
								} `json:"musicShelfRenderer"`
							} `json:"contents"`
						} `json:"sectionListRenderer"`
					} `json:"content"`
				} `json:"tabRenderer"`
			} `json:"tabs"`
		} `json:"tabbedSearchResultsRenderer"`
	} `json:"contents"`
}

// videoIDs flattens the search response shelves into result order.
func (r *searchResponse) videoIDs() []string {
	var ids []string
	for _, tab := range r.Contents.TabbedSearchResultsRenderer.Tabs {
		for _, section := range tab.TabRenderer.Content.SectionListRenderer.Contents {
			if section.MusicShelfRenderer == nil {
				continue
			}
			for _, item := range section.MusicShelfRenderer.Contents {
				renderer := item.MusicResponsiveListItemRenderer
				if renderer == nil {
					continue
				}
				if id := renderer.PlaylistItemData.VideoID; id != "" {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

func (y *YTMusicService) search(ctx context.Context, query, params string) ([]string, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := map[string]any{"query": query}
	if params != "" {
		payload["params"] = params
	}

	var resp searchResponse
	if err := y.doRequest(ctx, "/search", payload, &resp); err != nil {
		return nil, err
	}

	return resp.videoIDs(), nil
}

// ResolveTrack implements [Resolver] with a two-stage search: the songs
// filter first, then an unfiltered fallback. Returns "" when neither stage
// produced a match.
func (y *YTMusicService) ResolveTrack(ctx context.Context, title, artists string) (string, error) {
	query := strings.TrimSpace(artists + " " + title)

	ids, err := y.search(ctx, query, searchParamsSongs)
	if err == nil && len(ids) > 0 {
		return ids[0], nil
	}

	ids, fallbackErr := y.search(ctx, query, "")
	if fallbackErr != nil {
		if err != nil {
			return "", err
		}
		return "", fallbackErr
	}

	if len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

// CreatePlaylist implements [PlaylistSink].
func (y *YTMusicService) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	payload := map[string]any{
		"title":         name,
		"description":   description,
		"privacyStatus": "PRIVATE",
	}

	var resp struct {
		PlaylistID string `json:"playlistId"`
	}
	if err := y.doRequest(ctx, "/playlist/create", payload, &resp); err != nil {
		return "", err
	}

	if resp.PlaylistID == "" {
		return "", fmt.Errorf("%w: playlist/create returned no playlistId", shared.ErrAPIRequest)
	}

	return resp.PlaylistID, nil
}

// AddPlaylistItems implements [PlaylistSink]. DEDUPE_OPTION_SKIP tells the
// service to accept ids that are already playlist members, which keeps
// retried batches idempotent.
func (y *YTMusicService) AddPlaylistItems(ctx context.Context, playlistID string, videoIDs []string) error {
	if len(videoIDs) == 0 {
		return nil
	}

	actions := make([]map[string]any, len(videoIDs))
	for i, id := range videoIDs {
		actions[i] = map[string]any{
			"action":       "ACTION_ADD_VIDEO",
			"addedVideoId": id,
			"dedupeOption": "DEDUPE_OPTION_SKIP",
		}
	}

	payload := map[string]any{
		"playlistId": strings.TrimPrefix(playlistID, "VL"),
		"actions":    actions,
	}

	return y.doRequest(ctx, "/browse/edit_playlist", payload, nil)
}

// CheckCredentials makes a lightweight authenticated request to confirm the
// captured headers still work. Library browsing requires auth; search does
// not, so it would not catch expiry.
func (y *YTMusicService) CheckCredentials(ctx context.Context) error {
	payload := map[string]any{"browseId": "FEmusic_liked_playlists"}
	return y.doRequest(ctx, "/browse", payload, nil)
}
