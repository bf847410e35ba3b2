package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/IFAKA/spotiytm/internal/shared"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func searchBody(videoIDs ...string) string {
	items := make([]map[string]any, len(videoIDs))
	for i, id := range videoIDs {
		items[i] = map[string]any{
			"musicResponsiveListItemRenderer": map[string]any{
				"playlistItemData": map[string]any{"videoId": id},
			},
		}
	}

	payload := map[string]any{
		"contents": map[string]any{
			"tabbedSearchResultsRenderer": map[string]any{
				"tabs": []any{map[string]any{
					"tabRenderer": map[string]any{
						"content": map[string]any{
							"sectionListRenderer": map[string]any{
								"contents": []any{map[string]any{
									"musicShelfRenderer": map[string]any{"contents": items},
								}},
							},
						},
					},
				}},
			},
		},
	}

	data, _ := json.Marshal(payload)
	return string(data)
}

func newTestYTMusic(headers map[string]string, fn roundTripFunc) *YTMusicService {
	return NewYTMusicService(headers, &http.Client{Transport: fn})
}

func TestSapisidHash(t *testing.T) {
	now := time.Unix(1700000000, 0)
	hash := sapisidHash("abc123", "https://music.youtube.com", now)

	if !strings.HasPrefix(hash, "SAPISIDHASH 1700000000_") {
		t.Fatalf("hash = %q", hash)
	}
	digest := strings.TrimPrefix(hash, "SAPISIDHASH 1700000000_")
	if len(digest) != 40 {
		t.Errorf("digest length = %d, want 40 hex chars", len(digest))
	}

	// Deterministic for a fixed timestamp.
	if again := sapisidHash("abc123", "https://music.youtube.com", now); again != hash {
		t.Errorf("hash not deterministic: %q vs %q", hash, again)
	}

	// Sensitive to the SAPISID value.
	if other := sapisidHash("different", "https://music.youtube.com", now); other == hash {
		t.Error("different SAPISID must produce a different hash")
	}
}

func TestCookieValue(t *testing.T) {
	cookie := "VISITOR_INFO1_LIVE=x; SAPISID=sap-value; __Secure-3PAPISID=secure-value"

	if got := cookieValue(cookie, "SAPISID"); got != "sap-value" {
		t.Errorf("SAPISID = %q", got)
	}
	if got := cookieValue(cookie, "__Secure-3PAPISID"); got != "secure-value" {
		t.Errorf("__Secure-3PAPISID = %q", got)
	}
	if got := cookieValue(cookie, "MISSING"); got != "" {
		t.Errorf("missing cookie = %q", got)
	}
}

func TestDoRequest_SetsHeadersAndAuthorization(t *testing.T) {
	var captured *http.Request
	yt := newTestYTMusic(map[string]string{
		"Cookie":   "SAPISID=sap-value",
		"X-Origin": "https://music.youtube.com",
	}, func(r *http.Request) (*http.Response, error) {
		captured = r
		return jsonResponse(200, `{}`), nil
	})

	if err := yt.doRequest(context.Background(), "/browse", map[string]any{"browseId": "FEmusic_liked_playlists"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Method != http.MethodPost {
		t.Errorf("method = %s", captured.Method)
	}
	if !strings.HasSuffix(captured.URL.String(), "/browse?alt=json") {
		t.Errorf("url = %s", captured.URL)
	}
	if got := captured.Header.Get("X-Origin"); got != "https://music.youtube.com" {
		t.Errorf("X-Origin = %q", got)
	}
	if auth := captured.Header.Get("Authorization"); !strings.HasPrefix(auth, "SAPISIDHASH ") {
		t.Errorf("Authorization = %q", auth)
	}

	body, _ := io.ReadAll(captured.Body)
	var sent map[string]any
	if err := json.Unmarshal(body, &sent); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if sent["browseId"] != "FEmusic_liked_playlists" {
		t.Errorf("payload = %v", sent)
	}
	if _, ok := sent["context"]; !ok {
		t.Error("client context missing from request body")
	}
}

func TestDoRequest_AuthStatusMapping(t *testing.T) {
	for _, status := range []int{401, 403} {
		yt := newTestYTMusic(nil, func(r *http.Request) (*http.Response, error) {
			return jsonResponse(status, `{}`), nil
		})

		err := yt.doRequest(context.Background(), "/browse", nil, nil)
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Errorf("status %d: error = %v, want ErrAuthExpired", status, err)
		}
	}

	yt := newTestYTMusic(nil, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(500, `{"error": {"message": "backend exploded"}}`), nil
	})
	err := yt.doRequest(context.Background(), "/browse", nil, nil)
	if !errors.Is(err, shared.ErrAPIRequest) {
		t.Errorf("error = %v, want ErrAPIRequest", err)
	}
	if !strings.Contains(err.Error(), "backend exploded") {
		t.Errorf("error should carry the API message: %v", err)
	}
}

func TestResolveTrack_SongsFilterFirst(t *testing.T) {
	var requests []map[string]any
	yt := newTestYTMusic(nil, func(r *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(r.Body)
		var sent map[string]any
		json.Unmarshal(body, &sent)
		requests = append(requests, sent)
		return jsonResponse(200, searchBody("vid-first", "vid-second")), nil
	})

	id, err := yt.ResolveTrack(context.Background(), "Holiday", "Green Day")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "vid-first" {
		t.Errorf("id = %q, want first result", id)
	}

	if len(requests) != 1 {
		t.Fatalf("expected a single search, got %d", len(requests))
	}
	if requests[0]["query"] != "Green Day Holiday" {
		t.Errorf("query = %v", requests[0]["query"])
	}
	if requests[0]["params"] != searchParamsSongs {
		t.Errorf("params = %v, want songs filter", requests[0]["params"])
	}
}

func TestResolveTrack_UnfilteredFallback(t *testing.T) {
	var requests []map[string]any
	yt := newTestYTMusic(nil, func(r *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(r.Body)
		var sent map[string]any
		json.Unmarshal(body, &sent)
		requests = append(requests, sent)

		if _, filtered := sent["params"]; filtered {
			return jsonResponse(200, searchBody()), nil
		}
		return jsonResponse(200, searchBody("vid-fallback")), nil
	})

	id, err := yt.ResolveTrack(context.Background(), "Obscure B-Side", "Nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "vid-fallback" {
		t.Errorf("id = %q, want fallback result", id)
	}
	if len(requests) != 2 {
		t.Errorf("expected 2 searches, got %d", len(requests))
	}
}

func TestResolveTrack_NoMatchIsNotAnError(t *testing.T) {
	yt := newTestYTMusic(nil, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, searchBody()), nil
	})

	id, err := yt.ResolveTrack(context.Background(), "Nothing", "Nobody")
	if err != nil {
		t.Fatalf("absence must not be an error: %v", err)
	}
	if id != "" {
		t.Errorf("id = %q, want empty", id)
	}
}

func TestCreatePlaylist(t *testing.T) {
	var captured map[string]any
	yt := newTestYTMusic(nil, func(r *http.Request) (*http.Response, error) {
		if !strings.Contains(r.URL.Path, "/playlist/create") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		return jsonResponse(200, `{"playlistId": "PLcreated"}`), nil
	})

	id, err := yt.CreatePlaylist(context.Background(), "Mix (converted)", "Converted from spotify")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "PLcreated" {
		t.Errorf("id = %q", id)
	}
	if captured["title"] != "Mix (converted)" || captured["privacyStatus"] != "PRIVATE" {
		t.Errorf("payload = %v", captured)
	}
}

func TestCreatePlaylist_MissingIDIsAnError(t *testing.T) {
	yt := newTestYTMusic(nil, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{}`), nil
	})

	if _, err := yt.CreatePlaylist(context.Background(), "Mix", ""); !errors.Is(err, shared.ErrAPIRequest) {
		t.Errorf("error = %v, want ErrAPIRequest", err)
	}
}

func TestAddPlaylistItems(t *testing.T) {
	var captured map[string]any
	yt := newTestYTMusic(nil, func(r *http.Request) (*http.Response, error) {
		if !strings.Contains(r.URL.Path, "/browse/edit_playlist") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		return jsonResponse(200, `{"status": "STATUS_SUCCEEDED"}`), nil
	})

	err := yt.AddPlaylistItems(context.Background(), "VLPLtarget", []string{"vid-a", "vid-b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured["playlistId"] != "PLtarget" {
		t.Errorf("playlistId = %v, VL prefix must be stripped", captured["playlistId"])
	}

	actions, ok := captured["actions"].([]any)
	if !ok || len(actions) != 2 {
		t.Fatalf("actions = %v", captured["actions"])
	}
	first := actions[0].(map[string]any)
	if first["action"] != "ACTION_ADD_VIDEO" || first["addedVideoId"] != "vid-a" {
		t.Errorf("action 0 = %v", first)
	}
	if first["dedupeOption"] != "DEDUPE_OPTION_SKIP" {
		t.Error("appends must skip duplicates so retried batches stay idempotent")
	}
}

func TestAddPlaylistItems_EmptyIsNoop(t *testing.T) {
	yt := newTestYTMusic(nil, func(r *http.Request) (*http.Response, error) {
		t.Error("no request expected for an empty batch")
		return jsonResponse(200, `{}`), nil
	})

	if err := yt.AddPlaylistItems(context.Background(), "PL1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckCredentials(t *testing.T) {
	yt := newTestYTMusic(nil, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(401, `{}`), nil
	})

	if err := yt.CheckCredentials(context.Background()); !errors.Is(err, shared.ErrAuthExpired) {
		t.Errorf("error = %v, want ErrAuthExpired", err)
	}
}
