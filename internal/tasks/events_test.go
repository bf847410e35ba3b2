package tasks

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/IFAKA/spotiytm/internal/services"
)

func TestNewTrackStatus(t *testing.T) {
	track := services.Track{Title: "Clair de Lune", Artists: "Debussy"}

	found := NewTrack(1, 10, track, "vid123")
	if found.Status != StatusFound || found.VideoID != "vid123" {
		t.Errorf("found event = %+v", found)
	}

	missing := NewTrack(2, 10, track, "")
	if missing.Status != StatusMissing || missing.VideoID != "" {
		t.Errorf("missing event = %+v", missing)
	}
}

func TestNewDoneNeverNilMissingTracks(t *testing.T) {
	done := NewDone("PL1", 5, nil)
	if done.MissingTracks == nil {
		t.Fatal("missing tracks must marshal as [], not null")
	}

	data, err := json.Marshal(done)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"missingTracks":[]`) {
		t.Errorf("marshalled done = %s", data)
	}
}

func TestEncodeSSE(t *testing.T) {
	data, err := EncodeSSE(NewFetched("Chill", 42))
	if err != nil {
		t.Fatal(err)
	}

	payload := string(data)
	if !strings.HasPrefix(payload, "data: ") || !strings.HasSuffix(payload, "\n\n") {
		t.Fatalf("not SSE framed: %q", payload)
	}

	var decoded struct {
		Type  string `json:"type"`
		Name  string `json:"name"`
		Total int    `json:"total"`
	}
	body := strings.TrimSuffix(strings.TrimPrefix(payload, "data: "), "\n\n")
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.Type != "fetched" || decoded.Name != "Chill" || decoded.Total != 42 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestTrackEventWireFields(t *testing.T) {
	data, err := json.Marshal(NewTrack(3, 9, services.Track{Title: "Go", Artists: "Chemical Brothers"}, "vidX"))
	if err != nil {
		t.Fatal(err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"type", "i", "total", "name", "artists", "status", "videoId"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing wire field %q in %s", key, data)
		}
	}
	if fields["i"].(float64) != 3 {
		t.Errorf("i = %v", fields["i"])
	}
}
