// package testing contains shared testing utilities
package testing

import (
	"context"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/IFAKA/spotiytm/internal/services"
)

// MockSource is a test double for [services.TrackSource].
type MockSource struct {
	Export *services.PlaylistExport
	Err    error
}

func (m *MockSource) FetchPlaylist(ctx context.Context, reference string) (*services.PlaylistExport, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Export, nil
}

// MockResolver is a test double for [services.Resolver]. ResolveFunc, when
// set, decides per track; otherwise every lookup misses. Calls records the
// resolved title/artist pairs in call order.
type MockResolver struct {
	ResolveFunc func(title, artists string) (string, error)

	mu    sync.Mutex
	Calls []string
}

func (m *MockResolver) ResolveTrack(ctx context.Context, title, artists string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, artists+"||"+title)
	m.mu.Unlock()

	if m.ResolveFunc == nil {
		return "", nil
	}
	return m.ResolveFunc(title, artists)
}

func (m *MockResolver) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockSink is a test double for [services.PlaylistSink]. It records every
// playlist creation and item append.
type MockSink struct {
	CreateErr error
	AddErr    error

	mu         sync.Mutex
	Created    []string
	PlaylistID string
	Batches    [][]string
}

func (m *MockSink) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	m.Created = append(m.Created, name)
	if m.PlaylistID == "" {
		m.PlaylistID = "PL-mock"
	}
	return m.PlaylistID, nil
}

func (m *MockSink) AddPlaylistItems(ctx context.Context, playlistID string, videoIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AddErr != nil {
		return m.AddErr
	}
	batch := make([]string, len(videoIDs))
	copy(batch, videoIDs)
	m.Batches = append(m.Batches, batch)
	return nil
}

// Added flattens all appended batches in order.
func (m *MockSink) Added() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []string
	for _, batch := range m.Batches {
		all = append(all, batch...)
	}
	return all
}

// MockChecker is a test double for [services.CredentialChecker].
type MockChecker struct {
	Err   error
	Calls int
}

func (m *MockChecker) CheckCredentials(ctx context.Context) error {
	m.Calls++
	return m.Err
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// RoundTripFunc adapts a function to [http.RoundTripper] so tests can
// inspect each request.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
