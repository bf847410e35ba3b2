package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/IFAKA/spotiytm/internal/shared"
)

// validateTTL caps how often Validate performs a live credential probe.
const validateTTL = 5 * time.Minute

// CredentialChecker is implemented by clients that can probe whether their
// stored credentials still work ([YTMusicService.CheckCredentials]).
type CredentialChecker interface {
	CheckCredentials(ctx context.Context) error
}

// AuthSession is the explicit authentication state for the target service:
// the captured browser headers plus a validation timestamp. It is passed
// into whatever starts a conversion; invalidation returns a fresh
// unauthenticated session instead of mutating shared state.
type AuthSession struct {
	path        string
	headers     map[string]string
	validatedAt time.Time
}

// LoadSession reads the headers file at path. A missing or empty file
// yields a disconnected session, not an error.
func LoadSession(path string) *AuthSession {
	s := &AuthSession{path: path}

	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return s
	}

	var headers map[string]string
	if err := json.Unmarshal(data, &headers); err != nil {
		return s
	}

	s.headers = headers
	return s
}

// SaveHeaders persists captured auth headers and returns the resulting
// connected session.
func SaveHeaders(path string, headers map[string]string) (*AuthSession, error) {
	data, err := json.MarshalIndent(headers, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal headers: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write headers file: %w", err)
	}

	return &AuthSession{path: path, headers: headers}, nil
}

// IsConnected reports whether captured headers are present.
func (s *AuthSession) IsConnected() bool {
	return len(s.headers) > 0
}

// Headers returns the captured header map.
func (s *AuthSession) Headers() map[string]string {
	return s.headers
}

// Validate confirms the session's credentials against the live service,
// caching a successful probe for validateTTL. Auth-class failures
// invalidate the stored headers and report false without an error;
// transport failures are returned to the caller.
func (s *AuthSession) Validate(ctx context.Context, checker CredentialChecker) (bool, error) {
	if !s.IsConnected() {
		return false, nil
	}

	if time.Since(s.validatedAt) < validateTTL {
		return true, nil
	}

	err := checker.CheckCredentials(ctx)
	if err == nil {
		s.validatedAt = time.Now()
		return true, nil
	}

	if errors.Is(err, shared.ErrAuthExpired) {
		s.Invalidate()
		return false, nil
	}

	return false, err
}

// Invalidate removes the stored headers file and returns a fresh
// unauthenticated session for the same path. Removing a missing file is
// not an error.
func (s *AuthSession) Invalidate() *AuthSession {
	if s.path != "" {
		os.Remove(s.path)
	}
	return &AuthSession{path: s.path}
}

// SessionRef holds the current [AuthSession] for long-lived callers like the
// web server, swapping in replacement sessions as headers are saved or
// invalidated. All methods are safe for concurrent use.
type SessionRef struct {
	mu      sync.Mutex
	session *AuthSession
}

// NewSessionRef loads the session stored at path and wraps it in a ref.
func NewSessionRef(path string) *SessionRef {
	return &SessionRef{session: LoadSession(path)}
}

// Current returns the session held by the ref.
func (r *SessionRef) Current() *AuthSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// SetHeaders persists new captured headers and swaps in the connected
// session they produce.
func (r *SessionRef) SetHeaders(headers map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := SaveHeaders(r.session.path, headers)
	if err != nil {
		return err
	}

	r.session = session
	return nil
}

// Invalidate discards the held session's credentials and swaps in the
// unauthenticated replacement.
func (r *SessionRef) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = r.session.Invalidate()
}

// Validate checks the held session's credentials, swapping in the
// invalidated replacement when the probe reports expiry.
func (r *SessionRef) Validate(ctx context.Context, checker CredentialChecker) (bool, error) {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()

	ok, err := session.Validate(ctx, checker)
	if !ok && err == nil && session.IsConnected() {
		// Validate already removed the headers file; mirror the swap here.
		r.mu.Lock()
		r.session = &AuthSession{path: session.path}
		r.mu.Unlock()
	}
	return ok, err
}
