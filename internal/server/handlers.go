package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/IFAKA/spotiytm/internal/services"
	"github.com/IFAKA/spotiytm/internal/shared"
	"github.com/IFAKA/spotiytm/internal/tasks"
)

//go:embed index.html
var indexPage []byte

// IndexHandler serves the single-page conversion UI.
type IndexHandler struct{}

// Routes returns the HTTP routes this handler serves.
func (h *IndexHandler) Routes() []string {
	return []string{"/"}
}

func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

// PreviewHandler fetches a source playlist and returns its name and tracks
// without performing a conversion.
type PreviewHandler struct {
	Source services.TrackSource
}

// Routes returns the HTTP routes this handler serves.
func (h *PreviewHandler) Routes() []string {
	return []string{"/api/spotify"}
}

func (h *PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("url")
	if reference == "" {
		writeJSONError(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	export, err := h.Source.FetchPlaylist(r.Context(), reference)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidReference) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("Spotify fetch failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":   export.Name,
		"total":  len(export.Tracks),
		"tracks": export.Tracks,
	})
}

// ConvertFunc starts a conversion for a playlist reference and returns its
// progress event stream.
type ConvertFunc func(ctx context.Context, reference string) <-chan tasks.Event

// ConvertHandler streams conversion progress as server-sent events.
//
// Failures detected before the conversion starts (missing credentials,
// failed validation) are emitted as error events on the stream rather than
// HTTP error statuses, because EventSource clients cannot read non-2xx
// response bodies.
type ConvertHandler struct {
	Session *services.SessionRef
	Logger  *log.Logger
	Convert ConvertFunc

	// NewChecker builds a credential prober from the captured headers.
	NewChecker func(headers map[string]string) services.CredentialChecker
}

// Routes returns the HTTP routes this handler serves.
func (h *ConvertHandler) Routes() []string {
	return []string{"/api/convert"}
}

func (h *ConvertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("url")
	if reference == "" {
		writeJSONError(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(event tasks.Event) bool {
		data, err := tasks.EncodeSSE(event)
		if err != nil {
			h.Logger.Error("failed to encode event", "error", err)
			return false
		}
		if _, err := w.Write(data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	session := h.Session.Current()
	if !session.IsConnected() {
		send(tasks.Errorf("YouTube Music not connected. Please reconnect."))
		return
	}

	valid, err := h.Session.Validate(r.Context(), h.NewChecker(session.Headers()))
	if err != nil {
		send(tasks.Errorf("could not verify YouTube Music credentials: %v", err))
		return
	}
	if !valid {
		send(tasks.Errorf("YouTube Music credentials expired. Please reconnect."))
		return
	}

	events := h.Convert(r.Context(), reference)
	for event := range events {
		if !send(event) {
			// Client went away; the request context cancels the
			// converter, drain what it still emits.
			for range events {
			}
			return
		}
	}
}

// AuthHandler reports and updates the captured YouTube Music credentials.
//
// GET /api/auth/status returns the connection state. POST /api/auth/headers
// accepts either a JSON object of headers or a raw copied-as-cURL command
// and stores the credentials it carries.
type AuthHandler struct {
	Session *services.SessionRef
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{"/api/auth/status", "/api/auth/headers"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/auth/status" && r.Method == http.MethodGet:
		h.status(w)
	case r.URL.Path == "/api/auth/headers" && r.Method == http.MethodPost:
		h.saveHeaders(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AuthHandler) status(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"connected": h.Session.Current().IsConnected(),
	})
}

func (h *AuthHandler) saveHeaders(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	headers, err := parseHeadersPayload(body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Session.SetHeaders(headers); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseHeadersPayload accepts either a JSON header map or a raw cURL
// command copied from the browser's network tab.
func parseHeadersPayload(body []byte) (map[string]string, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, fmt.Errorf("request body is empty")
	}

	if strings.HasPrefix(trimmed, "{") {
		var headers map[string]string
		if err := json.Unmarshal(body, &headers); err != nil {
			return nil, fmt.Errorf("invalid JSON headers: %w", err)
		}
		if len(headers) == 0 {
			return nil, fmt.Errorf("no headers in payload")
		}
		return headers, nil
	}

	curl, err := shared.ParseCurlCommand([]byte(trimmed))
	if err != nil {
		return nil, err
	}
	return curl.ToAuthHeaders(), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
