package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/IFAKA/spotiytm/internal/services"
	"github.com/IFAKA/spotiytm/internal/shared"
)

// AuthLogin stores YouTube Music credentials captured from the browser.
//
// Accepts a cURL command (inline or from a file) copied from the network
// tab of an authenticated music.youtube.com session, or a pre-built JSON
// headers file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")
	headersFile := cmd.String("headers-file")

	sources := 0
	for _, s := range []string{curlCmd, curlFile, headersFile} {
		if s != "" {
			sources++
		}
	}
	if sources == 0 {
		return fmt.Errorf("%w: one of --curl, --curl-file or --headers-file must be provided", shared.ErrMissingArgument)
	}
	if sources > 1 {
		return fmt.Errorf("%w: --curl, --curl-file and --headers-file are mutually exclusive", shared.ErrInvalidArgument)
	}

	var headers map[string]string

	switch {
	case headersFile != "":
		data, err := os.ReadFile(headersFile)
		if err != nil {
			return fmt.Errorf("failed to read headers file: %w", err)
		}
		if err := json.Unmarshal(data, &headers); err != nil {
			return fmt.Errorf("invalid headers JSON: %w", err)
		}

	case curlFile != "":
		curlHeaders, err := shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		headers = curlHeaders.ToAuthHeaders()

	default:
		curlHeaders, err := shared.ParseCurlCommand([]byte(curlCmd))
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		headers = curlHeaders.ToAuthHeaders()
	}

	outputPath := config.Credentials.YouTube.HeadersPath
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create auth directory: %w", err)
		}
	}

	session, err := services.SaveHeaders(outputPath, headers)
	if err != nil {
		return err
	}
	r.logger.Info("credentials saved", "path", outputPath)

	checker := services.NewYTMusicService(session.Headers(), r.httpClient)
	valid, err := session.Validate(ctx, checker)
	if err != nil {
		r.logger.Warn("could not verify credentials", "error", err)
		return r.writePlain("✓ Credentials saved (verification skipped: %v)\n", err)
	}
	if !valid {
		return fmt.Errorf("%w: the captured headers were rejected by YouTube Music", shared.ErrAuthExpired)
	}

	return r.writePlain("✓ YouTube Music authentication configured successfully\n")
}

// AuthStatus reports whether YouTube Music credentials are stored, and with
// --check probes the live service.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	session := services.LoadSession(config.Credentials.YouTube.HeadersPath)
	if !session.IsConnected() {
		return r.writePlain("✗ Not authenticated\n")
	}

	if !cmd.Bool("check") {
		return r.writePlain("✓ Credentials stored at %s\n", config.Credentials.YouTube.HeadersPath)
	}

	checker := services.NewYTMusicService(session.Headers(), r.httpClient)
	valid, err := session.Validate(ctx, checker)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if !valid {
		return r.writePlain("✗ Credentials expired, run 'spotiytm auth login' again\n")
	}

	return r.writePlain("✓ Authenticated\n")
}

// AuthLogout removes stored YouTube Music credentials.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	session := services.LoadSession(config.Credentials.YouTube.HeadersPath)
	if !session.IsConnected() {
		return r.writePlain("No stored credentials\n")
	}

	session.Invalidate()
	return r.writePlain("✓ Credentials removed\n")
}
