package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/IFAKA/spotiytm/internal/services"
	"github.com/IFAKA/spotiytm/internal/shared"
	"github.com/IFAKA/spotiytm/internal/tasks"
	"github.com/IFAKA/spotiytm/internal/ui"
)

// Convert runs a full playlist conversion from the terminal.
func (r *Runner) Convert(ctx context.Context, cmd *cli.Command) error {
	reference := cmd.StringArg("url")
	if reference == "" {
		return fmt.Errorf("%w: playlist url", shared.ErrMissingArgument)
	}

	config := r.loadConfig(cmd)

	db, store, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer db.Close()

	sessionRef := services.NewSessionRef(config.Credentials.YouTube.HeadersPath)
	session := sessionRef.Current()
	if !session.IsConnected() {
		return fmt.Errorf("%w: run 'spotiytm auth login' first", shared.ErrNotAuthenticated)
	}

	checker := services.NewYTMusicService(session.Headers(), r.httpClient)
	valid, err := sessionRef.Validate(ctx, checker)
	if err != nil {
		return fmt.Errorf("could not verify YouTube Music credentials: %w", err)
	}
	if !valid {
		return fmt.Errorf("%w: run 'spotiytm auth login' again", shared.ErrAuthExpired)
	}

	converter := r.newConverter(config, sessionRef, store)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := converter.Convert(runCtx, reference)

	if cmd.Bool("plain") {
		return r.convertPlain(events)
	}

	model := ui.NewModel(cancel, events)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("failed to run conversion view: %w", err)
	}

	if msg := model.Err(); msg != "" {
		return fmt.Errorf("conversion failed: %s", msg)
	}
	return nil
}

// convertPlain streams progress as log lines, for terminals without TTY
// support or for piping into other tools.
func (r *Runner) convertPlain(events <-chan tasks.Event) error {
	for event := range events {
		switch e := event.(type) {
		case tasks.FetchingEvent:
			r.writePlain("Fetching playlist...\n")
		case tasks.FetchedEvent:
			r.writePlain("Playlist: %s (%d tracks)\n", e.Name, e.Total)
		case tasks.LogEvent:
			r.writePlain("%s\n", e.Message)
		case tasks.TrackEvent:
			mark := "✓"
			if e.Status == tasks.StatusMissing {
				mark = "✗"
			}
			r.writePlain("[%d/%d] %s %s - %s\n", e.Index, e.Total, mark, e.Name, e.Artists)
		case tasks.DoneEvent:
			r.writePlainln("✓ Conversion complete: %d added, %d missing", e.Found, e.Missing)
			r.writePlain("https://music.youtube.com/playlist?list=%s\n", e.PlaylistID)
			for _, track := range e.MissingTracks {
				r.writePlain("  missing: %s - %s\n", track.Name, track.Artists)
			}
		case tasks.ErrorEvent:
			return fmt.Errorf("conversion failed: %s", e.Message)
		}
	}
	return nil
}
