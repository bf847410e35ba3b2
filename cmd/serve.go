package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/IFAKA/spotiytm/internal/server"
	"github.com/IFAKA/spotiytm/internal/services"
	"github.com/IFAKA/spotiytm/internal/shared"
	"github.com/IFAKA/spotiytm/internal/tasks"
)

// portAttempts bounds the probe for a free port above the configured one.
const portAttempts = 10

// Serve starts the local web UI and opens it in the default browser.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, store, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer db.Close()

	sessionRef := services.NewSessionRef(config.Credentials.YouTube.HeadersPath)

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(&server.IndexHandler{})
	router.Handler(&server.PreviewHandler{Source: r.newSource(config)})
	router.Handler(&server.ConvertHandler{
		Session: sessionRef,
		Logger:  r.logger,
		Convert: func(ctx context.Context, reference string) <-chan tasks.Event {
			return r.newConverter(config, sessionRef, store).Convert(ctx, reference)
		},
		NewChecker: func(headers map[string]string) services.CredentialChecker {
			return services.NewYTMusicService(headers, r.httpClient)
		},
	})
	router.Handler(&server.AuthHandler{Session: sessionRef})

	port, err := server.FindPort(config.Server.Host, config.Server.Port, portAttempts)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", config.Server.Host, port)
	srv := &http.Server{Addr: addr, Handler: router}

	browserHost := config.Server.Host
	if browserHost == "" || browserHost == "0.0.0.0" {
		browserHost = "localhost"
	}
	url := fmt.Sprintf("http://%s:%d", browserHost, port)

	r.logger.Info("starting server", "addr", addr)
	r.writePlain("Listening on %s\n", url)

	if !cmd.Bool("no-open") {
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		r.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
