package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/IFAKA/spotiytm/internal/repositories"
	"github.com/IFAKA/spotiytm/internal/services"
	"github.com/IFAKA/spotiytm/internal/shared"
	"github.com/IFAKA/spotiytm/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, convertCommand, authCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig re-reads the config file named by the command's --config flag,
// falling back to the config the runner was built with.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	configPath := cmd.String("config")
	if configPath == "" {
		return r.config
	}

	if _, err := os.Stat(configPath); err != nil {
		return r.config
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		return r.config
	}
	return config
}

// openStore opens the checkpoint database and prepares its schema.
func (r *Runner) openStore(config *shared.Config) (*sql.DB, *repositories.CheckpointRepository, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	store, err := repositories.NewCheckpointRepository(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to prepare checkpoint store: %w", err)
	}

	return db, store, nil
}

// newSource builds the Spotify track source from configured credentials.
func (r *Runner) newSource(config *shared.Config) *services.SpotifyService {
	creds := config.Credentials.Spotify
	return services.NewSpotifyService(creds.ClientID, creds.ClientSecret, r.httpClient)
}

// newConverter wires a converter for one conversion run. The YouTube Music
// client is built from the session ref's current headers so a re-login is
// picked up without restarting.
func (r *Runner) newConverter(config *shared.Config, sessionRef *services.SessionRef, store tasks.CheckpointStore) *tasks.Converter {
	yt := services.NewYTMusicService(sessionRef.Current().Headers(), r.httpClient)

	return tasks.NewConverter(tasks.ConverterOpts{
		Source:             r.newSource(config),
		Resolver:           yt,
		Sink:               yt,
		Store:              store,
		Logger:             r.logger,
		OnAuthExpired:      sessionRef.Invalidate,
		Concurrency:        config.Convert.Concurrency,
		CheckpointInterval: config.Convert.CheckpointInterval,
		BatchSize:          config.Convert.BatchSize,
	})
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
