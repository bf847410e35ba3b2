package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/IFAKA/spotiytm/internal/services"
	"github.com/IFAKA/spotiytm/internal/shared"
	tu "github.com/IFAKA/spotiytm/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("register wires all top-level commands", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for _, c := range commands {
			names[c.Name] = true
		}
		for _, want := range []string{"serve", "convert", "auth", "setup"} {
			if !names[want] {
				t.Errorf("missing command %q", want)
			}
		}
	})
}

// testConfig writes a config pointing every path at the test's temp dir.
func testConfig(t *testing.T) (*shared.Config, string) {
	t.Helper()

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "test.db")
	config.Credentials.YouTube.HeadersPath = filepath.Join(dir, "headers.json")
	return config, dir
}

func runCommand(t *testing.T, runner *Runner, args ...string) error {
	t.Helper()

	app := &cli.Command{Name: "spotiytm", Commands: runner.register()}
	return app.Run(context.Background(), append([]string{"spotiytm"}, args...))
}

func TestSetupCommand(t *testing.T) {
	config, dir := testConfig(t)
	configPath := filepath.Join(dir, "config.toml")
	writeTestConfig(t, configPath, config)

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: config, Output: output})

	if err := runCommand(t, runner, "setup", "--config", configPath); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, config.Database.Path)
}

func TestAuthCommands(t *testing.T) {
	t.Run("login from curl then status", func(t *testing.T) {
		config, dir := testConfig(t)
		configPath := filepath.Join(dir, "config.toml")
		writeTestConfig(t, configPath, config)

		curlFile := filepath.Join(dir, "capture.sh")
		curl := `curl 'https://music.youtube.com/youtubei/v1/browse' -H 'cookie: SAPISID=abc; CONSENT=YES' -H 'x-goog-authuser: 0'`
		if err := os.WriteFile(curlFile, []byte(curl), 0644); err != nil {
			t.Fatal(err)
		}

		output := &bytes.Buffer{}
		// Verification probe gets a 200 from the stubbed transport.
		client := &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{}`)),
			Header:     make(http.Header),
		}, nil)}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, HTTPClient: client})

		err := runCommand(t, runner, "auth", "login", "--config", configPath, "--curl-file", curlFile)
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		tu.AssertFileExists(t, config.Credentials.YouTube.HeadersPath)

		session := services.LoadSession(config.Credentials.YouTube.HeadersPath)
		if got := session.Headers()["Cookie"]; got != "SAPISID=abc; CONSENT=YES" {
			t.Errorf("stored Cookie = %q", got)
		}

		output.Reset()
		if err := runCommand(t, runner, "auth", "status", "--config", configPath); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "✓") {
			t.Errorf("status output = %q", output.String())
		}
	})

	t.Run("login requires a source", func(t *testing.T) {
		config, dir := testConfig(t)
		configPath := filepath.Join(dir, "config.toml")
		writeTestConfig(t, configPath, config)

		runner := NewRunner(RunnerOpts{Config: config, Output: io.Discard})
		err := runCommand(t, runner, "auth", "login", "--config", configPath)
		if err == nil {
			t.Fatal("expected an error without any credential source")
		}
	})

	t.Run("status without credentials", func(t *testing.T) {
		config, dir := testConfig(t)
		configPath := filepath.Join(dir, "config.toml")
		writeTestConfig(t, configPath, config)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output})
		if err := runCommand(t, runner, "auth", "status", "--config", configPath); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "Not authenticated") {
			t.Errorf("status output = %q", output.String())
		}
	})

	t.Run("logout removes credentials", func(t *testing.T) {
		config, dir := testConfig(t)
		configPath := filepath.Join(dir, "config.toml")
		writeTestConfig(t, configPath, config)

		if _, err := services.SaveHeaders(config.Credentials.YouTube.HeadersPath, map[string]string{"Cookie": "SAPISID=x"}); err != nil {
			t.Fatal(err)
		}

		runner := NewRunner(RunnerOpts{Config: config, Output: io.Discard})
		if err := runCommand(t, runner, "auth", "logout", "--config", configPath); err != nil {
			t.Fatalf("logout failed: %v", err)
		}

		if _, err := os.Stat(config.Credentials.YouTube.HeadersPath); !os.IsNotExist(err) {
			t.Error("headers file must be removed")
		}
	})
}

func TestConvertCommand_RequiresURL(t *testing.T) {
	config, dir := testConfig(t)
	configPath := filepath.Join(dir, "config.toml")
	writeTestConfig(t, configPath, config)

	runner := NewRunner(RunnerOpts{Config: config, Output: io.Discard})
	err := runCommand(t, runner, "convert", "--config", configPath)
	if err == nil {
		t.Fatal("expected an error without a playlist url")
	}
}

func TestConvertCommand_RequiresAuth(t *testing.T) {
	config, dir := testConfig(t)
	configPath := filepath.Join(dir, "config.toml")
	writeTestConfig(t, configPath, config)

	runner := NewRunner(RunnerOpts{Config: config, Output: io.Discard})
	err := runCommand(t, runner, "convert", "--config", configPath, "--plain", "https://open.spotify.com/playlist/abc")
	if err == nil {
		t.Fatal("expected an error without stored credentials")
	}
	if !strings.Contains(err.Error(), "auth login") {
		t.Errorf("error should point at the login command: %v", err)
	}
}

// writeTestConfig serializes a minimal TOML config the commands can reload.
func writeTestConfig(t *testing.T, path string, config *shared.Config) {
	t.Helper()

	content := `[credentials.youtube]
headers_path = "` + config.Credentials.YouTube.HeadersPath + `"

[database]
path = "` + config.Database.Path + `"

[server]
host = "127.0.0.1"
port = 3000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
