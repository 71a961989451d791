// Package config builds the process configuration from the environment.
// No other package reads environment variables directly.
package config

import (
	"os"
	"strings"
)

// Config holds all tunables for the bridge server and the tool gateway.
type Config struct {
	// Port the bridge server listens on.
	Port string

	// BaseURL is the address the gateway and supervisor use to reach the
	// bridge server's HTTP facade.
	BaseURL string

	// Shell is the command spawned for the interactive terminal session.
	Shell string

	// Workdir is the terminal session's working directory. Empty means the
	// process working directory.
	Workdir string

	// Env holds extra environment variables for the terminal session.
	Env map[string]string

	// TranscriptDir enables asciinema transcripts of the terminal session
	// when non-empty.
	TranscriptDir string

	// DBPath is the sqlite file backing the call history.
	DBPath string

	// ServerBinary is the bridge server executable the gateway spawns when
	// the server is not already running.
	ServerBinary string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Config {
	shell := getEnv("BRIDGE_SHELL", os.Getenv("SHELL"))
	if shell == "" {
		shell = "/bin/bash"
	}

	port := getEnv("BRIDGE_PORT", "8765")

	return &Config{
		Port:          port,
		BaseURL:       getEnv("BRIDGE_BASE_URL", "http://localhost:"+port),
		Shell:         shell,
		Workdir:       os.Getenv("BRIDGE_WORKDIR"),
		Env:           parseEnvList(os.Getenv("BRIDGE_TERM_ENV")),
		TranscriptDir: os.Getenv("BRIDGE_TRANSCRIPT_DIR"),
		DBPath:        getEnv("BRIDGE_DB_PATH", "data/bridge.db"),
		ServerBinary:  os.Getenv("BRIDGE_SERVER_BIN"),
	}
}

// getEnv returns the environment variable value or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseEnvList parses a comma-separated KEY=VALUE list.
func parseEnvList(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	env := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}
