package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/browser-bridge/backend/internal/bridge"
	"github.com/browser-bridge/backend/internal/config"
	"github.com/browser-bridge/backend/internal/gateway"
	"github.com/browser-bridge/backend/internal/supervisor"
)

func main() {
	// Stdout carries the MCP protocol; everything else goes to stderr.
	log.SetOutput(os.Stderr)

	cfg := config.Load()

	binary := cfg.ServerBinary
	if binary == "" {
		binary = siblingServerBinary()
	}

	sup := supervisor.New(cfg.BaseURL, binary)
	sup.EnsureRunning(context.Background())

	client := bridge.NewClient(cfg.BaseURL)
	s := gateway.NewServer(client)

	log.Printf("Starting MCP gateway for %s", cfg.BaseURL)
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}

// siblingServerBinary locates the bridge server executable next to this one.
func siblingServerBinary() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(exe), "bridge-server")
}
