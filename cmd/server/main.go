package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/browser-bridge/backend/api/handlers"
	"github.com/browser-bridge/backend/internal/call"
	"github.com/browser-bridge/backend/internal/config"
	"github.com/browser-bridge/backend/internal/db"
	"github.com/browser-bridge/backend/internal/store"
	"github.com/browser-bridge/backend/internal/terminal"
	"github.com/browser-bridge/backend/internal/ws"
)

// restartDelay is how long to wait after the shell exits before restarting
// it for clients that are still connected.
const restartDelay = 2 * time.Second

func main() {
	cfg := config.Load()

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	callRepo := store.NewCallRepository(database)

	// Initialize socket hub and call dispatcher
	hub := ws.NewHub()
	defer hub.Close()

	dispatcher := call.NewDispatcher(hub)
	dispatcher.SetRecorder(callRepo)

	// Initialize terminal session with hub wiring
	listener := &bridgeListener{hub: hub}
	session := terminal.NewSession(terminal.Options{
		Shell:         cfg.Shell,
		Workdir:       cfg.Workdir,
		Env:           cfg.Env,
		TranscriptDir: cfg.TranscriptDir,
	}, listener)
	listener.session = session

	wsHandler := ws.NewHandler(hub, session, dispatcher)
	listener.handler = wsHandler

	if err := session.Start(); err != nil {
		// The bridge is still useful for browser calls without a shell.
		log.Printf("Continuing without terminal: %v", err)
	}

	// Initialize handlers
	browserHandler := handlers.NewBrowserHandler(dispatcher, session, hub, callRepo)
	socketHandler := handlers.NewWebSocketHandler(wsHandler)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for the extension and local UI
	r.Use(corsMiddleware())

	browserHandler.RegisterRoutes(r)

	api := r.Group("/api")
	{
		socketHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		session.Kill()
		hub.Close()
		db.CloseDB()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting bridge server on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// bridgeListener wires terminal session events into the socket hub and
// applies the restart policy: a shell that exits while clients are still
// connected is restarted after a short delay.
type bridgeListener struct {
	hub     *ws.Hub
	handler *ws.Handler
	session *terminal.Session
}

func (l *bridgeListener) OnReady() {
	l.handler.BroadcastStatus("connected", "terminal ready")
}

func (l *bridgeListener) OnData(data []byte) {
	l.handler.BroadcastOutput(data)
}

func (l *bridgeListener) OnExit(exitCode int, signal string) {
	detail := fmt.Sprintf("terminal exited with code %d", exitCode)
	if signal != "" {
		detail = fmt.Sprintf("terminal killed by signal %s", signal)
	}
	l.handler.BroadcastStatus("disconnected", detail)

	if !l.hub.HasClients() {
		return
	}

	time.AfterFunc(restartDelay, func() {
		// Clients may have left during the delay; re-check before spawning.
		if !l.hub.HasClients() {
			return
		}
		if err := l.session.Start(); err != nil {
			log.Printf("Failed to restart terminal: %v", err)
		}
	})
}

func (l *bridgeListener) OnError(err error) {
	l.handler.BroadcastStatus("error", err.Error())
}

// corsMiddleware returns a permissive CORS middleware.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
