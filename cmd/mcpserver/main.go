package main

import (
	"context"
	"log"
	"sync"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"bount3-backend/container"
	"bount3-backend/core/escrow"
	"bount3-backend/mcp"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	deps, err := container.NewContainer(ctx)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer deps.Store.Close()

	// Buffer events locally for the list_events tool.
	var mu sync.Mutex
	var events []escrow.Event
	go func() {
		for evt := range deps.Events.GetEventChannel() {
			mu.Lock()
			events = append(events, evt)
			if len(events) > 500 {
				events = events[len(events)-500:]
			}
			mu.Unlock()
		}
	}()

	mcpServer := mcp.NewMCPServer(deps.Engine, deps.Store, func() []escrow.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]escrow.Event{}, events...)
	})

	log.Printf("Bount3 escrow MCP server starting (escrow address %s)", deps.Engine.Address())

	if err := server.ServeStdio(mcpServer.GetMCPServer()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
