package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"bount3-backend/container"
	"bount3-backend/metrics"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env")
	}

	ctx := context.Background()
	deps, err := container.NewContainer(ctx)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer deps.Store.Close()

	// Refresh the platform-earnings gauge off the serialized engine.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			metrics.SetPlatformEarned(deps.Engine.Status().PlatformEarned)
		}
	}()

	mux := http.NewServeMux()
	deps.Server.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	addr := os.Getenv("ESCROW_HTTP_ADDR")
	if addr == "" {
		addr = ":3001"
	}

	log.Printf("bount3 escrow backend listening on %s (escrow address %s)", addr, deps.Engine.Address())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}
