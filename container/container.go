// Package container wires the escrow application dependencies.
package container

import (
	"context"
	"fmt"
	"os"

	"bount3-backend/core/escrow"
	"bount3-backend/ipfs"
	"bount3-backend/ledger"
	"bount3-backend/metrics"
	escrowmw "bount3-backend/middleware/escrow"
	"bount3-backend/services"
	escrowstore "bount3-backend/storage/escrow"
)

// Container holds all application dependencies
type Container struct {
	Store  escrow.Store
	Ledger escrow.Ledger
	Engine *escrow.Engine
	Server *escrowmw.Server
	IPFS   *ipfs.Client
	QR     *services.QRCodeService
	Events *services.EventService
	Health *services.HealthService
}

// NewContainer builds the dependency graph from the environment. A set
// DATABASE_URL selects the Postgres registry, WALLETD_URL the wallet daemon
// ledger; both fall back to in-memory implementations.
func NewContainer(ctx context.Context) (*Container, error) {
	address := os.Getenv("ESCROW_APP_ADDRESS")
	if address == "" {
		address = "ESCROW"
	}

	var store escrow.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pg, err := escrowstore.NewPGStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		store = pg
	} else {
		store = escrowstore.NewMemoryStore()
	}

	var led escrow.Ledger
	if os.Getenv("WALLETD_URL") != "" {
		led = ledger.NewWalletdLedgerFromEnv()
	} else {
		led = ledger.NewMemoryLedger(address)
	}

	bus := escrowmw.NewEventBus()
	engine := escrow.NewEngine(store, led, address, bus.Publish)
	bus.Register(metrics.ObserveEvent)

	eventService := services.NewEventService()
	bus.Register(eventService.BroadcastEvent)

	qr := services.NewQRCodeService()
	relay := ipfs.NewClientFromEnv()
	health := services.NewHealthService()
	server := escrowmw.NewServer(engine, store, qr, relay, health, os.Getenv("ESCROW_API_KEY"))
	bus.Register(server.RecordEvent)

	return &Container{
		Store:  store,
		Ledger: led,
		Engine: engine,
		Server: server,
		IPFS:   relay,
		QR:     qr,
		Events: eventService,
		Health: health,
	}, nil
}
