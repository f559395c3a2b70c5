// Package ledger provides implementations of the escrow ledger primitives:
// an in-memory ledger for development and tests, and a REST client for a
// wallet signing daemon.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"bount3-backend/core/escrow"
)

type assetState struct {
	params   escrow.AssetParams
	holdings map[string]uint64 // only opted-in accounts have an entry
}

// MemoryLedger holds account balances and asset holdings in memory with a
// single mutex. Semantics mirror the real ledger: asset transfers to
// accounts that never opted in fail, repeated opt-ins are rejected, and
// debits below zero fail instead of wrapping.
type MemoryLedger struct {
	mu          sync.Mutex
	escrowAddr  string
	balances    map[string]uint64
	assets      map[uint64]*assetState
	nextAssetID uint64
}

// NewMemoryLedger builds a ledger whose outbound transfers are drawn from
// escrowAddr.
func NewMemoryLedger(escrowAddr string) *MemoryLedger {
	return &MemoryLedger{
		escrowAddr:  escrowAddr,
		balances:    make(map[string]uint64),
		assets:      make(map[uint64]*assetState),
		nextAssetID: 1000,
	}
}

// Fund credits native value to an account. Test and dev helper; on a real
// ledger funding arrives as ordinary payments.
func (l *MemoryLedger) Fund(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

func (l *MemoryLedger) Pay(_ context.Context, receiver string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[l.escrowAddr] < amount {
		return fmt.Errorf("insufficient balance: have %d, need %d", l.balances[l.escrowAddr], amount)
	}
	l.balances[l.escrowAddr] -= amount
	l.balances[receiver] += amount
	return nil
}

func (l *MemoryLedger) AssetTransfer(_ context.Context, assetID uint64, receiver string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	asset, ok := l.assets[assetID]
	if !ok {
		return fmt.Errorf("unknown asset %d", assetID)
	}
	if _, optedIn := asset.holdings[receiver]; !optedIn {
		return fmt.Errorf("account %s has not opted in to asset %d", receiver, assetID)
	}
	if asset.holdings[l.escrowAddr] < amount {
		return fmt.Errorf("insufficient asset balance: have %d, need %d", asset.holdings[l.escrowAddr], amount)
	}
	asset.holdings[l.escrowAddr] -= amount
	asset.holdings[receiver] += amount
	return nil
}

func (l *MemoryLedger) AssetOptIn(_ context.Context, assetID uint64, account string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	asset, ok := l.assets[assetID]
	if !ok {
		return fmt.Errorf("unknown asset %d", assetID)
	}
	if _, optedIn := asset.holdings[account]; optedIn {
		return fmt.Errorf("account %s already opted in to asset %d", account, assetID)
	}
	asset.holdings[account] = 0
	return nil
}

func (l *MemoryLedger) CreateAsset(_ context.Context, params escrow.AssetParams) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextAssetID
	l.nextAssetID++
	l.assets[id] = &assetState{
		params:   params,
		holdings: map[string]uint64{params.Reserve: params.Total},
	}
	return id, nil
}

func (l *MemoryLedger) Balance(_ context.Context, account string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

func (l *MemoryLedger) AssetHolding(_ context.Context, assetID uint64, account string) (uint64, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	asset, ok := l.assets[assetID]
	if !ok {
		return 0, false, fmt.Errorf("unknown asset %d", assetID)
	}
	amount, optedIn := asset.holdings[account]
	return amount, optedIn, nil
}

// ApplyPayment settles a createCampaign funding payment: debit the sender,
// credit the receiver.
func (l *MemoryLedger) ApplyPayment(_ context.Context, p escrow.Payment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[p.Sender] < p.Amount {
		return fmt.Errorf("insufficient balance: sender %s has %d, payment needs %d", p.Sender, l.balances[p.Sender], p.Amount)
	}
	l.balances[p.Sender] -= p.Amount
	l.balances[p.Receiver] += p.Amount
	return nil
}
