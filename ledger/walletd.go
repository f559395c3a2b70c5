package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"bount3-backend/core/escrow"
)

// WalletdLedger drives a wallet signing daemon over its REST API. The daemon
// holds the escrow account keys and submits the signed transactions; this
// client only describes them.
type WalletdLedger struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewWalletdLedgerFromEnv builds a client from WALLETD_URL, WALLETD_TOKEN
// and WALLETD_HTTP_TIMEOUT_SEC.
func NewWalletdLedgerFromEnv() *WalletdLedger {
	baseURL := os.Getenv("WALLETD_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:7833"
	}
	timeout := 30 * time.Second
	if raw := os.Getenv("WALLETD_HTTP_TIMEOUT_SEC"); raw != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && v > 0 {
			timeout = time.Duration(v) * time.Second
		}
	}
	return &WalletdLedger{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   os.Getenv("WALLETD_TOKEN"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (l *WalletdLedger) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		if len(msg) == 0 {
			return fmt.Errorf("walletd %s failed: %s", path, resp.Status)
		}
		return fmt.Errorf("walletd %s failed: %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (l *WalletdLedger) Pay(ctx context.Context, receiver string, amount uint64) error {
	return l.post(ctx, "/v1/payments", map[string]any{
		"receiver": receiver,
		"amount":   amount,
	}, nil)
}

func (l *WalletdLedger) AssetTransfer(ctx context.Context, assetID uint64, receiver string, amount uint64) error {
	return l.post(ctx, "/v1/asset-transfers", map[string]any{
		"asset_id": assetID,
		"receiver": receiver,
		"amount":   amount,
	}, nil)
}

func (l *WalletdLedger) AssetOptIn(ctx context.Context, assetID uint64, account string) error {
	return l.post(ctx, "/v1/asset-optins", map[string]any{
		"asset_id": assetID,
		"account":  account,
	}, nil)
}

func (l *WalletdLedger) CreateAsset(ctx context.Context, params escrow.AssetParams) (uint64, error) {
	var out struct {
		AssetID uint64 `json:"asset_id"`
	}
	if err := l.post(ctx, "/v1/assets", params, &out); err != nil {
		return 0, err
	}
	if out.AssetID == 0 {
		return 0, fmt.Errorf("walletd returned empty asset id")
	}
	return out.AssetID, nil
}

func (l *WalletdLedger) Balance(ctx context.Context, account string) (uint64, error) {
	var out struct {
		Amount uint64 `json:"amount"`
	}
	if err := l.get(ctx, "/v1/balance?account="+url.QueryEscape(account), &out); err != nil {
		return 0, err
	}
	return out.Amount, nil
}

func (l *WalletdLedger) AssetHolding(ctx context.Context, assetID uint64, account string) (uint64, bool, error) {
	var out struct {
		Amount  uint64 `json:"amount"`
		OptedIn bool   `json:"opted_in"`
	}
	path := fmt.Sprintf("/v1/asset-holding?account=%s&asset_id=%d", url.QueryEscape(account), assetID)
	if err := l.get(ctx, path, &out); err != nil {
		return 0, false, err
	}
	return out.Amount, out.OptedIn, nil
}

func (l *WalletdLedger) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+path, nil)
	if err != nil {
		return err
	}
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		if len(msg) == 0 {
			return fmt.Errorf("walletd %s failed: %s", path, resp.Status)
		}
		return fmt.Errorf("walletd %s failed: %s: %s", path, resp.Status, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
