package escrow

import "context"

// Payment describes the funding payment grouped with a createCampaign call.
// The ledger has already ordered it; the engine only validates it.
type Payment struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   uint64 `json:"amount"`
}

// AssetParams configures reward asset genesis.
type AssetParams struct {
	Total     uint64 `json:"total"`
	Decimals  uint32 `json:"decimals"`
	UnitName  string `json:"unit_name"`
	AssetName string `json:"asset_name"`
	Manager   string `json:"manager"`
	Reserve   string `json:"reserve"`
	Freeze    string `json:"freeze"`
	Clawback  string `json:"clawback"`
}

// Ledger abstracts the value-transfer primitives the escrow runs on. Every
// call is atomic on its own; the engine sequences them so a failed call never
// leaves partial registry state behind.
//
// Pay and AssetTransfer move value out of the escrow account. CreateAsset
// mints a new fungible asset and credits the full supply to the reserve.
type Ledger interface {
	Pay(ctx context.Context, receiver string, amount uint64) error
	AssetTransfer(ctx context.Context, assetID uint64, receiver string, amount uint64) error
	AssetOptIn(ctx context.Context, assetID uint64, account string) error
	CreateAsset(ctx context.Context, params AssetParams) (uint64, error)
	Balance(ctx context.Context, account string) (uint64, error)
	AssetHolding(ctx context.Context, assetID uint64, account string) (amount uint64, optedIn bool, err error)
}

// PaymentApplier is an optional Ledger extension for environments where the
// funding payment is not settled externally (the in-memory ledger). When the
// engine sees it, it applies the createCampaign payment after validation and
// before the campaign record is written.
type PaymentApplier interface {
	ApplyPayment(ctx context.Context, p Payment) error
}
