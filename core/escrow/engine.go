package escrow

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Engine is the escrow state machine. It owns the campaign and submission
// lifecycles and all payout arithmetic. A single mutex serializes calls, so
// every operation observes and commits a consistent registry state: all
// preconditions (including ledger balances) are validated before the first
// mutation, and transfers never race registry writes.
type Engine struct {
	mu             sync.Mutex
	store          Store
	ledger         Ledger
	address        string // escrow account address, payment receiver and asset authority
	assetID        uint64 // 0 until MintRewardAsset succeeds
	platformEarned uint64
	sink           func(Event)
}

// NewEngine builds an Engine over the given registry and ledger. The sink
// receives one event per committed state change; nil disables events.
func NewEngine(store Store, ledger Ledger, address string, sink func(Event)) *Engine {
	if sink == nil {
		sink = func(Event) {}
	}
	return &Engine{
		store:   store,
		ledger:  ledger,
		address: address,
		sink:    sink,
	}
}

// Address returns the escrow account address.
func (e *Engine) Address() string { return e.address }

// Status reports the process-wide escrow state.
func (e *Engine) Status() EscrowStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EscrowStatus{
		Address:        e.address,
		AssetID:        e.assetID,
		PlatformEarned: e.platformEarned,
	}
}

// MintRewardAsset performs the one-shot reward asset genesis. The escrow
// address keeps every administrative role. A second call fails with
// ErrAlreadyMinted rather than orphaning the first asset's balances.
func (e *Engine) MintRewardAsset(ctx context.Context, caller string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.assetID != 0 {
		return 0, ErrAlreadyMinted
	}

	id, err := e.ledger.CreateAsset(ctx, AssetParams{
		Total:     RewardAssetTotal,
		Decimals:  RewardAssetDecimals,
		UnitName:  RewardAssetUnit,
		AssetName: RewardAssetName,
		Manager:   e.address,
		Reserve:   e.address,
		Freeze:    e.address,
		Clawback:  e.address,
	})
	if err != nil {
		return 0, fmt.Errorf("create reward asset: %w", err)
	}
	e.assetID = id

	log.Printf("escrow: minted reward asset %d", id)
	e.sink(Event{
		Type:      "minted_asset",
		EntityID:  fmt.Sprintf("%d", id),
		Actor:     caller,
		Message:   fmt.Sprintf("reward asset %d minted", id),
		CreatedAt: time.Now(),
	})
	return id, nil
}

// AssetID returns the reward asset identifier, or ErrAssetNotMinted before
// genesis.
func (e *Engine) AssetID() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.assetID == 0 {
		return 0, ErrAssetNotMinted
	}
	return e.assetID, nil
}

// CreateCampaign validates the grouped funding payment, computes the fixed
// per-submission reward and stores the new campaign under its metadata hash.
// The payment must land on the escrow address and match
// rewardPool + fee + deposit exactly.
func (e *Engine) CreateCampaign(ctx context.Context, caller, metadataHash string, pay Payment, depositAmount, feeAmount, goalSubmissions, rewardPoolAmount uint64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if metadataHash == "" {
		return "", ErrMissingMetadataHash
	}
	if pay.Receiver != e.address {
		return "", ErrInvalidReceiver
	}
	required, ok := addU64(rewardPoolAmount, feeAmount)
	if ok {
		required, ok = addU64(required, depositAmount)
	}
	if !ok || pay.Amount != required {
		return "", ErrIncorrectAmount
	}
	if goalSubmissions == 0 {
		return "", ErrZeroGoal
	}

	exists, err := e.store.CampaignExists(ctx, metadataHash)
	if err != nil {
		return "", fmt.Errorf("campaign lookup: %w", err)
	}
	if exists {
		return "", ErrCampaignExists
	}

	campaign := Campaign{
		Creator:             caller,
		MetadataHash:        metadataHash,
		Status:              StatusPending,
		DepositAmount:       depositAmount,
		PayPerPerson:        rewardPoolAmount / goalSubmissions,
		GoalSubmissions:     goalSubmissions,
		VerifiedSubmissions: 0,
	}

	// Registry record goes in before any settlement; funds must never sit in
	// escrow custody without a campaign behind them.
	if err := e.store.PutCampaign(ctx, campaign); err != nil {
		return "", fmt.Errorf("store campaign: %w", err)
	}

	// In environments without external settlement, move the funding payment
	// into escrow custody. Undo the record if the payment does not settle.
	if applier, ok := e.ledger.(PaymentApplier); ok {
		if err := applier.ApplyPayment(ctx, pay); err != nil {
			_ = e.store.DeleteCampaign(ctx, metadataHash)
			return "", fmt.Errorf("apply funding payment: %w", err)
		}
	}
	e.platformEarned += feeAmount

	log.Printf("escrow: campaign %s created by %s (goal=%d payPerPerson=%d)", metadataHash, caller, goalSubmissions, campaign.PayPerPerson)
	e.sink(Event{
		Type:      "campaign_created",
		EntityID:  metadataHash,
		Actor:     caller,
		Message:   fmt.Sprintf("campaign created, %d submissions at %d each", goalSubmissions, campaign.PayPerPerson),
		CreatedAt: time.Now(),
	})
	return metadataHash, nil
}

// SubmitWork registers a pending submission against an existing campaign.
// Goal capacity is not checked here; it is enforced at verification time.
func (e *Engine) SubmitWork(ctx context.Context, caller, metadataHash, campaignHash string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if metadataHash == "" {
		return "", ErrMissingMetadataHash
	}

	campaignExists, err := e.store.CampaignExists(ctx, campaignHash)
	if err != nil {
		return "", fmt.Errorf("campaign lookup: %w", err)
	}
	if !campaignExists {
		return "", ErrCampaignNotFound
	}

	exists, err := e.store.SubmissionExists(ctx, metadataHash)
	if err != nil {
		return "", fmt.Errorf("submission lookup: %w", err)
	}
	if exists {
		return "", ErrSubmissionExists
	}

	submission := Submission{
		Creator:      caller,
		MetadataHash: metadataHash,
		Status:       StatusPending,
		CampaignHash: campaignHash,
	}
	if err := e.store.PutSubmission(ctx, submission); err != nil {
		return "", fmt.Errorf("store submission: %w", err)
	}

	log.Printf("escrow: submission %s created by %s for campaign %s", metadataHash, caller, campaignHash)
	e.sink(Event{
		Type:      "submission_created",
		EntityID:  metadataHash,
		Actor:     caller,
		Message:   fmt.Sprintf("submission created for campaign %s", campaignHash),
		CreatedAt: time.Now(),
	})
	return metadataHash, nil
}

// Verify marks a pending submission verified, counts it against the campaign
// goal and pays the submitter the per-person reward in native value and in
// the reward asset. Balance and opt-in checks run before any write. If the
// native payment fails nothing has settled and the staged records are
// restored; once it settles the submission stays Verified no matter what,
// so a retry can never pay the native reward twice.
func (e *Engine) Verify(ctx context.Context, submissionKey string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	submission, err := e.store.GetSubmission(ctx, submissionKey)
	if err != nil {
		return "", err
	}
	if submission.Status != StatusPending {
		return "", ErrAlreadyProcessed
	}

	campaign, err := e.store.GetCampaign(ctx, submission.CampaignHash)
	if err != nil {
		return "", err
	}
	if campaign.VerifiedSubmissions >= campaign.GoalSubmissions {
		return "", ErrCampaignComplete
	}

	if e.assetID == 0 {
		return "", ErrAssetNotMinted
	}
	reward := campaign.PayPerPerson
	balance, err := e.ledger.Balance(ctx, e.address)
	if err != nil {
		return "", fmt.Errorf("escrow balance: %w", err)
	}
	if balance < reward {
		return "", ErrInsufficientFunds
	}
	assetBalance, _, err := e.ledger.AssetHolding(ctx, e.assetID, e.address)
	if err != nil {
		return "", fmt.Errorf("escrow asset holding: %w", err)
	}
	if assetBalance < reward {
		return "", ErrInsufficientAsset
	}
	_, recipientOptedIn, err := e.ledger.AssetHolding(ctx, e.assetID, submission.Creator)
	if err != nil {
		return "", fmt.Errorf("recipient asset holding: %w", err)
	}
	if !recipientOptedIn {
		return "", ErrNotOptedIn
	}

	prevSubmission := submission
	prevCampaign := campaign
	submission.Status = StatusVerified
	campaign.VerifiedSubmissions++

	if err := e.store.PutSubmission(ctx, submission); err != nil {
		return "", fmt.Errorf("store submission: %w", err)
	}
	if err := e.store.PutCampaign(ctx, campaign); err != nil {
		_ = e.store.PutSubmission(ctx, prevSubmission)
		return "", fmt.Errorf("store campaign: %w", err)
	}

	if err := e.ledger.Pay(ctx, submission.Creator, reward); err != nil {
		// Nothing has settled yet; restore the staged records.
		_ = e.store.PutSubmission(ctx, prevSubmission)
		_ = e.store.PutCampaign(ctx, prevCampaign)
		return "", fmt.Errorf("pay reward: %w", err)
	}
	if err := e.ledger.AssetTransfer(ctx, e.assetID, submission.Creator, reward); err != nil {
		// The native payment has settled. Reverting to Pending now would
		// release it a second time on retry, so the submission stays
		// Verified and the asset leg is left for reconciliation.
		log.Printf("escrow: submission %s verified, native reward paid but asset transfer failed: %v", submissionKey, err)
		e.sink(Event{
			Type:      "submission_verified",
			EntityID:  submissionKey,
			Actor:     submission.Creator,
			Message:   fmt.Sprintf("submission verified, %d native paid, asset transfer pending reconciliation", reward),
			CreatedAt: time.Now(),
		})
		return "", fmt.Errorf("transfer reward asset (native reward already paid): %w", err)
	}

	log.Printf("escrow: submission %s verified, paid %d to %s", submissionKey, reward, submission.Creator)
	e.sink(Event{
		Type:      "submission_verified",
		EntityID:  submissionKey,
		Actor:     submission.Creator,
		Message:   fmt.Sprintf("submission verified, %d paid to %s", reward, submission.Creator),
		CreatedAt: time.Now(),
	})
	return "Submission verified and rewarded", nil
}

// Decline marks a pending submission declined. No funds move, and the
// referenced campaign is never consulted, so declining still works after the
// campaign has been closed.
func (e *Engine) Decline(ctx context.Context, submissionKey string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	submission, err := e.store.GetSubmission(ctx, submissionKey)
	if err != nil {
		return "", err
	}
	if submission.Status != StatusPending {
		return "", ErrAlreadyProcessed
	}

	submission.Status = StatusDeclined
	if err := e.store.PutSubmission(ctx, submission); err != nil {
		return "", fmt.Errorf("store submission: %w", err)
	}

	log.Printf("escrow: submission %s declined", submissionKey)
	e.sink(Event{
		Type:      "submission_declined",
		EntityID:  submissionKey,
		Actor:     submission.Creator,
		Message:   "submission declined",
		CreatedAt: time.Now(),
	})
	return "Submission declined", nil
}

// CloseCampaign refunds the unspent deposit to the creator and deletes the
// campaign record. Only the creator may close. A deposit smaller than the
// verified payouts means prior corruption and fails with ErrAccounting
// instead of underflowing.
func (e *Engine) CloseCampaign(ctx context.Context, caller, campaignKey string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	campaign, err := e.store.GetCampaign(ctx, campaignKey)
	if err != nil {
		return "", err
	}
	if caller != campaign.Creator {
		return "", ErrNotCreator
	}

	totalPayout, ok := mulU64(campaign.VerifiedSubmissions, campaign.PayPerPerson)
	if !ok || campaign.DepositAmount < totalPayout {
		return "", ErrAccounting
	}
	refund := campaign.DepositAmount - totalPayout

	if refund > 0 {
		balance, err := e.ledger.Balance(ctx, e.address)
		if err != nil {
			return "", fmt.Errorf("escrow balance: %w", err)
		}
		if balance < refund {
			return "", ErrInsufficientFunds
		}
		if err := e.ledger.Pay(ctx, campaign.Creator, refund); err != nil {
			return "", fmt.Errorf("refund deposit: %w", err)
		}
	}

	if err := e.store.DeleteCampaign(ctx, campaignKey); err != nil {
		return "", fmt.Errorf("delete campaign: %w", err)
	}

	log.Printf("escrow: campaign %s closed by %s, refunded %d", campaignKey, caller, refund)
	e.sink(Event{
		Type:      "campaign_closed",
		EntityID:  campaignKey,
		Actor:     caller,
		Message:   fmt.Sprintf("campaign closed, %d refunded", refund),
		CreatedAt: time.Now(),
	})
	return "Campaign closed and refund processed", nil
}

// OptIn establishes the caller's capacity to hold the reward asset. Ledger
// errors (including a repeated opt-in the ledger rejects) pass through
// unchanged.
func (e *Engine) OptIn(ctx context.Context, caller string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.assetID == 0 {
		return "", ErrAssetNotMinted
	}
	if err := e.ledger.AssetOptIn(ctx, e.assetID, caller); err != nil {
		return "", err
	}
	return "Opt-in complete", nil
}

func addU64(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}

func mulU64(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	product := a * b
	return product, product/a == b
}
