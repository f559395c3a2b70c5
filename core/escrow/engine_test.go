package escrow_test

import (
	"context"
	"errors"
	"testing"

	"bount3-backend/core/escrow"
	"bount3-backend/ledger"
	escrowstore "bount3-backend/storage/escrow"
)

const (
	escrowAddr = "ESCROW-ADDRESS"
	creator    = "CREATOR-ADDRESS"
	worker     = "WORKER-ADDRESS"
)

func newTestEngine(t *testing.T) (*escrow.Engine, *escrowstore.MemoryStore, *ledger.MemoryLedger, *[]escrow.Event) {
	t.Helper()
	store := escrowstore.NewMemoryStore()
	led := ledger.NewMemoryLedger(escrowAddr)
	var events []escrow.Event
	engine := escrow.NewEngine(store, led, escrowAddr, func(evt escrow.Event) {
		events = append(events, evt)
	})
	return engine, store, led, &events
}

// mintAndOptIn runs asset genesis and opts the worker in.
func mintAndOptIn(t *testing.T, engine *escrow.Engine) uint64 {
	t.Helper()
	ctx := context.Background()
	assetID, err := engine.MintRewardAsset(ctx, creator)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := engine.OptIn(ctx, worker); err != nil {
		t.Fatalf("opt-in failed: %v", err)
	}
	return assetID
}

// fundAndCreate funds the creator and creates a standard test campaign:
// deposit 1100, fee 100, pool 1000, goal 3.
func fundAndCreate(t *testing.T, engine *escrow.Engine, led *ledger.MemoryLedger, hash string) {
	t.Helper()
	led.Fund(creator, 2200)
	_, err := engine.CreateCampaign(context.Background(), creator, hash,
		escrow.Payment{Sender: creator, Receiver: escrowAddr, Amount: 2200},
		1100, 100, 3, 1000)
	if err != nil {
		t.Fatalf("create campaign failed: %v", err)
	}
}

func TestMintRewardAsset(t *testing.T) {
	engine, _, led, events := newTestEngine(t)
	ctx := context.Background()

	assetID, err := engine.MintRewardAsset(ctx, creator)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if assetID == 0 {
		t.Fatal("expected non-zero asset id")
	}

	amount, optedIn, err := led.AssetHolding(ctx, assetID, escrowAddr)
	if err != nil {
		t.Fatalf("asset holding: %v", err)
	}
	if !optedIn {
		t.Error("expected escrow to hold the reserve")
	}
	if amount != escrow.RewardAssetTotal {
		t.Errorf("expected full supply %d in reserve, got %d", escrow.RewardAssetTotal, amount)
	}

	t.Run("Second mint is rejected", func(t *testing.T) {
		if _, err := engine.MintRewardAsset(ctx, creator); !errors.Is(err, escrow.ErrAlreadyMinted) {
			t.Errorf("expected ErrAlreadyMinted, got %v", err)
		}
	})

	if len(*events) != 1 || (*events)[0].Type != "minted_asset" {
		t.Errorf("expected a single minted_asset event, got %+v", *events)
	}
}

func TestCreateCampaign(t *testing.T) {
	engine, store, led, _ := newTestEngine(t)
	ctx := context.Background()

	t.Run("Floor division never over-allocates", func(t *testing.T) {
		fundAndCreate(t, engine, led, "camp-floor")
		campaign, err := store.GetCampaign(ctx, "camp-floor")
		if err != nil {
			t.Fatalf("get campaign: %v", err)
		}
		if campaign.PayPerPerson != 333 {
			t.Errorf("expected payPerPerson 333, got %d", campaign.PayPerPerson)
		}
		if campaign.PayPerPerson*campaign.GoalSubmissions > 1000 {
			t.Errorf("payPerPerson*goal %d exceeds reward pool", campaign.PayPerPerson*campaign.GoalSubmissions)
		}
		if campaign.Status != escrow.StatusPending {
			t.Errorf("expected status Pending, got %s", campaign.Status)
		}
		if campaign.VerifiedSubmissions != 0 {
			t.Errorf("expected zero verified submissions, got %d", campaign.VerifiedSubmissions)
		}
	})

	t.Run("Wrong receiver", func(t *testing.T) {
		_, err := engine.CreateCampaign(ctx, creator, "camp-recv",
			escrow.Payment{Sender: creator, Receiver: "SOMEONE-ELSE", Amount: 2200},
			1100, 100, 3, 1000)
		if !errors.Is(err, escrow.ErrInvalidReceiver) {
			t.Errorf("expected ErrInvalidReceiver, got %v", err)
		}
	})

	t.Run("Wrong amount", func(t *testing.T) {
		_, err := engine.CreateCampaign(ctx, creator, "camp-amt",
			escrow.Payment{Sender: creator, Receiver: escrowAddr, Amount: 2201},
			1100, 100, 3, 1000)
		if !errors.Is(err, escrow.ErrIncorrectAmount) {
			t.Errorf("expected ErrIncorrectAmount, got %v", err)
		}
	})

	t.Run("Zero goal", func(t *testing.T) {
		_, err := engine.CreateCampaign(ctx, creator, "camp-zero",
			escrow.Payment{Sender: creator, Receiver: escrowAddr, Amount: 2200},
			1100, 100, 0, 1000)
		if !errors.Is(err, escrow.ErrZeroGoal) {
			t.Errorf("expected ErrZeroGoal, got %v", err)
		}
	})

	t.Run("Missing metadata hash", func(t *testing.T) {
		_, err := engine.CreateCampaign(ctx, creator, "",
			escrow.Payment{Sender: creator, Receiver: escrowAddr, Amount: 2200},
			1100, 100, 3, 1000)
		if !errors.Is(err, escrow.ErrMissingMetadataHash) {
			t.Errorf("expected ErrMissingMetadataHash, got %v", err)
		}
	})

	t.Run("Duplicate key is rejected", func(t *testing.T) {
		led.Fund(creator, 2200)
		_, err := engine.CreateCampaign(ctx, creator, "camp-floor",
			escrow.Payment{Sender: creator, Receiver: escrowAddr, Amount: 2200},
			1100, 100, 3, 1000)
		if !errors.Is(err, escrow.ErrCampaignExists) {
			t.Errorf("expected ErrCampaignExists, got %v", err)
		}
	})

	t.Run("Funding payment settles into escrow", func(t *testing.T) {
		balance, err := led.Balance(ctx, escrowAddr)
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if balance != 2200 {
			t.Errorf("expected escrow balance 2200, got %d", balance)
		}
	})
}

func TestSubmitWork(t *testing.T) {
	engine, store, led, _ := newTestEngine(t)
	ctx := context.Background()
	fundAndCreate(t, engine, led, "camp-1")

	t.Run("Unknown campaign", func(t *testing.T) {
		_, err := engine.SubmitWork(ctx, worker, "sub-orphan", "no-such-campaign")
		if !errors.Is(err, escrow.ErrCampaignNotFound) {
			t.Errorf("expected ErrCampaignNotFound, got %v", err)
		}
		if exists, _ := store.SubmissionExists(ctx, "sub-orphan"); exists {
			t.Error("expected no submission record to be created")
		}
	})

	t.Run("Pending submission stored", func(t *testing.T) {
		key, err := engine.SubmitWork(ctx, worker, "sub-1", "camp-1")
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		if key != "sub-1" {
			t.Errorf("expected returned key sub-1, got %s", key)
		}
		sub, err := store.GetSubmission(ctx, "sub-1")
		if err != nil {
			t.Fatalf("get submission: %v", err)
		}
		if sub.Status != escrow.StatusPending {
			t.Errorf("expected status Pending, got %s", sub.Status)
		}
		if sub.CampaignHash != "camp-1" {
			t.Errorf("expected campaign ref camp-1, got %s", sub.CampaignHash)
		}
	})

	t.Run("Duplicate key is rejected", func(t *testing.T) {
		if _, err := engine.SubmitWork(ctx, worker, "sub-1", "camp-1"); !errors.Is(err, escrow.ErrSubmissionExists) {
			t.Errorf("expected ErrSubmissionExists, got %v", err)
		}
	})

	t.Run("Missing metadata hash", func(t *testing.T) {
		if _, err := engine.SubmitWork(ctx, worker, "", "camp-1"); !errors.Is(err, escrow.ErrMissingMetadataHash) {
			t.Errorf("expected ErrMissingMetadataHash, got %v", err)
		}
	})
}

func TestVerify(t *testing.T) {
	engine, store, led, _ := newTestEngine(t)
	ctx := context.Background()
	assetID := mintAndOptIn(t, engine)
	fundAndCreate(t, engine, led, "camp-1")

	submit := func(key string) {
		t.Helper()
		if _, err := engine.SubmitWork(ctx, worker, key, "camp-1"); err != nil {
			t.Fatalf("submit %s failed: %v", key, err)
		}
	}

	t.Run("Verify pays native and asset reward", func(t *testing.T) {
		submit("sub-1")
		status, err := engine.Verify(ctx, "sub-1")
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if status != "Submission verified and rewarded" {
			t.Errorf("unexpected status %q", status)
		}

		balance, _ := led.Balance(ctx, worker)
		if balance != 333 {
			t.Errorf("expected worker balance 333, got %d", balance)
		}
		assetBal, _, _ := led.AssetHolding(ctx, assetID, worker)
		if assetBal != 333 {
			t.Errorf("expected worker asset balance 333, got %d", assetBal)
		}

		campaign, _ := store.GetCampaign(ctx, "camp-1")
		if campaign.VerifiedSubmissions != 1 {
			t.Errorf("expected 1 verified submission, got %d", campaign.VerifiedSubmissions)
		}
		sub, _ := store.GetSubmission(ctx, "sub-1")
		if sub.Status != escrow.StatusVerified {
			t.Errorf("expected status Verified, got %s", sub.Status)
		}
	})

	t.Run("Second verify of same submission has no side effects", func(t *testing.T) {
		if _, err := engine.Verify(ctx, "sub-1"); !errors.Is(err, escrow.ErrAlreadyProcessed) {
			t.Errorf("expected ErrAlreadyProcessed, got %v", err)
		}
		campaign, _ := store.GetCampaign(ctx, "camp-1")
		if campaign.VerifiedSubmissions != 1 {
			t.Errorf("verified count changed on rejected verify: %d", campaign.VerifiedSubmissions)
		}
		balance, _ := led.Balance(ctx, worker)
		if balance != 333 {
			t.Errorf("worker balance changed on rejected verify: %d", balance)
		}
	})

	t.Run("Goal bounds verified submissions", func(t *testing.T) {
		submit("sub-2")
		submit("sub-3")
		submit("sub-4")
		for _, key := range []string{"sub-2", "sub-3"} {
			if _, err := engine.Verify(ctx, key); err != nil {
				t.Fatalf("verify %s failed: %v", key, err)
			}
		}

		workerBefore, _ := led.Balance(ctx, worker)
		if _, err := engine.Verify(ctx, "sub-4"); !errors.Is(err, escrow.ErrCampaignComplete) {
			t.Errorf("expected ErrCampaignComplete, got %v", err)
		}
		workerAfter, _ := led.Balance(ctx, worker)
		if workerBefore != workerAfter {
			t.Errorf("transfer happened on rejected verify: %d -> %d", workerBefore, workerAfter)
		}

		campaign, _ := store.GetCampaign(ctx, "camp-1")
		if campaign.VerifiedSubmissions != campaign.GoalSubmissions {
			t.Errorf("expected verified == goal, got %d/%d", campaign.VerifiedSubmissions, campaign.GoalSubmissions)
		}
		sub, _ := store.GetSubmission(ctx, "sub-4")
		if sub.Status != escrow.StatusPending {
			t.Errorf("rejected verify mutated submission status: %s", sub.Status)
		}
	})

	t.Run("Total payout stays within deposit", func(t *testing.T) {
		workerBalance, _ := led.Balance(ctx, worker)
		if workerBalance != 999 {
			t.Errorf("expected total native payout 999, got %d", workerBalance)
		}
	})
}

func TestVerifyPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown submission", func(t *testing.T) {
		engine, _, _, _ := newTestEngine(t)
		if _, err := engine.Verify(ctx, "nope"); !errors.Is(err, escrow.ErrSubmissionNotFound) {
			t.Errorf("expected ErrSubmissionNotFound, got %v", err)
		}
	})

	t.Run("Asset not minted", func(t *testing.T) {
		engine, _, led, _ := newTestEngine(t)
		fundAndCreate(t, engine, led, "camp-1")
		if _, err := engine.SubmitWork(ctx, worker, "sub-1", "camp-1"); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		if _, err := engine.Verify(ctx, "sub-1"); !errors.Is(err, escrow.ErrAssetNotMinted) {
			t.Errorf("expected ErrAssetNotMinted, got %v", err)
		}
	})

	t.Run("Recipient not opted in", func(t *testing.T) {
		engine, _, led, _ := newTestEngine(t)
		if _, err := engine.MintRewardAsset(ctx, creator); err != nil {
			t.Fatalf("mint failed: %v", err)
		}
		fundAndCreate(t, engine, led, "camp-1")
		if _, err := engine.SubmitWork(ctx, worker, "sub-1", "camp-1"); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		if _, err := engine.Verify(ctx, "sub-1"); !errors.Is(err, escrow.ErrNotOptedIn) {
			t.Errorf("expected ErrNotOptedIn, got %v", err)
		}
	})

	t.Run("Insufficient escrow balance leaves no partial state", func(t *testing.T) {
		engine, store, _, _ := newTestEngine(t)
		mintAndOptIn(t, engine)
		// Campaign record without any escrowed funds behind it.
		if err := store.PutCampaign(ctx, escrow.Campaign{
			Creator:         creator,
			MetadataHash:    "camp-broke",
			Status:          escrow.StatusPending,
			DepositAmount:   1100,
			PayPerPerson:    333,
			GoalSubmissions: 3,
		}); err != nil {
			t.Fatalf("put campaign: %v", err)
		}
		if _, err := engine.SubmitWork(ctx, worker, "sub-1", "camp-broke"); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		if _, err := engine.Verify(ctx, "sub-1"); !errors.Is(err, escrow.ErrInsufficientFunds) {
			t.Errorf("expected ErrInsufficientFunds, got %v", err)
		}
		sub, _ := store.GetSubmission(ctx, "sub-1")
		if sub.Status != escrow.StatusPending {
			t.Errorf("rejected verify mutated submission status: %s", sub.Status)
		}
		campaign, _ := store.GetCampaign(ctx, "camp-broke")
		if campaign.VerifiedSubmissions != 0 {
			t.Errorf("rejected verify mutated verified count: %d", campaign.VerifiedSubmissions)
		}
	})
}

// flakyAssetLedger fails the first n asset transfers, then behaves normally.
type flakyAssetLedger struct {
	*ledger.MemoryLedger
	failures int
}

func (l *flakyAssetLedger) AssetTransfer(ctx context.Context, assetID uint64, receiver string, amount uint64) error {
	if l.failures > 0 {
		l.failures--
		return errors.New("asset transfer temporarily unavailable")
	}
	return l.MemoryLedger.AssetTransfer(ctx, assetID, receiver, amount)
}

func TestVerifySettledPaymentNotRepeated(t *testing.T) {
	store := escrowstore.NewMemoryStore()
	led := ledger.NewMemoryLedger(escrowAddr)
	flaky := &flakyAssetLedger{MemoryLedger: led, failures: 1}
	engine := escrow.NewEngine(store, flaky, escrowAddr, nil)
	ctx := context.Background()

	if _, err := engine.MintRewardAsset(ctx, creator); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := engine.OptIn(ctx, worker); err != nil {
		t.Fatalf("opt-in failed: %v", err)
	}
	fundAndCreate(t, engine, led, "camp-1")
	if _, err := engine.SubmitWork(ctx, worker, "sub-1", "camp-1"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if _, err := engine.Verify(ctx, "sub-1"); err == nil {
		t.Fatal("expected verify to report the failed asset transfer")
	}

	t.Run("Native payment stays settled", func(t *testing.T) {
		balance, _ := led.Balance(ctx, worker)
		if balance != 333 {
			t.Errorf("expected worker balance 333 after failed asset leg, got %d", balance)
		}
		sub, _ := store.GetSubmission(ctx, "sub-1")
		if sub.Status != escrow.StatusVerified {
			t.Errorf("expected submission to stay Verified, got %s", sub.Status)
		}
		campaign, _ := store.GetCampaign(ctx, "camp-1")
		if campaign.VerifiedSubmissions != 1 {
			t.Errorf("expected verified count 1, got %d", campaign.VerifiedSubmissions)
		}
	})

	t.Run("Retry cannot pay the native reward twice", func(t *testing.T) {
		if _, err := engine.Verify(ctx, "sub-1"); !errors.Is(err, escrow.ErrAlreadyProcessed) {
			t.Errorf("expected ErrAlreadyProcessed on retry, got %v", err)
		}
		balance, _ := led.Balance(ctx, worker)
		if balance != 333 {
			t.Errorf("retry changed worker balance: got %d, want 333", balance)
		}
	})
}

// failingCampaignStore rejects campaign writes with a configured error.
type failingCampaignStore struct {
	*escrowstore.MemoryStore
	putErr error
}

func (s *failingCampaignStore) PutCampaign(ctx context.Context, c escrow.Campaign) error {
	if s.putErr != nil {
		return s.putErr
	}
	return s.MemoryStore.PutCampaign(ctx, c)
}

func TestCreateCampaignPartialFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("Registry write failure moves no funds", func(t *testing.T) {
		store := &failingCampaignStore{
			MemoryStore: escrowstore.NewMemoryStore(),
			putErr:      errors.New("write refused"),
		}
		led := ledger.NewMemoryLedger(escrowAddr)
		engine := escrow.NewEngine(store, led, escrowAddr, nil)
		led.Fund(creator, 2200)

		_, err := engine.CreateCampaign(ctx, creator, "camp-1",
			escrow.Payment{Sender: creator, Receiver: escrowAddr, Amount: 2200},
			1100, 100, 3, 1000)
		if err == nil {
			t.Fatal("expected create to fail")
		}
		creatorBalance, _ := led.Balance(ctx, creator)
		if creatorBalance != 2200 {
			t.Errorf("creator funds moved despite failed write: %d", creatorBalance)
		}
		escrowBalance, _ := led.Balance(ctx, escrowAddr)
		if escrowBalance != 0 {
			t.Errorf("escrow credited despite failed write: %d", escrowBalance)
		}
	})

	t.Run("Failed settlement leaves no record", func(t *testing.T) {
		engine, store, _, _ := newTestEngine(t)
		// Creator never funded, so the payment cannot settle.
		_, err := engine.CreateCampaign(ctx, creator, "camp-1",
			escrow.Payment{Sender: creator, Receiver: escrowAddr, Amount: 2200},
			1100, 100, 3, 1000)
		if err == nil {
			t.Fatal("expected create to fail")
		}
		if exists, _ := store.CampaignExists(ctx, "camp-1"); exists {
			t.Error("campaign record left behind after failed settlement")
		}
		if earned := engine.Status().PlatformEarned; earned != 0 {
			t.Errorf("fee accrued despite failed settlement: %d", earned)
		}
	})
}

func TestDecline(t *testing.T) {
	engine, store, led, _ := newTestEngine(t)
	ctx := context.Background()
	fundAndCreate(t, engine, led, "camp-1")
	if _, err := engine.SubmitWork(ctx, worker, "sub-1", "camp-1"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	t.Run("Decline moves no funds", func(t *testing.T) {
		escrowBefore, _ := led.Balance(ctx, escrowAddr)
		status, err := engine.Decline(ctx, "sub-1")
		if err != nil {
			t.Fatalf("decline failed: %v", err)
		}
		if status != "Submission declined" {
			t.Errorf("unexpected status %q", status)
		}
		escrowAfter, _ := led.Balance(ctx, escrowAddr)
		if escrowBefore != escrowAfter {
			t.Errorf("decline moved funds: %d -> %d", escrowBefore, escrowAfter)
		}
		sub, _ := store.GetSubmission(ctx, "sub-1")
		if sub.Status != escrow.StatusDeclined {
			t.Errorf("expected status Declined, got %s", sub.Status)
		}
	})

	t.Run("Terminal status is immutable", func(t *testing.T) {
		if _, err := engine.Decline(ctx, "sub-1"); !errors.Is(err, escrow.ErrAlreadyProcessed) {
			t.Errorf("expected ErrAlreadyProcessed, got %v", err)
		}
		if _, err := engine.Verify(ctx, "sub-1"); !errors.Is(err, escrow.ErrAlreadyProcessed) {
			t.Errorf("expected ErrAlreadyProcessed, got %v", err)
		}
	})

	t.Run("Unknown submission", func(t *testing.T) {
		if _, err := engine.Decline(ctx, "nope"); !errors.Is(err, escrow.ErrSubmissionNotFound) {
			t.Errorf("expected ErrSubmissionNotFound, got %v", err)
		}
	})
}

func TestCloseCampaign(t *testing.T) {
	engine, store, led, _ := newTestEngine(t)
	ctx := context.Background()
	mintAndOptIn(t, engine)
	fundAndCreate(t, engine, led, "camp-1")

	for _, key := range []string{"sub-1", "sub-2", "sub-3"} {
		if _, err := engine.SubmitWork(ctx, worker, key, "camp-1"); err != nil {
			t.Fatalf("submit %s failed: %v", key, err)
		}
		if _, err := engine.Verify(ctx, key); err != nil {
			t.Fatalf("verify %s failed: %v", key, err)
		}
	}
	if _, err := engine.SubmitWork(ctx, worker, "sub-late", "camp-1"); err != nil {
		t.Fatalf("submit sub-late failed: %v", err)
	}

	t.Run("Only creator can close", func(t *testing.T) {
		if _, err := engine.CloseCampaign(ctx, worker, "camp-1"); !errors.Is(err, escrow.ErrNotCreator) {
			t.Errorf("expected ErrNotCreator, got %v", err)
		}
		if exists, _ := store.CampaignExists(ctx, "camp-1"); !exists {
			t.Error("campaign deleted by unauthorized close")
		}
	})

	t.Run("Close refunds unspent deposit", func(t *testing.T) {
		creatorBefore, _ := led.Balance(ctx, creator)
		status, err := engine.CloseCampaign(ctx, creator, "camp-1")
		if err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if status != "Campaign closed and refund processed" {
			t.Errorf("unexpected status %q", status)
		}
		creatorAfter, _ := led.Balance(ctx, creator)
		// deposit 1100 - 3*333 = 101
		if creatorAfter-creatorBefore != 101 {
			t.Errorf("expected refund 101, got %d", creatorAfter-creatorBefore)
		}
		if exists, _ := store.CampaignExists(ctx, "camp-1"); exists {
			t.Error("campaign record not deleted")
		}
	})

	t.Run("Close of unknown campaign", func(t *testing.T) {
		if _, err := engine.CloseCampaign(ctx, creator, "camp-1"); !errors.Is(err, escrow.ErrCampaignNotFound) {
			t.Errorf("expected ErrCampaignNotFound, got %v", err)
		}
	})

	t.Run("Verify of orphaned submission fails, decline still works", func(t *testing.T) {
		if _, err := engine.Verify(ctx, "sub-late"); !errors.Is(err, escrow.ErrCampaignNotFound) {
			t.Errorf("expected ErrCampaignNotFound, got %v", err)
		}
		if _, err := engine.Decline(ctx, "sub-late"); err != nil {
			t.Errorf("decline after close failed: %v", err)
		}
	})

	t.Run("Corrupted accounting fails instead of underflowing", func(t *testing.T) {
		if err := store.PutCampaign(ctx, escrow.Campaign{
			Creator:             creator,
			MetadataHash:        "camp-corrupt",
			Status:              escrow.StatusPending,
			DepositAmount:       100,
			PayPerPerson:        333,
			GoalSubmissions:     3,
			VerifiedSubmissions: 3,
		}); err != nil {
			t.Fatalf("put campaign: %v", err)
		}
		if _, err := engine.CloseCampaign(ctx, creator, "camp-corrupt"); !errors.Is(err, escrow.ErrAccounting) {
			t.Errorf("expected ErrAccounting, got %v", err)
		}
		if exists, _ := store.CampaignExists(ctx, "camp-corrupt"); !exists {
			t.Error("corrupted campaign deleted despite failed close")
		}
	})
}

func TestOptIn(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	ctx := context.Background()

	t.Run("Before mint", func(t *testing.T) {
		if _, err := engine.OptIn(ctx, worker); !errors.Is(err, escrow.ErrAssetNotMinted) {
			t.Errorf("expected ErrAssetNotMinted, got %v", err)
		}
	})

	if _, err := engine.MintRewardAsset(ctx, creator); err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	t.Run("After mint", func(t *testing.T) {
		status, err := engine.OptIn(ctx, worker)
		if err != nil {
			t.Fatalf("opt-in failed: %v", err)
		}
		if status != "Opt-in complete" {
			t.Errorf("unexpected status %q", status)
		}
	})

	t.Run("Repeated opt-in forwards ledger error", func(t *testing.T) {
		if _, err := engine.OptIn(ctx, worker); err == nil {
			t.Error("expected ledger error on repeated opt-in")
		}
	})
}

func TestPlatformEarnings(t *testing.T) {
	engine, _, led, _ := newTestEngine(t)
	fundAndCreate(t, engine, led, "camp-1")

	status := engine.Status()
	if status.PlatformEarned != 100 {
		t.Errorf("expected platform earnings 100, got %d", status.PlatformEarned)
	}
	if status.Address != escrowAddr {
		t.Errorf("expected address %s, got %s", escrowAddr, status.Address)
	}
}
