package escrow

import "time"

// Submission (and campaign) status values. Campaigns stay Pending for their
// whole stored life; submissions transition exactly once out of Pending.
const (
	StatusPending  = "Pending"
	StatusVerified = "Verified"
	StatusDeclined = "Declined"
)

// Reward asset genesis parameters.
const (
	RewardAssetTotal    = uint64(999_999_999_999_999_999)
	RewardAssetDecimals = uint32(6)
	RewardAssetUnit     = "BOUNT"
	RewardAssetName     = "Bount3 Coin"
)

// Campaign is a funded bounty, keyed by the content hash of its metadata.
type Campaign struct {
	Creator             string `json:"creator"`
	MetadataHash        string `json:"metadata_hash"`
	Status              string `json:"status"` // Pending
	DepositAmount       uint64 `json:"deposit_amount"`
	PayPerPerson        uint64 `json:"pay_per_person"`
	GoalSubmissions     uint64 `json:"goal_submissions"`
	VerifiedSubmissions uint64 `json:"verified_submissions"`
}

// Submission is a unit of work submitted against a campaign, keyed by the
// content hash of the submitted work.
type Submission struct {
	Creator      string `json:"creator"`
	MetadataHash string `json:"metadata_hash"`
	Status       string `json:"status"` // Pending | Verified | Declined
	CampaignHash string `json:"campaign_hash"`
}

// CampaignFilter captures list filters for campaigns.
type CampaignFilter struct {
	Creator string
}

// SubmissionFilter captures list filters for submissions.
type SubmissionFilter struct {
	CampaignHash string
	Status       string
	Creator      string
}

// Event is a lightweight activity entry for escrow state changes.
type Event struct {
	Type      string    `json:"type"`       // campaign_created | submission_created | submission_verified | submission_declined | campaign_closed | minted_asset
	EntityID  string    `json:"entity_id"`  // campaign or submission metadata hash
	Actor     string    `json:"actor"`      // caller address or system
	Message   string    `json:"message"`    // human-readable summary
	CreatedAt time.Time `json:"created_at"` // timestamp of the event
}

// EscrowStatus is the read-only view of process-wide escrow state.
type EscrowStatus struct {
	Address        string `json:"address"`
	AssetID        uint64 `json:"asset_id"`
	PlatformEarned uint64 `json:"platform_earned"`
}
