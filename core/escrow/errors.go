package escrow

// Err is a simple string error helper.
type Err string

func (e Err) Error() string { return string(e) }

// Validation errors: rejected before any state mutation.
var (
	ErrMissingMetadataHash = Err("metadata hash is required")
	ErrInvalidReceiver     = Err("payment receiver is not the escrow address")
	ErrIncorrectAmount     = Err("incorrect payment amount")
	ErrZeroGoal            = Err("goal submissions must be greater than zero")
)

// Not-found errors.
var (
	ErrCampaignNotFound   = Err("campaign not found")
	ErrSubmissionNotFound = Err("submission not found")
)

// State-conflict errors: business-rule rejections, no mutation.
var (
	ErrCampaignExists   = Err("campaign already exists")
	ErrSubmissionExists = Err("submission already exists")
	ErrAlreadyProcessed = Err("submission already processed")
	ErrCampaignComplete = Err("campaign complete")
	ErrAlreadyMinted    = Err("reward asset already minted")
	ErrAssetNotMinted   = Err("reward asset not minted")
)

// Authorization errors.
var ErrNotCreator = Err("only the campaign creator can close the campaign")

// Resource errors: whole call aborts, no registry write survives.
var (
	ErrInsufficientFunds = Err("insufficient escrow balance")
	ErrInsufficientAsset = Err("insufficient reward asset balance")
	ErrNotOptedIn        = Err("recipient has not opted in to the reward asset")
)

// ErrAccounting is an internal-consistency failure: the stored deposit no
// longer covers the verified payouts. It should never occur if every other
// operation is correct.
var ErrAccounting = Err("campaign accounting inconsistent")
