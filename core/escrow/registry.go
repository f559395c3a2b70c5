package escrow

import "context"

// Store is the durable registry for campaigns and submissions. Keys are the
// opaque metadata content hashes; uniqueness is structural. Put overwrites
// silently, so callers that need create semantics must check existence first.
// Get and Delete fail with the matching not-found error when the key is
// absent.
type Store interface {
	CampaignExists(ctx context.Context, key string) (bool, error)
	GetCampaign(ctx context.Context, key string) (Campaign, error)
	PutCampaign(ctx context.Context, c Campaign) error
	DeleteCampaign(ctx context.Context, key string) error
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]Campaign, error)

	SubmissionExists(ctx context.Context, key string) (bool, error)
	GetSubmission(ctx context.Context, key string) (Submission, error)
	PutSubmission(ctx context.Context, s Submission) error
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error)

	Close()
}
