package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bount3-backend/core/escrow"
)

// PGStore persists the campaign and submission registry in Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects and initializes the schema.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGStore) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS escrow_campaigns (
  metadata_hash TEXT PRIMARY KEY,
  creator TEXT NOT NULL,
  status TEXT NOT NULL,
  deposit_amount BIGINT NOT NULL,
  pay_per_person BIGINT NOT NULL,
  goal_submissions BIGINT NOT NULL,
  verified_submissions BIGINT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS escrow_submissions (
  metadata_hash TEXT PRIMARY KEY,
  creator TEXT NOT NULL,
  status TEXT NOT NULL,
  campaign_hash TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_escrow_campaigns_creator ON escrow_campaigns(creator);
CREATE INDEX IF NOT EXISTS idx_escrow_submissions_campaign ON escrow_submissions(campaign_hash);
CREATE INDEX IF NOT EXISTS idx_escrow_submissions_status ON escrow_submissions(status);
`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PGStore) CampaignExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM escrow_campaigns WHERE metadata_hash=$1)`, key).Scan(&exists)
	return exists, err
}

func (s *PGStore) GetCampaign(ctx context.Context, key string) (escrow.Campaign, error) {
	var c escrow.Campaign
	err := s.pool.QueryRow(ctx, `
SELECT metadata_hash, creator, status, deposit_amount, pay_per_person, goal_submissions, verified_submissions
FROM escrow_campaigns WHERE metadata_hash=$1`, key).
		Scan(&c.MetadataHash, &c.Creator, &c.Status, &c.DepositAmount, &c.PayPerPerson, &c.GoalSubmissions, &c.VerifiedSubmissions)
	if errors.Is(err, pgx.ErrNoRows) {
		return escrow.Campaign{}, escrow.ErrCampaignNotFound
	}
	if err != nil {
		return escrow.Campaign{}, err
	}
	return c, nil
}

func (s *PGStore) PutCampaign(ctx context.Context, c escrow.Campaign) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO escrow_campaigns (metadata_hash, creator, status, deposit_amount, pay_per_person, goal_submissions, verified_submissions)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (metadata_hash) DO UPDATE SET
  creator=EXCLUDED.creator,
  status=EXCLUDED.status,
  deposit_amount=EXCLUDED.deposit_amount,
  pay_per_person=EXCLUDED.pay_per_person,
  goal_submissions=EXCLUDED.goal_submissions,
  verified_submissions=EXCLUDED.verified_submissions`,
		c.MetadataHash, c.Creator, c.Status, int64(c.DepositAmount), int64(c.PayPerPerson), int64(c.GoalSubmissions), int64(c.VerifiedSubmissions))
	return err
}

func (s *PGStore) DeleteCampaign(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM escrow_campaigns WHERE metadata_hash=$1`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return escrow.ErrCampaignNotFound
	}
	return nil
}

func (s *PGStore) ListCampaigns(ctx context.Context, filter escrow.CampaignFilter) ([]escrow.Campaign, error) {
	query := `
SELECT metadata_hash, creator, status, deposit_amount, pay_per_person, goal_submissions, verified_submissions
FROM escrow_campaigns`
	args := []any{}
	if filter.Creator != "" {
		query += ` WHERE lower(creator)=lower($1)`
		args = append(args, filter.Creator)
	}
	query += ` ORDER BY metadata_hash`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []escrow.Campaign
	for rows.Next() {
		var c escrow.Campaign
		if err := rows.Scan(&c.MetadataHash, &c.Creator, &c.Status, &c.DepositAmount, &c.PayPerPerson, &c.GoalSubmissions, &c.VerifiedSubmissions); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) SubmissionExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM escrow_submissions WHERE metadata_hash=$1)`, key).Scan(&exists)
	return exists, err
}

func (s *PGStore) GetSubmission(ctx context.Context, key string) (escrow.Submission, error) {
	var sub escrow.Submission
	err := s.pool.QueryRow(ctx, `
SELECT metadata_hash, creator, status, campaign_hash
FROM escrow_submissions WHERE metadata_hash=$1`, key).
		Scan(&sub.MetadataHash, &sub.Creator, &sub.Status, &sub.CampaignHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return escrow.Submission{}, escrow.ErrSubmissionNotFound
	}
	if err != nil {
		return escrow.Submission{}, err
	}
	return sub, nil
}

func (s *PGStore) PutSubmission(ctx context.Context, sub escrow.Submission) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO escrow_submissions (metadata_hash, creator, status, campaign_hash)
VALUES ($1,$2,$3,$4)
ON CONFLICT (metadata_hash) DO UPDATE SET
  creator=EXCLUDED.creator,
  status=EXCLUDED.status,
  campaign_hash=EXCLUDED.campaign_hash`,
		sub.MetadataHash, sub.Creator, sub.Status, sub.CampaignHash)
	return err
}

func (s *PGStore) ListSubmissions(ctx context.Context, filter escrow.SubmissionFilter) ([]escrow.Submission, error) {
	query := `
SELECT metadata_hash, creator, status, campaign_hash
FROM escrow_submissions WHERE 1=1`
	args := []any{}
	if filter.CampaignHash != "" {
		args = append(args, filter.CampaignHash)
		query += fmt.Sprintf(` AND campaign_hash=$%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND lower(status)=lower($%d)`, len(args))
	}
	if filter.Creator != "" {
		args = append(args, filter.Creator)
		query += fmt.Sprintf(` AND lower(creator)=lower($%d)`, len(args))
	}
	query += ` ORDER BY metadata_hash`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []escrow.Submission
	for rows.Next() {
		var sub escrow.Submission
		if err := rows.Scan(&sub.MetadataHash, &sub.Creator, &sub.Status, &sub.CampaignHash); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *PGStore) Close() {
	s.pool.Close()
}
