package escrow

import (
	"context"
	"sort"
	"strings"
	"sync"

	"bount3-backend/core/escrow"
)

// MemoryStore holds the campaign and submission registry in memory. The
// single RWMutex keeps reads and writes across both maps atomic with respect
// to each other.
type MemoryStore struct {
	mu          sync.RWMutex
	campaigns   map[string]escrow.Campaign
	submissions map[string]escrow.Submission
}

// NewMemoryStore returns an empty registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		campaigns:   make(map[string]escrow.Campaign),
		submissions: make(map[string]escrow.Submission),
	}
}

func (s *MemoryStore) CampaignExists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.campaigns[key]
	return ok, nil
}

func (s *MemoryStore) GetCampaign(_ context.Context, key string) (escrow.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[key]
	if !ok {
		return escrow.Campaign{}, escrow.ErrCampaignNotFound
	}
	return c, nil
}

func (s *MemoryStore) PutCampaign(_ context.Context, c escrow.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.MetadataHash] = c
	return nil
}

func (s *MemoryStore) DeleteCampaign(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[key]; !ok {
		return escrow.ErrCampaignNotFound
	}
	delete(s.campaigns, key)
	return nil
}

func (s *MemoryStore) ListCampaigns(_ context.Context, filter escrow.CampaignFilter) ([]escrow.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]escrow.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		if filter.Creator != "" && !strings.EqualFold(c.Creator, filter.Creator) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetadataHash < out[j].MetadataHash })
	return out, nil
}

func (s *MemoryStore) SubmissionExists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.submissions[key]
	return ok, nil
}

func (s *MemoryStore) GetSubmission(_ context.Context, key string) (escrow.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[key]
	if !ok {
		return escrow.Submission{}, escrow.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *MemoryStore) PutSubmission(_ context.Context, sub escrow.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.MetadataHash] = sub
	return nil
}

func (s *MemoryStore) ListSubmissions(_ context.Context, filter escrow.SubmissionFilter) ([]escrow.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]escrow.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		if filter.CampaignHash != "" && sub.CampaignHash != filter.CampaignHash {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(sub.Status, filter.Status) {
			continue
		}
		if filter.Creator != "" && !strings.EqualFold(sub.Creator, filter.Creator) {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetadataHash < out[j].MetadataHash })
	return out, nil
}

func (s *MemoryStore) Close() {}
