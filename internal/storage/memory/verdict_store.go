package memory

import (
	"context"
	"sort"
	"sync"

	"rugwatch/internal/domain"
	"rugwatch/internal/storage"
)

// VerdictStore is an in-memory implementation of storage.VerdictStore.
type VerdictStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RiskVerdict // keyed by signature
}

// NewVerdictStore creates a new in-memory verdict store.
func NewVerdictStore() *VerdictStore {
	return &VerdictStore{
		data: make(map[string]*domain.RiskVerdict),
	}
}

// Insert adds a new verdict. Returns ErrDuplicateKey if the signature exists.
func (s *VerdictStore) Insert(_ context.Context, v *domain.RiskVerdict) error {
	if v == nil || v.Signature == "" || v.Mint == "" {
		return storage.ErrInvalidInput
	}
	if !v.Label.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[v.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[v.Signature] = copyVerdict(v)
	return nil
}

// GetBySignature retrieves a verdict. Returns ErrNotFound if not exists.
func (s *VerdictStore) GetBySignature(_ context.Context, signature string) (*domain.RiskVerdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyVerdict(v), nil
}

// ListByMint retrieves all verdicts for a mint in scoring order, oldest first.
func (s *VerdictStore) ListByMint(_ context.Context, mint string) ([]*domain.RiskVerdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RiskVerdict
	for _, v := range s.data {
		if v.Mint == mint {
			result = append(result, copyVerdict(v))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ScoredAt.Equal(result[j].ScoredAt) {
			return result[i].ScoredAt.Before(result[j].ScoredAt)
		}
		return result[i].Signature < result[j].Signature
	})
	return result, nil
}

// ListByLabel retrieves verdicts with the given label, newest first.
func (s *VerdictStore) ListByLabel(_ context.Context, label domain.Label, limit int) ([]*domain.RiskVerdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RiskVerdict
	for _, v := range s.data {
		if v.Label == label {
			result = append(result, copyVerdict(v))
		}
	}

	// Newest first, signature as tiebreaker for a stable order.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ScoredAt.Equal(result[j].ScoredAt) {
			return result[i].ScoredAt.After(result[j].ScoredAt)
		}
		return result[i].Signature < result[j].Signature
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the total number of stored verdicts.
func (s *VerdictStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)), nil
}

// copyVerdict deep-copies a verdict so callers cannot mutate stored state.
func copyVerdict(v *domain.RiskVerdict) *domain.RiskVerdict {
	c := *v
	c.GoodSigns = append([]domain.Signal(nil), v.GoodSigns...)
	c.RedFlags = append([]domain.Signal(nil), v.RedFlags...)
	c.Unresolved = append([]domain.Field(nil), v.Unresolved...)
	return &c
}

// Verify interface compliance at compile time.
var _ storage.VerdictStore = (*VerdictStore)(nil)
