package alert

import (
	"context"
	"errors"

	"rugwatch/internal/domain"
	"rugwatch/internal/storage"
)

// StoreSink persists verdicts. Duplicate signatures are swallowed: a
// record that is already stored is delivered, not an error.
type StoreSink struct {
	store storage.VerdictStore
}

// NewStoreSink creates a sink backed by the given store.
func NewStoreSink(store storage.VerdictStore) *StoreSink {
	return &StoreSink{store: store}
}

// Deliver inserts the verdict.
func (s *StoreSink) Deliver(ctx context.Context, verdict *domain.RiskVerdict) error {
	err := s.store.Insert(ctx, verdict)
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return err
	}
	return nil
}
