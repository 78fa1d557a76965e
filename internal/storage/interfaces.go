package storage

import (
	"context"

	"rugwatch/internal/domain"
)

// VerdictStore provides access to verdict storage. One verdict per creation
// signature; verdicts are never updated.
type VerdictStore interface {
	// Insert adds a new verdict. Returns ErrDuplicateKey if a verdict for
	// the signature exists.
	Insert(ctx context.Context, v *domain.RiskVerdict) error

	// GetBySignature retrieves the verdict for a creation transaction.
	// Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.RiskVerdict, error)

	// ListByMint retrieves all verdicts for a mint, oldest first.
	ListByMint(ctx context.Context, mint string) ([]*domain.RiskVerdict, error)

	// ListByLabel retrieves verdicts with the given label, newest first.
	// A non-positive limit means no limit.
	ListByLabel(ctx context.Context, label domain.Label, limit int) ([]*domain.RiskVerdict, error)

	// Count returns the total number of stored verdicts.
	Count(ctx context.Context) (int64, error)
}
