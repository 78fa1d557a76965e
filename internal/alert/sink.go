// Package alert delivers scored verdicts to their consumers: the terminal,
// persistent storage, or both.
package alert

import (
	"context"

	"rugwatch/internal/domain"
)

// Sink receives every verdict the pipeline produces, in completion order.
// Deliver must be safe for concurrent use.
type Sink interface {
	Deliver(ctx context.Context, verdict *domain.RiskVerdict) error
}

// describe maps a signal to its one-line explanation.
func describe(s domain.Signal) string {
	switch s {
	case domain.SignalMintAuthorityRevoked:
		return "mint authority revoked"
	case domain.SignalMintAuthorityActive:
		return "mint authority still active, supply can be inflated"
	case domain.SignalFreezeAuthorityRevoked:
		return "freeze authority revoked"
	case domain.SignalFreezeAuthorityActive:
		return "freeze authority still active, holder accounts can be frozen"
	case domain.SignalLPBurned:
		return "liquidity burned"
	case domain.SignalLPNotBurned:
		return "liquidity not burned, pool can be pulled"
	}
	return string(s)
}

// describeField maps an unresolved field to its display name.
func describeField(f domain.Field) string {
	switch f {
	case domain.FieldMintAuthority:
		return "mint authority"
	case domain.FieldFreezeAuthority:
		return "freeze authority"
	case domain.FieldLiquidity:
		return "liquidity"
	case domain.FieldTransaction:
		return "transaction"
	}
	return string(f)
}
