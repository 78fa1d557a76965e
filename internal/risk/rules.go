package risk

import "rugwatch/internal/domain"

// A rule inspects one enrichment check and contributes to the verdict:
// a good sign when the check passes, a red flag when it fails, or an
// unresolved field when the underlying lookup did not complete.
//
// An unresolved check never produces a red flag. Missing data is reported,
// not punished.
type rule struct {
	field domain.Field
	good  domain.Signal
	flag  domain.Signal

	// state reports whether the check passed. resolved is false when the
	// enrichment could not answer, in which case ok is meaningless.
	state func(*domain.EnrichedEvent) (ok, resolved bool)
}

// rules run in this order for every event, so the signal slices of two
// verdicts over the same enrichment compare equal.
var rules = []rule{
	{
		field: domain.FieldMintAuthority,
		good:  domain.SignalMintAuthorityRevoked,
		flag:  domain.SignalMintAuthorityActive,
		state: func(e *domain.EnrichedEvent) (bool, bool) {
			if e.Authorities == nil || e.Unresolved(domain.FieldMintAuthority) {
				return false, false
			}
			return e.Authorities.MintAuthorityRevoked, true
		},
	},
	{
		field: domain.FieldFreezeAuthority,
		good:  domain.SignalFreezeAuthorityRevoked,
		flag:  domain.SignalFreezeAuthorityActive,
		state: func(e *domain.EnrichedEvent) (bool, bool) {
			if e.Authorities == nil || e.Unresolved(domain.FieldFreezeAuthority) {
				return false, false
			}
			return e.Authorities.FreezeAuthorityRevoked, true
		},
	},
	{
		field: domain.FieldLiquidity,
		good:  domain.SignalLPBurned,
		flag:  domain.SignalLPNotBurned,
		state: func(e *domain.EnrichedEvent) (bool, bool) {
			if e.Liquidity == nil || e.Unresolved(domain.FieldLiquidity) {
				return false, false
			}
			return e.Liquidity.LPBurned, true
		},
	},
}
