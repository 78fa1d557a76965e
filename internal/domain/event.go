package domain

import "time"

// CreationEvent is the immutable identity of an observed token launch.
// Fields come from the creation log record itself, never from enrichment.
type CreationEvent struct {
	Signature  string    // creation transaction signature
	Slot       uint64    // Solana slot the creation landed in
	Mint       string    // token mint address (base58)
	Creator    string    // wallet that invoked the create instruction
	ObservedAt time.Time // local receipt time of the log record

	// Display context decoded from the create payload. Optional: absent
	// fields stay empty and never affect scoring.
	Name         string
	Symbol       string
	URI          string
	BondingCurve string // launch-program curve account for the mint
}

// MintAuthorityState captures the authority flags read from the mint account.
type MintAuthorityState struct {
	MintAuthorityRevoked   bool // nobody can mint more supply
	FreezeAuthorityRevoked bool // nobody can freeze holder accounts
}

// LiquidityState captures the liquidity pool state derived for a mint.
type LiquidityState struct {
	LPMint   string // LP token mint address, empty when no LP token exists
	LPSupply uint64 // raw LP token supply
	LPBurned bool   // LP supply destroyed or parked at a burn address
}

// EnrichedEvent is a CreationEvent plus whatever on-chain state the lookups
// could resolve. A nil state pointer means the corresponding check is
// unresolved; FetchErrors records why.
type EnrichedEvent struct {
	CreationEvent

	Authorities *MintAuthorityState
	Liquidity   *LiquidityState
	BlockTime   int64 // unix seconds from the creation transaction, 0 if unknown

	// FetchErrors maps a check to the reason its lookup failed. Entries
	// mark data as unavailable; they are never treated as risk signals.
	FetchErrors map[Field]string
}

// Unresolved reports whether the given check has no resolved data.
func (e *EnrichedEvent) Unresolved(f Field) bool {
	switch f {
	case FieldMintAuthority, FieldFreezeAuthority:
		return e.Authorities == nil
	case FieldLiquidity:
		return e.Liquidity == nil
	case FieldTransaction:
		return e.BlockTime == 0
	}
	return true
}

// Field names an enrichment check for FetchErrors and unresolved reporting.
type Field string

const (
	FieldMintAuthority   Field = "MINT_AUTHORITY"
	FieldFreezeAuthority Field = "FREEZE_AUTHORITY"
	FieldLiquidity       Field = "LIQUIDITY"
	FieldTransaction     Field = "TRANSACTION"
)

// String returns the string representation of Field.
func (f Field) String() string {
	return string(f)
}
