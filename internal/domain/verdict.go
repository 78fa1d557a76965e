package domain

import (
	"fmt"
	"time"
)

// Label is the overall verdict for a token launch.
type Label string

const (
	LabelSafer    Label = "SAFER"
	LabelHighRisk Label = "HIGH_RISK"
)

// String returns the string representation of Label.
func (l Label) String() string {
	return string(l)
}

// IsValid checks if the label is a valid value.
func (l Label) IsValid() bool {
	return l == LabelSafer || l == LabelHighRisk
}

// Signal names a single scoring outcome. Good signs and red flags share the
// namespace; a signal is one or the other by construction, never both.
type Signal string

const (
	SignalMintAuthorityRevoked   Signal = "MINT_AUTHORITY_REVOKED"
	SignalMintAuthorityActive    Signal = "MINT_AUTHORITY_ACTIVE"
	SignalFreezeAuthorityRevoked Signal = "FREEZE_AUTHORITY_REVOKED"
	SignalFreezeAuthorityActive  Signal = "FREEZE_AUTHORITY_ACTIVE"
	SignalLPBurned               Signal = "LP_BURNED"
	SignalLPNotBurned            Signal = "LP_NOT_BURNED"
)

// String returns the string representation of Signal.
func (s Signal) String() string {
	return string(s)
}

// RiskVerdict is the scored assessment of a single token launch.
// GoodSigns and RedFlags preserve rule evaluation order; Unresolved lists
// checks whose data could not be fetched, in the same rule order.
type RiskVerdict struct {
	Mint      string
	Signature string
	Label     Label

	GoodSigns  []Signal
	RedFlags   []Signal
	Unresolved []Field

	// Display context carried through from the enriched event.
	Creator   string
	Name      string
	Symbol    string
	Slot      uint64
	BlockTime int64
	ScoredAt  time.Time
}

// HighRisk reports whether the verdict carries at least one red flag.
func (v *RiskVerdict) HighRisk() bool {
	return v.Label == LabelHighRisk
}

// Links returns browse URLs for the verdict's transaction and mint, in a
// stable order: explorer transaction page, launchpad page, DEX chart page.
func (v *RiskVerdict) Links() []string {
	return []string{
		fmt.Sprintf("https://solscan.io/tx/%s", v.Signature),
		fmt.Sprintf("https://pump.fun/%s", v.Mint),
		fmt.Sprintf("https://dexscreener.com/solana/%s", v.Mint),
	}
}
