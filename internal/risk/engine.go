package risk

import (
	"time"

	"rugwatch/internal/domain"
)

// Engine scores enriched creation events. Scoring is deterministic: the
// same enrichment always yields the same label and the same signals in
// the same order.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a new risk engine.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Score evaluates every rule against the enrichment and assembles the
// verdict. The label is HIGH_RISK exactly when at least one red flag
// fired; an event where nothing could be checked scores SAFER with all
// checks listed unresolved.
func (e *Engine) Score(event *domain.EnrichedEvent) *domain.RiskVerdict {
	verdict := &domain.RiskVerdict{
		Mint:      event.Mint,
		Signature: event.Signature,
		Creator:   event.Creator,
		Name:      event.Name,
		Symbol:    event.Symbol,
		Slot:      event.Slot,
		BlockTime: event.BlockTime,
		ScoredAt:  e.now().UTC(),
	}

	for _, r := range rules {
		ok, resolved := r.state(event)
		switch {
		case !resolved:
			verdict.Unresolved = append(verdict.Unresolved, r.field)
		case ok:
			verdict.GoodSigns = append(verdict.GoodSigns, r.good)
		default:
			verdict.RedFlags = append(verdict.RedFlags, r.flag)
		}
	}

	verdict.Label = domain.LabelSafer
	if len(verdict.RedFlags) > 0 {
		verdict.Label = domain.LabelHighRisk
	}
	return verdict
}
