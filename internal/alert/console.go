package alert

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"rugwatch/internal/domain"
)

const cardRule = "------------------------------------------------------------"

// ConsoleSink renders each verdict as a text card. Writes are serialized
// so concurrent workers never interleave cards.
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSink creates a console sink writing to out.
func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

// Deliver renders the verdict card.
func (s *ConsoleSink) Deliver(_ context.Context, verdict *domain.RiskVerdict) error {
	card := renderCard(verdict)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, card)
	return err
}

// renderCard formats a verdict as a bordered text block.
func renderCard(v *domain.RiskVerdict) string {
	var sb strings.Builder

	banner := "SAFER"
	if v.HighRisk() {
		banner = "HIGH RISK"
	}

	name := v.Name
	if v.Symbol != "" {
		name = fmt.Sprintf("%s (%s)", v.Name, v.Symbol)
	}

	sb.WriteString(cardRule + "\n")
	sb.WriteString(fmt.Sprintf("%s  %s\n", banner, name))
	sb.WriteString(fmt.Sprintf("mint:    %s\n", v.Mint))
	sb.WriteString(fmt.Sprintf("creator: %s\n", v.Creator))
	sb.WriteString(fmt.Sprintf("slot:    %d", v.Slot))
	if v.BlockTime > 0 {
		sb.WriteString(fmt.Sprintf("  at %s", time.Unix(v.BlockTime, 0).UTC().Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	if len(v.RedFlags) > 0 {
		sb.WriteString("red flags:\n")
		for _, flag := range v.RedFlags {
			sb.WriteString(fmt.Sprintf("  [!] %s\n", describe(flag)))
		}
	}
	if len(v.GoodSigns) > 0 {
		sb.WriteString("good signs:\n")
		for _, sign := range v.GoodSigns {
			sb.WriteString(fmt.Sprintf("  [+] %s\n", describe(sign)))
		}
	}
	if len(v.Unresolved) > 0 {
		sb.WriteString("unchecked:\n")
		for _, field := range v.Unresolved {
			sb.WriteString(fmt.Sprintf("  [?] %s\n", describeField(field)))
		}
	}

	sb.WriteString("links:\n")
	for _, link := range v.Links() {
		sb.WriteString(fmt.Sprintf("  %s\n", link))
	}
	sb.WriteString(cardRule + "\n")

	return sb.String()
}
