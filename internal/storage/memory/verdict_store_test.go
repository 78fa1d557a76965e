package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"rugwatch/internal/domain"
	"rugwatch/internal/storage"
)

func testVerdict(signature string, label domain.Label, scoredAt time.Time) *domain.RiskVerdict {
	return &domain.RiskVerdict{
		Mint:      "mint-" + signature,
		Signature: signature,
		Label:     label,
		GoodSigns: []domain.Signal{domain.SignalMintAuthorityRevoked},
		Creator:   "creator123",
		Name:      "Test Token",
		Symbol:    "TEST",
		Slot:      100,
		ScoredAt:  scoredAt,
	}
}

func TestVerdictStore_InsertAndGet(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	v := testVerdict("sig1", domain.LabelSafer, time.Unix(1700000000, 0))
	if err := store.Insert(ctx, v); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	if got.Mint != v.Mint {
		t.Errorf("Mint mismatch: got %s, want %s", got.Mint, v.Mint)
	}
	if got.Label != domain.LabelSafer {
		t.Errorf("Label mismatch: got %s", got.Label)
	}
	if len(got.GoodSigns) != 1 || got.GoodSigns[0] != domain.SignalMintAuthorityRevoked {
		t.Errorf("GoodSigns mismatch: got %v", got.GoodSigns)
	}
}

func TestVerdictStore_DuplicateKey(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	v := testVerdict("sig1", domain.LabelSafer, time.Unix(1700000000, 0))
	if err := store.Insert(ctx, v); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}

	err := store.Insert(ctx, v)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestVerdictStore_InvalidInput(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	tests := []struct {
		name string
		v    *domain.RiskVerdict
	}{
		{"nil verdict", nil},
		{"empty signature", &domain.RiskVerdict{Mint: "m", Label: domain.LabelSafer}},
		{"empty mint", &domain.RiskVerdict{Signature: "s", Label: domain.LabelSafer}},
		{"bad label", &domain.RiskVerdict{Signature: "s", Mint: "m", Label: "MAYBE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Insert(ctx, tt.v); !errors.Is(err, storage.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestVerdictStore_NotFound(t *testing.T) {
	store := NewVerdictStore()

	_, err := store.GetBySignature(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVerdictStore_ListByMint(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	relaunch := testVerdict("sig-later", domain.LabelHighRisk, base.Add(time.Hour))
	relaunch.Mint = "shared-mint"
	first := testVerdict("sig-earlier", domain.LabelSafer, base)
	first.Mint = "shared-mint"
	other := testVerdict("sig-other", domain.LabelSafer, base)

	for _, v := range []*domain.RiskVerdict{relaunch, first, other} {
		if err := store.Insert(ctx, v); err != nil {
			t.Fatalf("Insert %s failed: %v", v.Signature, err)
		}
	}

	got, err := store.ListByMint(ctx, "shared-mint")
	if err != nil {
		t.Fatalf("ListByMint failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d verdicts, want 2", len(got))
	}
	if got[0].Signature != "sig-earlier" || got[1].Signature != "sig-later" {
		t.Errorf("verdicts not in scoring order: [%s, %s]", got[0].Signature, got[1].Signature)
	}

	empty, err := store.ListByMint(ctx, "unknown-mint")
	if err != nil {
		t.Fatalf("ListByMint for unknown mint failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d verdicts for unknown mint, want 0", len(empty))
	}
}

func TestVerdictStore_ListByLabel(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		label := domain.LabelSafer
		if i%2 == 0 {
			label = domain.LabelHighRisk
		}
		v := testVerdict(fmt.Sprintf("sig%d", i), label, base.Add(time.Duration(i)*time.Minute))
		if err := store.Insert(ctx, v); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	highRisk, err := store.ListByLabel(ctx, domain.LabelHighRisk, 0)
	if err != nil {
		t.Fatalf("ListByLabel failed: %v", err)
	}
	if len(highRisk) != 3 {
		t.Fatalf("got %d high risk verdicts, want 3", len(highRisk))
	}

	// Newest first
	for i := 1; i < len(highRisk); i++ {
		if highRisk[i].ScoredAt.After(highRisk[i-1].ScoredAt) {
			t.Errorf("verdicts not ordered newest first: %v before %v",
				highRisk[i-1].ScoredAt, highRisk[i].ScoredAt)
		}
	}

	limited, err := store.ListByLabel(ctx, domain.LabelHighRisk, 2)
	if err != nil {
		t.Fatalf("ListByLabel with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d verdicts, want 2", len(limited))
	}
	if limited[0].Signature != "sig4" {
		t.Errorf("newest first should be sig4, got %s", limited[0].Signature)
	}
}

func TestVerdictStore_Count(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v := testVerdict(fmt.Sprintf("sig%d", i), domain.LabelSafer, time.Unix(1700000000, 0))
		if err := store.Insert(ctx, v); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count = %d, want 3", count)
	}
}

func TestVerdictStore_CopyOnReadAndWrite(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	v := testVerdict("sig1", domain.LabelHighRisk, time.Unix(1700000000, 0))
	v.RedFlags = []domain.Signal{domain.SignalLPNotBurned}
	if err := store.Insert(ctx, v); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the inserted value must not affect the stored one.
	v.RedFlags[0] = domain.SignalMintAuthorityActive

	got, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	if got.RedFlags[0] != domain.SignalLPNotBurned {
		t.Error("store should hold a copy, not share caller slices")
	}

	// Mutating the returned value must not affect the stored one either.
	got.RedFlags[0] = domain.SignalFreezeAuthorityActive
	again, _ := store.GetBySignature(ctx, "sig1")
	if again.RedFlags[0] != domain.SignalLPNotBurned {
		t.Error("reads should return independent copies")
	}
}

func TestVerdictStore_ConcurrentInsert(t *testing.T) {
	store := NewVerdictStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			v := testVerdict(fmt.Sprintf("sig%d", n), domain.LabelSafer, time.Unix(1700000000, 0))
			if err := store.Insert(ctx, v); err != nil {
				t.Errorf("Insert %d failed: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 20 {
		t.Errorf("Count = %d, want 20", count)
	}
}
