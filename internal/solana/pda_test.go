package solana

import (
	"testing"

	"github.com/mr-tron/base58"
)

const (
	pumpFunID    = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	tokenID      = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	ataProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

func seedBytes(fill byte) []byte {
	b := make([]byte, 32)
	for i := range b {
		b[i] = fill
	}
	return b
}

func TestFindProgramAddress_KnownVectors(t *testing.T) {
	tokenProgram, err := base58.Decode(tokenID)
	if err != nil {
		t.Fatalf("decode token program: %v", err)
	}

	tests := []struct {
		name    string
		seeds   [][]byte
		program string
		want    string
	}{
		{
			name:    "bonding curve",
			seeds:   [][]byte{[]byte("bonding-curve"), seedBytes(0x11)},
			program: pumpFunID,
			want:    "3P8DRyUSauz4yDfNrANMog1xHa2FL1n4Pr5puQSVQFNL",
		},
		{
			name:    "associated token account",
			seeds:   [][]byte{seedBytes(0x22), tokenProgram, seedBytes(0x11)},
			program: ataProgramID,
			want:    "GGFXwpnmrNRo2sfkhoAmpT93spVWRnqeqrwKrTwKUwfL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindProgramAddress(tt.seeds, tt.program)
			if err != nil {
				t.Fatalf("FindProgramAddress: %v", err)
			}
			if got != tt.want {
				t.Errorf("derived %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFindProgramAddress_Deterministic(t *testing.T) {
	seeds := [][]byte{[]byte("bonding-curve"), seedBytes(0x42)}

	first, err := FindProgramAddress(seeds, pumpFunID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	second, err := FindProgramAddress(seeds, pumpFunID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if first != second {
		t.Errorf("derivation not deterministic: %s vs %s", first, second)
	}

	raw, err := base58.Decode(first)
	if err != nil {
		t.Fatalf("derived address is not base58: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("derived address is %d bytes, want 32", len(raw))
	}
	if isOnCurve(raw) {
		t.Error("derived address lies on the ed25519 curve")
	}
}

func TestFindProgramAddress_VariesWithInputs(t *testing.T) {
	base, err := FindProgramAddress([][]byte{[]byte("bonding-curve"), seedBytes(0x11)}, pumpFunID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}

	otherSeed, err := FindProgramAddress([][]byte{[]byte("bonding-curve"), seedBytes(0x12)}, pumpFunID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if otherSeed == base {
		t.Error("different seeds derived the same address")
	}

	otherProgram, err := FindProgramAddress([][]byte{[]byte("bonding-curve"), seedBytes(0x11)}, tokenID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if otherProgram == base {
		t.Error("different programs derived the same address")
	}
}

func TestFindProgramAddress_RejectsBadProgram(t *testing.T) {
	if _, err := FindProgramAddress([][]byte{[]byte("seed")}, "not-base58-0"); err == nil {
		t.Error("expected an error for a non-base58 program id")
	}
	if _, err := FindProgramAddress([][]byte{[]byte("seed")}, "abc"); err == nil {
		t.Error("expected an error for a short program id")
	}
}
