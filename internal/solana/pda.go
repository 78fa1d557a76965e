package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// FindProgramAddress derives a Program Derived Address for the given seeds
// and program ID using the Solana algorithm:
//  1. Concatenate all seeds with a bump byte
//  2. Append the program ID and the "ProgramDerivedAddress" marker
//  3. SHA256 hash
//  4. Walk bump 255..1 until the hash falls off the ed25519 curve
func FindProgramAddress(seeds [][]byte, programID string) (string, error) {
	programBytes, err := base58.Decode(programID)
	if err != nil {
		return "", fmt.Errorf("decode program id: %w", err)
	}
	if len(programBytes) != 32 {
		return "", fmt.Errorf("program id is %d bytes, want 32", len(programBytes))
	}

	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programBytes...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), nil
		}
	}

	return "", fmt.Errorf("no off-curve address for seeds")
}

// isOnCurve checks whether bytes form a valid ed25519 curve point.
// Valid points are rejected as PDAs.
func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
