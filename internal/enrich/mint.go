package enrich

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"rugwatch/internal/domain"
)

// SPL Token Mint account layout (82 bytes):
//   - mintAuthority: COption<Pubkey> (4-byte tag + 32 bytes)
//   - supply: u64
//   - decimals: u8
//   - isInitialized: bool
//   - freezeAuthority: COption<Pubkey> (4-byte tag + 32 bytes)
const mintAccountSize = 82

// SPL Token account layout (165 bytes): mint(32) | owner(32) | amount(8) | ...
const (
	tokenAccountMinSize     = 72
	tokenAccountAmountShift = 64
)

// MintAccount is the decoded state of an SPL mint account.
type MintAccount struct {
	MintAuthority   string // empty when the authority is revoked
	Supply          uint64
	Decimals        uint8
	Initialized     bool
	FreezeAuthority string // empty when the authority is revoked
}

// ParseMintAccount decodes an SPL mint account from raw bytes.
//
// An authority counts as revoked when its COption tag is None or, for
// defective serializers seen in the wild, when the pubkey is all zeroes.
func ParseMintAccount(data []byte) (*MintAccount, error) {
	if len(data) < mintAccountSize {
		return nil, fmt.Errorf("mint data too short: %d", len(data))
	}

	m := &MintAccount{
		Supply:      binary.LittleEndian.Uint64(data[36:44]),
		Decimals:    data[44],
		Initialized: data[45] != 0,
	}

	if binary.LittleEndian.Uint32(data[0:4]) != 0 {
		m.MintAuthority = encodeNonZeroKey(data[4:36])
	}
	if binary.LittleEndian.Uint32(data[46:50]) != 0 {
		m.FreezeAuthority = encodeNonZeroKey(data[50:82])
	}

	return m, nil
}

// AuthorityState maps the decoded mint to the authority flags the rule
// engine consumes.
func (m *MintAccount) AuthorityState() *domain.MintAuthorityState {
	return &domain.MintAuthorityState{
		MintAuthorityRevoked:   m.MintAuthority == "",
		FreezeAuthorityRevoked: m.FreezeAuthority == "",
	}
}

// parseTokenAmount reads the raw token amount from an SPL token account.
func parseTokenAmount(data []byte) (uint64, error) {
	if len(data) < tokenAccountMinSize {
		return 0, fmt.Errorf("token account data too short: %d", len(data))
	}
	return binary.LittleEndian.Uint64(data[tokenAccountAmountShift : tokenAccountAmountShift+8]), nil
}

// decodeAccountData decodes the base64 payload of a fetched account.
func decodeAccountData(data string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode account data: %w", err)
	}
	return decoded, nil
}

// encodeNonZeroKey base58-encodes a pubkey, mapping the all-zero key to "".
func encodeNonZeroKey(key []byte) string {
	zero := true
	for _, b := range key {
		if b != 0 {
			zero = false
			break
		}
	}
	if zero {
		return ""
	}
	return base58.Encode(key)
}
