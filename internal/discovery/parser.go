package discovery

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"regexp"
	"time"

	"github.com/mr-tron/base58"

	"rugwatch/internal/domain"
	"rugwatch/internal/solana"
)

// createEventDiscriminator identifies the CreateEvent payload in program
// data logs: the first 8 bytes of sha256("event:CreateEvent").
var createEventDiscriminator = []byte{27, 114, 169, 77, 222, 235, 99, 118}

// maxPayloadString bounds borsh string fields (name, symbol, uri). The
// on-chain program caps them far lower; anything bigger is garbage.
const maxPayloadString = 512

// zeroPubkey is the all-zero public key, used as an absence marker.
var zeroPubkey [32]byte

// ParseError reports a record that matched the create instruction shape but
// carried an unusable payload. The record is dropped; the stream continues.
type ParseError struct {
	Signature string
	Reason    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse creation event %s: %s", e.Signature, e.Reason)
}

// CreationParser extracts token creation events from raw log records.
//
// A record qualifies only when the launch program itself logs the Create
// instruction inside its own invoke frame; the same transaction routinely
// carries Create-ish lines from other programs (associated token account
// creation in particular) that must not trigger detection.
type CreationParser struct {
	invokePattern  *regexp.Regexp
	finishPattern  *regexp.Regexp
	createPattern  *regexp.Regexp
	programPattern *regexp.Regexp
}

// NewCreationParser creates a parser for the given launch program ID.
func NewCreationParser(programID string) *CreationParser {
	return &CreationParser{
		invokePattern:  regexp.MustCompile(`^Program ` + programID + ` invoke`),
		finishPattern:  regexp.MustCompile(`^Program ` + programID + ` (success|failed)`),
		createPattern:  regexp.MustCompile(`^Program log: Instruction: Create$`),
		programPattern: regexp.MustCompile(`^Program data: ([A-Za-z0-9+/=]+)$`),
	}
}

// Parse extracts a creation event from one log record.
//
// Returns (nil, nil) for records that are not launch-program creations: any
// volume of unrelated records flows through silently. Returns a *ParseError
// when the record matches the create shape but the required identity fields
// (mint, creator) cannot be recovered.
func (p *CreationParser) Parse(record solana.LogNotification, observedAt time.Time) (*domain.CreationEvent, error) {
	if record.Err != nil {
		// Failed transaction, nothing was created.
		return nil, nil
	}

	var sawCreate bool
	var payloads [][]byte
	inProgram := false

	for _, line := range record.Logs {
		switch {
		case p.invokePattern.MatchString(line):
			inProgram = true
		case p.finishPattern.MatchString(line):
			inProgram = false
		case !inProgram:
			// Lines outside the launch program frame never count.
		case p.createPattern.MatchString(line):
			sawCreate = true
		default:
			if m := p.programPattern.FindStringSubmatch(line); m != nil {
				data, err := base64.StdEncoding.DecodeString(m[1])
				if err == nil {
					payloads = append(payloads, data)
				}
			}
		}
	}

	if !sawCreate {
		return nil, nil
	}

	if record.Signature == "" {
		return nil, &ParseError{Signature: record.Signature, Reason: "record has no signature"}
	}

	// The create instruction emits a CreateEvent payload; other events
	// (trades, completions) share the program data channel, so select by
	// discriminator.
	for _, data := range payloads {
		if len(data) < len(createEventDiscriminator) {
			continue
		}
		if !bytes.Equal(data[:len(createEventDiscriminator)], createEventDiscriminator) {
			continue
		}

		event, err := p.decodeCreateEvent(data[len(createEventDiscriminator):])
		if err != nil {
			return nil, &ParseError{Signature: record.Signature, Reason: err.Error()}
		}

		event.Signature = record.Signature
		event.Slot = record.Slot
		event.ObservedAt = observedAt
		return event, nil
	}

	return nil, &ParseError{Signature: record.Signature, Reason: "create instruction without create payload"}
}

// decodeCreateEvent decodes the borsh-encoded CreateEvent body:
// name, symbol, uri as length-prefixed strings, then mint, bonding curve and
// creator pubkeys. Trailing bytes from newer program versions are ignored.
func (p *CreationParser) decodeCreateEvent(data []byte) (*domain.CreationEvent, error) {
	name, offset, err := readBorshString(data, 0)
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}

	symbol, offset, err := readBorshString(data, offset)
	if err != nil {
		return nil, fmt.Errorf("symbol: %w", err)
	}

	uri, offset, err := readBorshString(data, offset)
	if err != nil {
		return nil, fmt.Errorf("uri: %w", err)
	}

	mint, offset, err := readPubkey(data, offset)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}

	curve, offset, err := readPubkey(data, offset)
	if err != nil {
		return nil, fmt.Errorf("bonding curve: %w", err)
	}

	creator, _, err := readPubkey(data, offset)
	if err != nil {
		return nil, fmt.Errorf("creator: %w", err)
	}

	if mint == "" {
		return nil, fmt.Errorf("mint address is zero")
	}
	if creator == "" {
		return nil, fmt.Errorf("creator address is zero")
	}

	return &domain.CreationEvent{
		Mint:         mint,
		Creator:      creator,
		Name:         name,
		Symbol:       symbol,
		URI:          uri,
		BondingCurve: curve,
	}, nil
}

// readBorshString reads a 4-byte LE length prefix followed by that many
// bytes. Returns the string and the next offset.
func readBorshString(data []byte, offset int) (string, int, error) {
	if offset+4 > len(data) {
		return "", 0, fmt.Errorf("truncated at string length (offset %d)", offset)
	}
	n := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4

	if n > maxPayloadString {
		return "", 0, fmt.Errorf("string length %d exceeds limit", n)
	}
	if offset+n > len(data) {
		return "", 0, fmt.Errorf("truncated at string body (offset %d, len %d)", offset, n)
	}

	return string(data[offset : offset+n]), offset + n, nil
}

// readPubkey reads 32 bytes and base58-encodes them. The all-zero key
// decodes to an empty string so absence checks stay simple.
func readPubkey(data []byte, offset int) (string, int, error) {
	if offset+32 > len(data) {
		return "", 0, fmt.Errorf("truncated at pubkey (offset %d)", offset)
	}
	key := data[offset : offset+32]
	if bytes.Equal(key, zeroPubkey[:]) {
		return "", offset + 32, nil
	}
	return base58.Encode(key), offset + 32, nil
}
