package watch

import (
	"fmt"
	"net/url"
	"time"

	"github.com/mr-tron/base58"

	"rugwatch/internal/discovery"
)

// Config holds every tunable of the watch pipeline. Endpoints have no
// defaults and must be provided.
type Config struct {
	// WSEndpoint is the Solana WebSocket endpoint (ws:// or wss://).
	WSEndpoint string

	// RPCEndpoint is the Solana JSON-RPC HTTP endpoint.
	RPCEndpoint string

	// Program is the token launch program to watch.
	Program string

	// Commitment level for the log subscription and lookups.
	Commitment string

	// MaxConcurrentEnrichments is the enrichment worker count.
	MaxConcurrentEnrichments int

	// QueueSize bounds the pending-enrichment queue. When full, the
	// oldest pending event is dropped to admit the newest.
	QueueSize int

	// LookupTimeout bounds each individual enrichment lookup.
	LookupTimeout time.Duration

	// Backoff shapes reconnect delays.
	Backoff Backoff

	// BackoffResetAfter is the connection uptime after which the retry
	// counter resets, so a brief outage after a stable hour starts the
	// backoff ladder from the bottom again.
	BackoffResetAfter time.Duration

	// BurnThresholdRatio is the circulating LP share at or below which a
	// pool counts as burned.
	BurnThresholdRatio float64

	// BurnAddress is where burned LP tokens are parked.
	BurnAddress string
}

// DefaultConfig returns a config with production defaults. Endpoints are
// left empty and must be filled in by the caller.
func DefaultConfig() Config {
	return Config{
		Program:                  discovery.PumpFun,
		Commitment:               "confirmed",
		MaxConcurrentEnrichments: 8,
		QueueSize:                1024,
		LookupTimeout:            5 * time.Second,
		Backoff:                  DefaultBackoff(),
		BackoffResetAfter:        60 * time.Second,
		BurnThresholdRatio:       0.01,
		BurnAddress:              discovery.Incinerator,
	}
}

// FatalConfigError reports a config value the watcher cannot run with.
// It is returned from Validate before anything connects, never during
// operation.
type FatalConfigError struct {
	Field  string
	Reason string
}

func (e *FatalConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

var validCommitments = map[string]bool{
	"processed": true,
	"confirmed": true,
	"finalized": true,
}

// Validate checks the config and returns a *FatalConfigError describing
// the first problem found.
func (c *Config) Validate() error {
	if err := checkEndpoint("WSEndpoint", c.WSEndpoint, "ws", "wss"); err != nil {
		return err
	}
	if err := checkEndpoint("RPCEndpoint", c.RPCEndpoint, "http", "https"); err != nil {
		return err
	}
	if err := checkPubkey("Program", c.Program); err != nil {
		return err
	}
	if !validCommitments[c.Commitment] {
		return &FatalConfigError{Field: "Commitment", Reason: fmt.Sprintf("unknown level %q", c.Commitment)}
	}
	if c.MaxConcurrentEnrichments < 1 {
		return &FatalConfigError{Field: "MaxConcurrentEnrichments", Reason: "must be at least 1"}
	}
	if c.QueueSize < 1 {
		return &FatalConfigError{Field: "QueueSize", Reason: "must be at least 1"}
	}
	if c.LookupTimeout <= 0 {
		return &FatalConfigError{Field: "LookupTimeout", Reason: "must be positive"}
	}
	if c.Backoff.Min <= 0 {
		return &FatalConfigError{Field: "Backoff.Min", Reason: "must be positive"}
	}
	if c.Backoff.Max < c.Backoff.Min {
		return &FatalConfigError{Field: "Backoff.Max", Reason: "must be at least Backoff.Min"}
	}
	if c.Backoff.Jitter < 0 || c.Backoff.Jitter > 1 {
		return &FatalConfigError{Field: "Backoff.Jitter", Reason: "must be in [0, 1]"}
	}
	if c.BackoffResetAfter <= 0 {
		return &FatalConfigError{Field: "BackoffResetAfter", Reason: "must be positive"}
	}
	if c.BurnThresholdRatio < 0 || c.BurnThresholdRatio >= 1 {
		return &FatalConfigError{Field: "BurnThresholdRatio", Reason: "must be in [0, 1)"}
	}
	if err := checkPubkey("BurnAddress", c.BurnAddress); err != nil {
		return err
	}
	return nil
}

func checkEndpoint(field, endpoint string, schemes ...string) error {
	if endpoint == "" {
		return &FatalConfigError{Field: field, Reason: "is required"}
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return &FatalConfigError{Field: field, Reason: fmt.Sprintf("malformed URL: %v", err)}
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return &FatalConfigError{Field: field, Reason: "missing host"}
			}
			return nil
		}
	}
	return &FatalConfigError{Field: field, Reason: fmt.Sprintf("scheme %q, want one of %v", u.Scheme, schemes)}
}

func checkPubkey(field, value string) error {
	if value == "" {
		return &FatalConfigError{Field: field, Reason: "is required"}
	}
	raw, err := base58.Decode(value)
	if err != nil {
		return &FatalConfigError{Field: field, Reason: "not a base58 pubkey"}
	}
	if len(raw) != 32 {
		return &FatalConfigError{Field: field, Reason: fmt.Sprintf("decodes to %d bytes, want 32", len(raw))}
	}
	return nil
}
