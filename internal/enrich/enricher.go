package enrich

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rugwatch/internal/discovery"
	"rugwatch/internal/domain"
	"rugwatch/internal/solana"
)

// Default enrichment values.
const (
	DefaultLookupTimeout      = 5 * time.Second
	DefaultBurnThresholdRatio = 0.01
)

// Options configures an Enricher. Zero values fall back to defaults.
type Options struct {
	// LookupTimeout bounds each individual lookup.
	LookupTimeout time.Duration

	// BurnThresholdRatio is the circulating LP share at or below which a
	// pool counts as burned. Must be in [0, 1).
	BurnThresholdRatio float64

	// BurnAddress is where burned LP tokens are parked.
	BurnAddress string

	// LaunchProgram is the token launch program ID.
	LaunchProgram string
}

// Enricher resolves on-chain state for creation events. Lookups run
// concurrently, each under its own deadline; a failed lookup marks its
// checks unresolved instead of failing the event.
type Enricher struct {
	rpc           solana.RPCClient
	lookupTimeout time.Duration
	burnThreshold float64
	burnAddress   string
	launchProgram string
}

// NewEnricher creates an enricher backed by the given RPC client.
func NewEnricher(rpc solana.RPCClient, opts Options) *Enricher {
	e := &Enricher{
		rpc:           rpc,
		lookupTimeout: opts.LookupTimeout,
		burnThreshold: opts.BurnThresholdRatio,
		burnAddress:   opts.BurnAddress,
		launchProgram: opts.LaunchProgram,
	}
	if e.lookupTimeout <= 0 {
		e.lookupTimeout = DefaultLookupTimeout
	}
	if e.burnThreshold <= 0 {
		e.burnThreshold = DefaultBurnThresholdRatio
	}
	if e.burnAddress == "" {
		e.burnAddress = discovery.Incinerator
	}
	if e.launchProgram == "" {
		e.launchProgram = discovery.PumpFun
	}
	return e
}

// Enrich runs three independent lookups for the event: the creation
// transaction (display context only), the mint account (authority flags)
// and the derived liquidity account. All lookups complete or time out
// before Enrich returns; failures land in FetchErrors, never in an error.
func (e *Enricher) Enrich(ctx context.Context, event *domain.CreationEvent) *domain.EnrichedEvent {
	enriched := &domain.EnrichedEvent{
		CreationEvent: *event,
		FetchErrors:   make(map[domain.Field]string),
	}

	var mu sync.Mutex
	fail := func(reason string, fields ...domain.Field) {
		mu.Lock()
		for _, f := range fields {
			enriched.FetchErrors[f] = reason
		}
		mu.Unlock()
	}

	var g errgroup.Group

	g.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
		defer cancel()

		tx, err := e.rpc.GetTransaction(lctx, event.Signature)
		switch {
		case err != nil:
			fail(lookupFailure(err), domain.FieldTransaction)
		case tx == nil:
			fail("transaction not found", domain.FieldTransaction)
		default:
			enriched.BlockTime = tx.BlockTime
		}
		return nil
	})

	g.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
		defer cancel()

		info, err := e.rpc.GetAccountInfo(lctx, event.Mint)
		switch {
		case err != nil:
			fail(lookupFailure(err), domain.FieldMintAuthority, domain.FieldFreezeAuthority)
		case info == nil:
			fail("mint account not found", domain.FieldMintAuthority, domain.FieldFreezeAuthority)
		default:
			data, err := decodeAccountData(info.Data)
			if err == nil {
				var mint *MintAccount
				mint, err = ParseMintAccount(data)
				if err == nil {
					enriched.Authorities = mint.AuthorityState()
					return nil
				}
			}
			fail(err.Error(), domain.FieldMintAuthority, domain.FieldFreezeAuthority)
		}
		return nil
	})

	g.Go(func() error {
		lctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
		defer cancel()

		state, err := e.probeLiquidity(lctx, event)
		if err != nil {
			fail(lookupFailure(err), domain.FieldLiquidity)
			return nil
		}
		enriched.Liquidity = state
		return nil
	})

	g.Wait()
	return enriched
}

// lookupFailure normalizes context deadline errors into a stable reason.
func lookupFailure(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "lookup timed out"
	}
	return err.Error()
}
