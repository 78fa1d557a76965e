package watch

import (
	"context"
	"fmt"
	"log"
	"time"

	"rugwatch/internal/solana"
)

// ScannerOptions configures a Scanner.
type ScannerOptions struct {
	// RPC is the lookup client. Required.
	RPC solana.RPCClient

	// Program is the address whose recent transactions are scanned.
	// Required.
	Program string

	// Limit is the number of recent signatures to walk. Default 100,
	// capped at 1000 by the RPC method itself.
	Limit int

	// Before restricts the walk to signatures older than this one.
	Before string

	// Throttle is the pause between transaction fetches, keeping scans
	// polite on shared endpoints. Default 100ms.
	Throttle time.Duration

	Logger *log.Logger
}

// Scanner replays recent program history through the pipeline. It fetches
// the latest signatures for the program, pulls each transaction's logs,
// and emits them as if they had arrived over the subscription. Failed
// transactions are skipped up front.
type Scanner struct {
	rpc      solana.RPCClient
	program  string
	limit    int
	before   string
	throttle time.Duration
	logger   *log.Logger

	out chan solana.LogNotification
}

// NewScanner creates a scanner. It does not fetch until Run.
func NewScanner(opts ScannerOptions) *Scanner {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	throttle := opts.Throttle
	if throttle <= 0 {
		throttle = 100 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Scanner{
		rpc:      opts.RPC,
		program:  opts.Program,
		limit:    limit,
		before:   opts.Before,
		throttle: throttle,
		logger:   logger,
		out:      make(chan solana.LogNotification, 64),
	}
}

// Events returns the reconstructed record stream. The channel is closed
// when Run returns.
func (s *Scanner) Events() <-chan solana.LogNotification {
	return s.out
}

// Run walks the program history once and returns. A failed signature
// lookup aborts the scan; a failed transaction fetch only skips that
// transaction.
func (s *Scanner) Run(ctx context.Context) error {
	defer close(s.out)

	sigs, err := s.rpc.GetSignaturesForAddress(ctx, s.program, &solana.SignaturesOpts{
		Limit:  s.limit,
		Before: s.before,
	})
	if err != nil {
		return fmt.Errorf("list signatures for %s: %w", s.program, err)
	}
	s.logger.Printf("scanning %d signatures for %s", len(sigs), s.program)

	// The RPC returns newest first. Walk oldest first so verdicts come
	// out in chain order.
	for i := len(sigs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}

		info := sigs[i]
		if info.Err != nil {
			continue
		}

		tx, err := s.rpc.GetTransaction(ctx, info.Signature)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Printf("fetch %s: %v", info.Signature, err)
			continue
		}
		if tx == nil || tx.Meta == nil {
			continue
		}

		notif := solana.LogNotification{
			Signature: info.Signature,
			Slot:      tx.Slot,
			Logs:      tx.Meta.LogMessages,
			Err:       tx.Meta.Err,
		}
		select {
		case s.out <- notif:
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case <-time.After(s.throttle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.logger.Println("scan complete")
	return nil
}
