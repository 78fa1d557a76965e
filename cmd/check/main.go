package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mr-tron/base58"

	"rugwatch/internal/alert"
	"rugwatch/internal/discovery"
	"rugwatch/internal/domain"
	"rugwatch/internal/enrich"
	"rugwatch/internal/risk"
	"rugwatch/internal/solana"
)

func main() {
	// Parse flags
	mint := flag.String("mint", "", "Token mint address to audit")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	program := flag.String("program", discovery.PumpFun, "Launch program the token launched on")
	lookupTimeout := flag.Duration("lookup-timeout", 5*time.Second, "Deadline for each lookup")
	burnThreshold := flag.Float64("burn-threshold", 0.01, "Circulating LP share at or below which a pool counts as burned")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[check] ", log.LstdFlags)

	// Validate required flags
	if *mint == "" {
		logger.Fatal("--mint is required")
	}
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if raw, err := base58.Decode(*mint); err != nil || len(raw) != 32 {
		logger.Fatalf("Invalid mint: %s is not a base58 pubkey", *mint)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	rpc := solana.NewHTTPClient(*rpcEndpoint)

	event := &domain.CreationEvent{
		Mint:       *mint,
		ObservedAt: time.Now().UTC(),
	}

	// Best-effort recovery of the creation transaction, for slot and
	// block time context on the card.
	if sig, slot, ok := findCreation(ctx, rpc, *mint, logger); ok {
		event.Signature = sig
		event.Slot = slot
	}

	enricher := enrich.NewEnricher(rpc, enrich.Options{
		LookupTimeout:      *lookupTimeout,
		BurnThresholdRatio: *burnThreshold,
		LaunchProgram:      *program,
	})
	verdict := risk.NewEngine().Score(enricher.Enrich(ctx, event))

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(verdict, "", "  ")
		fmt.Println(string(output))
	} else {
		if err := alert.NewConsoleSink(os.Stdout).Deliver(ctx, verdict); err != nil {
			logger.Fatalf("print verdict: %v", err)
		}
	}

	if verdict.HighRisk() {
		os.Exit(2)
	}
}

// findCreation resolves the mint's oldest known signature, which for young
// tokens is the creation transaction. Busy tokens can outgrow the window
// the RPC returns; scoring then proceeds without transaction context.
func findCreation(ctx context.Context, rpc solana.RPCClient, mint string, logger *log.Logger) (string, uint64, bool) {
	sigs, err := rpc.GetSignaturesForAddress(ctx, mint, &solana.SignaturesOpts{Limit: 1000})
	if err != nil {
		logger.Printf("list signatures for %s: %v", mint, err)
		return "", 0, false
	}
	if len(sigs) == 0 {
		logger.Printf("no transaction history for %s", mint)
		return "", 0, false
	}
	if len(sigs) == 1000 {
		logger.Printf("mint history exceeds one signature page, creation context may be off")
	}

	oldest := sigs[len(sigs)-1]
	return oldest.Signature, oldest.Slot, true
}
