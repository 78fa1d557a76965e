package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rugwatch/internal/alert"
	"rugwatch/internal/discovery"
	"rugwatch/internal/enrich"
	"rugwatch/internal/observability"
	"rugwatch/internal/risk"
	"rugwatch/internal/solana"
	chstore "rugwatch/internal/storage/clickhouse"
	"rugwatch/internal/storage/migrations"
	pgstore "rugwatch/internal/storage/postgres"
	"rugwatch/internal/watch"
)

func main() {
	// Parse flags
	mode := flag.String("mode", "live", "Watch mode: live (subscribe) or scan (walk recent history)")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint (default: derived from -rpc-endpoint)")
	program := flag.String("program", discovery.PumpFun, "Launch program ID to watch")
	commitment := flag.String("commitment", "confirmed", "Commitment level: processed, confirmed, or finalized")
	workers := flag.Int("workers", 8, "Concurrent enrichment workers")
	queueSize := flag.Int("queue-size", 1024, "Pending enrichment queue size; overflow drops the oldest event")
	lookupTimeout := flag.Duration("lookup-timeout", 5*time.Second, "Deadline for each enrichment lookup")
	burnThreshold := flag.Float64("burn-threshold", 0.01, "Circulating LP share at or below which a pool counts as burned")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for verdict storage (empty to disable)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the verdict archive (empty to disable)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	scanLimit := flag.Int("scan-limit", 100, "Signatures to walk in scan mode (capped at 1000 by the RPC)")
	scanBefore := flag.String("scan-before", "", "Walk signatures older than this one in scan mode")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[rugwatch] ", log.LstdFlags)

	cfg := watch.DefaultConfig()
	cfg.RPCEndpoint = *rpcEndpoint
	cfg.WSEndpoint = *wsEndpoint
	if cfg.WSEndpoint == "" {
		cfg.WSEndpoint = deriveWSEndpoint(*rpcEndpoint)
	}
	cfg.Program = *program
	cfg.Commitment = *commitment
	cfg.MaxConcurrentEnrichments = *workers
	cfg.QueueSize = *queueSize
	cfg.LookupTimeout = *lookupTimeout
	cfg.BurnThresholdRatio = *burnThreshold

	// Reject a bad config before anything connects.
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("%v", err)
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Run based on mode
	var err error
	switch *mode {
	case "live":
		err = runLive(ctx, logger, cfg, *postgresDSN, *clickhouseDSN)
	case "scan":
		err = runScan(ctx, logger, cfg, *postgresDSN, *clickhouseDSN, *scanLimit, *scanBefore)
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// deriveWSEndpoint maps an HTTP RPC endpoint to its WebSocket sibling, the
// convention public Solana endpoints follow.
func deriveWSEndpoint(rpcEndpoint string) string {
	u, err := url.Parse(rpcEndpoint)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return ""
	}
	return u.String()
}

// buildSink assembles the delivery chain: the console card feed always,
// plus a Postgres store and a ClickHouse archive when their DSNs are set.
func buildSink(ctx context.Context, logger *log.Logger, postgresDSN, clickhouseDSN string) (alert.Sink, func(), error) {
	sinks := []alert.Sink{alert.NewConsoleSink(os.Stdout)}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		sinks = append(sinks, alert.NewStoreSink(pgstore.NewVerdictStore(pool)))
		logger.Println("Storing verdicts in Postgres")
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("prepare clickhouse archive: %w", err)
		}
		closers = append(closers, func() { conn.Close() })

		sinks = append(sinks, alert.NewStoreSink(chstore.NewVerdictArchive(conn)))
		logger.Println("Archiving verdicts in ClickHouse")
	}

	if len(sinks) == 1 {
		return sinks[0], cleanup, nil
	}
	return alert.NewMultiSink(sinks...), cleanup, nil
}

// buildPipeline wires a source into the parse, enrich, score, emit chain.
func buildPipeline(source watch.Source, rpc solana.RPCClient, sink alert.Sink, cfg watch.Config, logger *log.Logger) *watch.Pipeline {
	return watch.NewPipeline(watch.PipelineOptions{
		Source: source,
		Parser: discovery.NewCreationParser(cfg.Program),
		Enricher: enrich.NewEnricher(rpc, enrich.Options{
			LookupTimeout:      cfg.LookupTimeout,
			BurnThresholdRatio: cfg.BurnThresholdRatio,
			BurnAddress:        cfg.BurnAddress,
			LaunchProgram:      cfg.Program,
		}),
		Engine:    risk.NewEngine(),
		Sink:      sink,
		Workers:   cfg.MaxConcurrentEnrichments,
		QueueSize: cfg.QueueSize,
		Logger:    logger,
	})
}

// runLive subscribes to launch-program logs and scores creations as they
// happen, reconnecting across stream failures.
func runLive(ctx context.Context, logger *log.Logger, cfg watch.Config, postgresDSN, clickhouseDSN string) error {
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint, solana.WithCommitment(cfg.Commitment))

	sink, cleanup, err := buildSink(ctx, logger, postgresDSN, clickhouseDSN)
	if err != nil {
		return err
	}
	defer cleanup()

	source := watch.NewReconnector(watch.ReconnectorOptions{
		Dial: solana.Dialer(cfg.WSEndpoint, nil),
		Filter: solana.LogsFilter{
			Mentions:   []string{cfg.Program},
			Commitment: cfg.Commitment,
		},
		Backoff:    cfg.Backoff,
		ResetAfter: cfg.BackoffResetAfter,
		OnStateChange: func(s watch.State) {
			observability.SetConnectionState(string(s))
		},
		Logger: logger,
	})

	logger.Printf("Watching launches of %s via %s", cfg.Program, cfg.WSEndpoint)
	return buildPipeline(source, rpc, sink, cfg, logger).Run(ctx)
}

// runScan walks recent program history once and scores every creation
// found, oldest first.
func runScan(ctx context.Context, logger *log.Logger, cfg watch.Config, postgresDSN, clickhouseDSN string, limit int, before string) error {
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint, solana.WithCommitment(cfg.Commitment))

	sink, cleanup, err := buildSink(ctx, logger, postgresDSN, clickhouseDSN)
	if err != nil {
		return err
	}
	defer cleanup()

	source := watch.NewScanner(watch.ScannerOptions{
		RPC:     rpc,
		Program: cfg.Program,
		Limit:   limit,
		Before:  before,
		Logger:  logger,
	})

	logger.Printf("Scanning the last %d transactions of %s", limit, cfg.Program)
	return buildPipeline(source, rpc, sink, cfg, logger).Run(ctx)
}
