package watch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"rugwatch/internal/alert"
	"rugwatch/internal/discovery"
	"rugwatch/internal/domain"
	"rugwatch/internal/enrich"
	"rugwatch/internal/observability"
	"rugwatch/internal/risk"
	"rugwatch/internal/solana"
)

// Source feeds raw log records into the pipeline. Run blocks until the
// context is cancelled or the source is exhausted; Events is closed when
// Run returns.
type Source interface {
	Run(ctx context.Context) error
	Events() <-chan solana.LogNotification
}

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	Source   Source
	Parser   *discovery.CreationParser
	Enricher *enrich.Enricher
	Engine   *risk.Engine
	Sink     alert.Sink

	// Workers is the enrichment worker count. Default 8.
	Workers int

	// QueueSize bounds pending enrichments. Default 1024.
	QueueSize int

	// StatsInterval is how often counters are logged. Default 30s.
	StatsInterval time.Duration

	Logger *log.Logger
}

// Pipeline wires the stages together: records from the source are parsed
// inline, creation events wait in a bounded queue, and a fixed pool of
// workers enriches, scores, and emits them. Every admitted event produces
// exactly one verdict unless overflow evicts it first.
type Pipeline struct {
	source        Source
	parser        *discovery.CreationParser
	enricher      *enrich.Enricher
	engine        *risk.Engine
	sink          alert.Sink
	workers       int
	queue         *Queue
	statsInterval time.Duration
	logger        *log.Logger

	received    atomic.Uint64
	parsed      atomic.Uint64
	parseErrors atomic.Uint64
	enriched    atomic.Uint64
	emitted     atomic.Uint64
	emitErrors  atomic.Uint64
}

// NewPipeline creates a pipeline. It does not start until Run.
func NewPipeline(opts PipelineOptions) *Pipeline {
	workers := opts.Workers
	if workers < 1 {
		workers = 8
	}
	queueSize := opts.QueueSize
	if queueSize < 1 {
		queueSize = 1024
	}
	statsInterval := opts.StatsInterval
	if statsInterval <= 0 {
		statsInterval = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Pipeline{
		source:        opts.Source,
		parser:        opts.Parser,
		enricher:      opts.Enricher,
		engine:        opts.Engine,
		sink:          opts.Sink,
		workers:       workers,
		queue:         NewQueue(queueSize),
		statsInterval: statsInterval,
		logger:        logger,
	}
}

// Run starts the source, the intake loop, and the worker pool, then blocks
// until the source stops. On shutdown the workers finish the events already
// admitted; each in-flight enrichment still completes or hits its own
// lookup deadlines.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Printf("pipeline starting: workers=%d queue=%d", p.workers, p.queue.Cap())

	g, gctx := errgroup.WithContext(ctx)

	// intakeDone also stops the stats loop when the source is exhausted
	// rather than cancelled, as in scan mode.
	intakeCtx, intakeDone := context.WithCancel(gctx)
	defer intakeDone()

	g.Go(func() error {
		return p.source.Run(gctx)
	})

	g.Go(func() error {
		defer intakeDone()
		defer p.queue.Close()
		p.intake(gctx)
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(p.statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-intakeCtx.Done():
				return nil
			case <-ticker.C:
				p.logger.Printf("stats: %s", p.Stats())
			}
		}
	})

	// Workers drain the queue to the end even after cancellation, so an
	// admitted event is never silently abandoned.
	var workersWG sync.WaitGroup
	drainCtx := context.WithoutCancel(ctx)
	for i := 0; i < p.workers; i++ {
		workersWG.Add(1)
		go func() {
			defer workersWG.Done()
			p.work(drainCtx)
		}()
	}

	err := g.Wait()
	workersWG.Wait()

	p.logger.Printf("pipeline stopped: %s", p.Stats())
	return err
}

// intake pulls records from the source, parses them, and admits creation
// events to the queue.
func (p *Pipeline) intake(ctx context.Context) {
	events := p.source.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-events:
			if !ok {
				p.logger.Println("event source exhausted")
				return
			}
			p.admit(notif)
		}
	}
}

func (p *Pipeline) admit(notif solana.LogNotification) {
	p.received.Add(1)
	observability.RecordRecordReceived()

	event, err := p.parser.Parse(notif, time.Now().UTC())
	if err != nil {
		p.parseErrors.Add(1)
		observability.RecordParseError()
		p.logger.Printf("parse error: %v", err)
		return
	}
	if event == nil {
		return
	}

	p.parsed.Add(1)
	observability.RecordCreationParsed()
	p.logger.Printf("token launch: %s (%s) mint=%s sig=%s slot=%d",
		event.Name, event.Symbol, event.Mint, event.Signature, event.Slot)

	if evicted := p.queue.Push(event); evicted {
		observability.RecordOverflowDrop()
		p.logger.Printf("queue full, dropped oldest pending event (total dropped: %d)", p.queue.Dropped())
	}
	observability.SetQueueDepth(p.queue.Len())
}

// work pops admitted events until the queue closes.
func (p *Pipeline) work(ctx context.Context) {
	for {
		event, ok := p.queue.Pop(ctx)
		if !ok {
			return
		}
		observability.SetQueueDepth(p.queue.Len())
		p.process(ctx, event)
	}
}

// process runs one event through enrichment, scoring, and delivery.
func (p *Pipeline) process(ctx context.Context, event *domain.CreationEvent) {
	start := time.Now()
	observability.EnrichmentStarted()
	enriched := p.enricher.Enrich(ctx, event)
	observability.EnrichmentFinished()
	p.enriched.Add(1)
	observability.ObserveEnrichmentLatency(time.Since(start).Seconds())
	for field := range enriched.FetchErrors {
		observability.RecordLookupError(string(field))
	}

	verdict := p.engine.Score(enriched)
	observability.RecordVerdict(verdict.Label.String())

	if err := p.sink.Deliver(ctx, verdict); err != nil {
		p.emitErrors.Add(1)
		observability.RecordDeliveryError()
		p.logger.Printf("deliver verdict for %s: %v", verdict.Mint, err)
		return
	}
	p.emitted.Add(1)
}

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	Received      uint64
	Parsed        uint64
	ParseErrors   uint64
	OverflowDrops uint64
	Enriched      uint64
	Emitted       uint64
	EmitErrors    uint64
	QueueDepth    int
}

func (s Stats) String() string {
	return fmt.Sprintf("received=%d parsed=%d parse_errors=%d dropped=%d enriched=%d emitted=%d emit_errors=%d queued=%d",
		s.Received, s.Parsed, s.ParseErrors, s.OverflowDrops, s.Enriched, s.Emitted, s.EmitErrors, s.QueueDepth)
}

// Stats returns current pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Received:      p.received.Load(),
		Parsed:        p.parsed.Load(),
		ParseErrors:   p.parseErrors.Load(),
		OverflowDrops: p.queue.Dropped(),
		Enriched:      p.enriched.Load(),
		Emitted:       p.emitted.Load(),
		EmitErrors:    p.emitErrors.Load(),
		QueueDepth:    p.queue.Len(),
	}
}
