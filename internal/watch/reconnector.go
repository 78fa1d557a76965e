package watch

import (
	"context"
	"log"
	"sync"
	"time"

	"rugwatch/internal/observability"
	"rugwatch/internal/solana"
)

// State is the connection state of a Reconnector.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateSubscribed   State = "SUBSCRIBED"
	StateDegraded     State = "DEGRADED"
	StateStopped      State = "STOPPED"
)

// DefaultDegradedAfter is how many consecutive failed connection cycles
// flip the state to DEGRADED.
const DefaultDegradedAfter = 5

// ReconnectorOptions configures a Reconnector.
type ReconnectorOptions struct {
	// Dial opens a fresh stream. Required.
	Dial solana.DialFunc

	// Filter is the log subscription filter. Required.
	Filter solana.LogsFilter

	// Backoff shapes the delay between cycles. Zero value uses
	// DefaultBackoff.
	Backoff Backoff

	// ResetAfter is the uptime that resets the retry counter. Default 60s.
	ResetAfter time.Duration

	// DegradedAfter is the consecutive-failure count that marks the
	// watcher DEGRADED. Default DefaultDegradedAfter.
	DegradedAfter int

	// Buffer is the outbound channel capacity. Default 256.
	Buffer int

	// OnStateChange is called on every state transition, from the Run
	// goroutine. Optional.
	OnStateChange func(State)

	Logger *log.Logger
}

// Reconnector keeps a log subscription alive. Each cycle dials a fresh
// stream, subscribes, and pumps notifications until the stream dies; then
// it backs off and starts over. Events missed between streams are gone:
// there is no replay, the scan path exists for gap recovery.
type Reconnector struct {
	dial          solana.DialFunc
	filter        solana.LogsFilter
	backoff       Backoff
	resetAfter    time.Duration
	degradedAfter int
	onStateChange func(State)
	logger        *log.Logger

	out chan solana.LogNotification

	mu    sync.Mutex
	state State
}

// NewReconnector creates a reconnector. It does not connect until Run.
func NewReconnector(opts ReconnectorOptions) *Reconnector {
	backoff := opts.Backoff
	if backoff == (Backoff{}) {
		backoff = DefaultBackoff()
	}
	resetAfter := opts.ResetAfter
	if resetAfter == 0 {
		resetAfter = 60 * time.Second
	}
	degradedAfter := opts.DegradedAfter
	if degradedAfter == 0 {
		degradedAfter = DefaultDegradedAfter
	}
	buffer := opts.Buffer
	if buffer == 0 {
		buffer = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Reconnector{
		dial:          opts.Dial,
		filter:        opts.Filter,
		backoff:       backoff,
		resetAfter:    resetAfter,
		degradedAfter: degradedAfter,
		onStateChange: opts.OnStateChange,
		logger:        logger,
		out:           make(chan solana.LogNotification, buffer),
		state:         StateDisconnected,
	}
}

// Events returns the notification stream. The channel is closed when Run
// returns.
func (r *Reconnector) Events() <-chan solana.LogNotification {
	return r.out
}

// State returns the current connection state.
func (r *Reconnector) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run drives connection cycles until the context is cancelled. It blocks
// and always returns the context's error.
func (r *Reconnector) Run(ctx context.Context) error {
	defer close(r.out)
	defer r.setState(StateStopped)

	attempt := 0
	for {
		if attempt > 0 {
			delay := r.backoff.Next(attempt - 1)
			r.logger.Printf("reconnecting in %v (attempt %d)", delay, attempt)
			observability.RecordReconnect()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		r.setState(StateConnecting)
		stream, err := r.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			attempt++
			r.noteFailure(attempt, "dial", err)
			continue
		}

		if err := stream.Subscribe(ctx, r.filter); err != nil {
			stream.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			attempt++
			r.noteFailure(attempt, "subscribe", err)
			continue
		}

		r.setState(StateSubscribed)
		r.logger.Printf("subscribed: mentions=%v commitment=%s", r.filter.Mentions, r.filter.Commitment)

		connectedAt := time.Now()
		err = r.pump(ctx, stream)
		stream.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A connection that held long enough starts the backoff ladder
		// from the bottom on its next failure.
		if time.Since(connectedAt) >= r.resetAfter {
			attempt = 0
		}
		attempt++
		r.noteFailure(attempt, "stream", err)
	}
}

// pump forwards notifications until the stream errors out.
func (r *Reconnector) pump(ctx context.Context, stream solana.LogStream) error {
	for {
		notif, err := stream.Recv(ctx)
		if err != nil {
			return err
		}
		select {
		case r.out <- notif:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Reconnector) noteFailure(attempt int, stage string, err error) {
	r.logger.Printf("%s failed (attempt %d): %v", stage, attempt, err)
	if attempt >= r.degradedAfter {
		r.setState(StateDegraded)
	} else {
		r.setState(StateDisconnected)
	}
}

func (r *Reconnector) setState(next State) {
	r.mu.Lock()
	prev := r.state
	r.state = next
	r.mu.Unlock()

	if prev != next && r.onStateChange != nil {
		r.onStateChange(next)
	}
}
